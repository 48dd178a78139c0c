// Package apperr holds the error kinds shared by the transports.
package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalid     = errors.New("invalid request")
	ErrUnavailable = errors.New("unavailable")
)
