// Package models defines the domain types for livetag.
package models

import (
	"sort"
	"time"
)

// Item is a snapshot of one tagged file inside a folder metadata document.
type Item struct {
	Filename string   `json:"filename"`
	Keywords []string `json:"keywords"`
}

// FolderMetadata is a lightweight representation returned by list operations.
type FolderMetadata struct {
	Folder    string    `json:"folder"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileSet is a set of sample filenames from which entries can be claimed.
// A claimed entry is removed, so whatever remains after a pass over a
// document is the set of files that had no matching item.
type FileSet map[string]struct{}

// NewFileSet returns a set containing names.
func NewFileSet(names ...string) FileSet {
	s := make(FileSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Add inserts name into the set.
func (s FileSet) Add(name string) {
	s[name] = struct{}{}
}

// Has reports whether name is in the set.
func (s FileSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Take removes name from the set and reports whether it was present.
func (s FileSet) Take(name string) bool {
	if _, ok := s[name]; !ok {
		return false
	}
	delete(s, name)
	return true
}

// Len returns the number of names in the set.
func (s FileSet) Len() int {
	return len(s)
}

// Sorted returns the names in lexicographic order.
func (s FileSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy of the set.
func (s FileSet) Clone() FileSet {
	c := make(FileSet, len(s))
	for n := range s {
		c[n] = struct{}{}
	}
	return c
}
