package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/livetag/internal/tagservice"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Library LibraryConfig     `yaml:"library"`
	Tagger  TaggerConfig      `yaml:"tagger"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Library.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFormat is "json" or "text". Empty picks per command: JSON for
	// serve, text for everything else.
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LibraryConfig points at the sample library. Include globs are relative
// to Root.
type LibraryConfig struct {
	Root string `yaml:"root"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
	)
}

// TaggerConfig holds defaults for tag operations. Command-line flags
// override them.
type TaggerConfig struct {
	CreatorTool string `yaml:"creator_tool"`
	Commit      bool   `yaml:"commit"`
	Backup      bool   `yaml:"backup"`
	KeepGoing   bool   `yaml:"keep_going"`
}

// SQLiteConfig holds the tag catalog database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Library: LibraryConfig{
			Root: ".",
		},
		Tagger: TaggerConfig{
			CreatorTool: tagservice.DefaultCreatorTool,
		},
		SQLite: SQLiteConfig{
			Path: "./livetag.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
