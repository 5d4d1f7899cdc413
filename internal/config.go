package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
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
	App   ApplicationConfig `yaml:"app"`
	Site  SiteConfig        `yaml:"site"`
	Cache CacheConfig       `yaml:"cache"`
	Watch WatchConfig       `yaml:"watch"`
	Auth  AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Site.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
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

// SiteConfig locates the site tree. Relative paths are resolved against the
// project root by Resolve.
type SiteConfig struct {
	ContentDir    string `yaml:"content_dir"`
	LayoutDir     string `yaml:"layout_dir"`
	PartialsDir   string `yaml:"partials_dir"`
	OutputDir     string `yaml:"output_dir"`
	PublicDir     string `yaml:"public_dir"`
	BaseURL       string `yaml:"base_url"`
	DefaultLayout string `yaml:"default_layout"`
	AuxPartial    string `yaml:"aux_partial"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = "/"
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.ContentDir, validation.Required),
		validation.Field(&c.LayoutDir, validation.Required),
		validation.Field(&c.PartialsDir, validation.Required),
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.DefaultLayout, validation.Required),
	)
}

// Resolve returns a copy with every directory made absolute relative to root.
func (c SiteConfig) Resolve(root string) SiteConfig {
	abs := func(p string) string {
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(root, p)
	}
	c.ContentDir = abs(c.ContentDir)
	c.LayoutDir = abs(c.LayoutDir)
	c.PartialsDir = abs(c.PartialsDir)
	c.OutputDir = abs(c.OutputDir)
	c.PublicDir = abs(c.PublicDir)
	return c
}

// CacheConfig holds the persistent build cache settings.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// WatchConfig tunes the watch loop.
type WatchConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.QueueSize, validation.Min(1)),
	)
}

// AuthConfig holds authentication configuration for the introspection API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
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
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
			HTTP: HTTPConfig{
				Port: 3000,
			},
		},
		Site: SiteConfig{
			ContentDir:    "content",
			LayoutDir:     "layouts",
			PartialsDir:   "content/_partials",
			OutputDir:     "dist",
			PublicDir:     "public",
			BaseURL:       "/",
			DefaultLayout: "default",
			AuxPartial:    "async",
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    ".xo/cache.db",
		},
		Watch: WatchConfig{
			QueueSize: 64,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
