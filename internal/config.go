package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/apperr"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/cache"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/notion"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/workspace"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Notion    NotionConfig      `yaml:"notion"`
	Databases DatabasesConfig   `yaml:"databases"`
	Cache     CacheConfig       `yaml:"cache"`
	History   HistoryConfig     `yaml:"history"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration. Missing credentials or collection
// ids are reported as apperr.ErrConfig.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Notion.Validate(); err != nil {
		return fmt.Errorf("%w: notion: %w", apperr.ErrConfig, err)
	}
	if err := c.Databases.Validate(); err != nil {
		return fmt.Errorf("%w: databases: %w", apperr.ErrConfig, err)
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.History.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
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

// NotionConfig holds the workspace API connection settings.
type NotionConfig struct {
	Token      string        `yaml:"token"`
	APIVersion string        `yaml:"api_version"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	Breaker    BreakerConfig `yaml:"breaker"`
}

// Validate validates the API settings.
func (c *NotionConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Token, validation.Required),
		validation.Field(&c.APIVersion, validation.Required),
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	); err != nil {
		return err
	}
	return c.Breaker.Validate()
}

// Options returns the client options these settings describe.
func (c *NotionConfig) Options() []notion.Option {
	opts := []notion.Option{
		notion.WithBaseURL(c.BaseURL),
		notion.WithVersion(c.APIVersion),
		notion.WithTimeout(c.Timeout),
	}
	if c.Breaker.Enabled {
		opts = append(opts, notion.WithBreaker(c.Breaker.Settings()))
	}
	return opts
}

// BreakerConfig configures the circuit breaker around API calls. It is off
// unless Enabled is set.
type BreakerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MinRequests  uint32        `yaml:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio"`
	OpenTimeout  time.Duration `yaml:"open_timeout"`
	Interval     time.Duration `yaml:"interval"`
}

// Validate validates the breaker configuration.
func (c *BreakerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.MinRequests, validation.Required),
		validation.Field(&c.FailureRatio, validation.Required, validation.Max(1.0)),
		validation.Field(&c.OpenTimeout, validation.Required),
	)
}

// Settings converts the configuration to client settings.
func (c *BreakerConfig) Settings() notion.BreakerSettings {
	return notion.BreakerSettings{
		MinRequests:  c.MinRequests,
		FailureRatio: c.FailureRatio,
		OpenTimeout:  c.OpenTimeout,
		Interval:     c.Interval,
	}
}

// DatabasesConfig names the three collections.
type DatabasesConfig struct {
	Tasks    string `yaml:"tasks"`
	Projects string `yaml:"projects"`
	Goals    string `yaml:"goals"`
}

// Validate validates the database ids.
func (c *DatabasesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Tasks, validation.Required),
		validation.Field(&c.Projects, validation.Required),
		validation.Field(&c.Goals, validation.Required),
	)
}

// IDs returns the ids in the form the repository takes.
func (c *DatabasesConfig) IDs() workspace.DatabaseIDs {
	return workspace.DatabaseIDs{Tasks: c.Tasks, Projects: c.Projects, Goals: c.Goals}
}

// CacheConfig holds the collection cache settings.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
	)
}

// HistoryConfig holds the snapshot store and job settings. A zero Interval
// disables the job; the store stays available for listing.
type HistoryConfig struct {
	Path      string        `yaml:"path"`
	Interval  time.Duration `yaml:"interval"`
	Retention time.Duration `yaml:"retention"`
}

// Validate validates the history configuration.
func (c *HistoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Interval, validation.Min(time.Duration(0))),
		validation.Field(&c.Retention, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
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

// NewDefaultConfig returns a new Config with sensible default values. The
// token and database ids have no defaults.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Notion: NotionConfig{
			APIVersion: notion.DefaultVersion,
			BaseURL:    notion.DefaultBaseURL,
			Timeout:    notion.DefaultTimeout,
			Breaker: BreakerConfig{
				MinRequests:  5,
				FailureRatio: 0.6,
				OpenTimeout:  30 * time.Second,
			},
		},
		Cache: CacheConfig{
			TTL: cache.DefaultTTL,
		},
		History: HistoryConfig{
			Path:      "./pmbot.db",
			Interval:  time.Hour,
			Retention: 30 * 24 * time.Hour,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
