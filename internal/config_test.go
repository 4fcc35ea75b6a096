package internal

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/apperr"
	pkgconfig "github.com/WesleySmits/project-manager-bot-sub000/pkg/config"
)

// validConfig returns defaults plus the fields that have none.
func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Notion.Token = "secret"
	cfg.Databases = DatabasesConfig{Tasks: "db-tasks", Projects: "db-projects", Goals: "db-goals"}
	return cfg
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestConfig_DefaultsNeedCredentials(t *testing.T) {
	if err := NewDefaultConfig().Validate(); !errors.Is(err, apperr.ErrConfig) {
		t.Fatalf("defaults err = %v, want ErrConfig", err)
	}
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestConfig_MissingDatabaseIsConfigError(t *testing.T) {
	for _, tc := range []struct {
		name  string
		clear func(*Config)
	}{
		{"tasks", func(c *Config) { c.Databases.Tasks = "" }},
		{"projects", func(c *Config) { c.Databases.Projects = "" }},
		{"goals", func(c *Config) { c.Databases.Goals = "" }},
		{"token", func(c *Config) { c.Notion.Token = "" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.clear(cfg)
			err := cfg.Validate()
			if !errors.Is(err, apperr.ErrConfig) {
				t.Fatalf("err = %v, want ErrConfig", err)
			}
		})
	}
}

func TestConfig_BreakerValidatedOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Notion.Breaker = BreakerConfig{FailureRatio: 2}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled breaker validated: %v", err)
	}
	cfg.Notion.Breaker.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled breaker with bad settings should fail")
	}
	if n := len(validConfig().Notion.Options()); n != 3 {
		t.Errorf("options without breaker = %d, want 3", n)
	}
}

func TestConfig_HistoryIntervalMayBeZero(t *testing.T) {
	cfg := validConfig()
	cfg.History.Interval = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero interval should disable the job, got %v", err)
	}
	cfg.History.Interval = -time.Minute
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative interval should fail")
	}
}

func TestConfig_LoadFromYAML(t *testing.T) {
	t.Setenv("PMBOT_TEST_TOKEN", "from-env")
	path := writeConfig(t, `
app:
  log_level: debug
  http:
    port: 9090
notion:
  token: ${PMBOT_TEST_TOKEN}
  timeout: 5s
databases:
  tasks: t
  projects: p
  goals: g
cache:
  ttl: 90s
history:
  path: /tmp/history.db
  interval: 0s
`)

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Notion.Token != "from-env" {
		t.Errorf("token = %q, want env expansion", cfg.Notion.Token)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.HTTP.Address() != ":9090" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Cache.TTL != 90*time.Second || cfg.Notion.Timeout != 5*time.Second {
		t.Errorf("durations: ttl=%v timeout=%v", cfg.Cache.TTL, cfg.Notion.Timeout)
	}
	if cfg.Notion.BaseURL == "" || cfg.Notion.APIVersion == "" {
		t.Error("defaults lost for keys absent from the file")
	}
	if ids := cfg.Databases.IDs(); ids.Goals != "g" {
		t.Errorf("ids = %+v", ids)
	}
}

func TestConfig_LoadRejectsMissingIDs(t *testing.T) {
	path := writeConfig(t, "notion:\n  token: x\n")
	err := pkgconfig.Load(path, NewDefaultConfig())
	if !errors.Is(err, apperr.ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}
