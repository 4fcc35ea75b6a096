package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"
)

const watchedConfig = `
app:
  log_level: %s
  http:
    port: 8080
notion:
  token: secret
databases:
  tasks: t
  projects: p
  goals: g
`

func TestWatchConfig_AppliesValidEdits(t *testing.T) {
	path := writeConfig(t, fmt.Sprintf(watchedConfig, "info"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applied := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- watchConfig(ctx, path, logger, func(c *Config) { applied <- c }) }()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("app: [broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-applied:
		t.Fatalf("invalid config applied: %+v", c.App)
	case <-time.After(500 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte(fmt.Sprintf(watchedConfig, "debug")), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-applied:
		if c.App.LogLevel != slog.LevelDebug {
			t.Errorf("level = %v, want debug", c.App.LogLevel)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("edit not applied")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("watcher returned %v", err)
	}
}
