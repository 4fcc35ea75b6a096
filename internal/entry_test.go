package internal

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/notion"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/sse"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/testutil"
)

func testRuntime(t *testing.T) (*runtime, *testutil.Notion) {
	t.Helper()

	fake := testutil.NewNotion(t)
	fake.SetDatabase("db-tasks",
		testutil.NewPage("t1").Title("Call plumber").Status("To Do").Priority("High").Build(),
	)
	fake.SetDatabase("db-projects")
	fake.SetDatabase("db-goals")

	cfg := validConfig()
	cfg.Notion.BaseURL = fake.URL()
	cfg.History.Path = testutil.TestDB(t)

	app, err := newApplication([]Option{WithConfig(cfg), WithLogOutput(io.Discard)})
	if err != nil {
		t.Fatal(err)
	}
	rt, err := app.build()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		rt.history.Close()
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	})
	return rt, fake
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestNewApplication_RequiresValidConfig(t *testing.T) {
	if _, err := newApplication(nil); err == nil {
		t.Error("missing config should fail")
	}
	if _, err := newApplication([]Option{WithConfig(NewDefaultConfig())}); err == nil {
		t.Error("config without token or database ids should fail")
	}
}

func TestHTTPHandler_Routes(t *testing.T) {
	rt, _ := testRuntime(t)
	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)
	h := rt.httpHandler(broker)

	for _, target := range []string{"/health/live", "/health/ready", "/api/tasks/today"} {
		if w := get(t, h, target); w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, body %s", target, w.Code, w.Body.String())
		}
	}
	if !strings.Contains(get(t, h, "/api/tasks/today").Body.String(), "Call plumber") {
		t.Error("today tasks did not reach the workspace")
	}

	body := get(t, h, "/metrics").Body.String()
	for _, want := range []string{
		`pmbot_http_requests_total{method="GET",route="/api/tasks/today",status="200"} 2`,
		`pmbot_cache_hits_total{key="tasks"} 1`,
		`pmbot_upstream_requests_total{op="query",status="200"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestHTTPHandler_ReadinessFailsWithoutHistory(t *testing.T) {
	rt, _ := testRuntime(t)
	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)
	h := rt.httpHandler(broker)

	rt.history.Close()
	if w := get(t, h, "/health/ready"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready = %d, want 503", w.Code)
	}
}

func TestHTTPHandler_AuthGuardsAPI(t *testing.T) {
	rt, _ := testRuntime(t)
	rt.cfg.Auth = AuthConfig{Mode: AuthModeToken, Token: "s3cret"}
	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)
	h := rt.httpHandler(broker)

	if w := get(t, h, "/api/strategy"); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated = %d, want 401", w.Code)
	}
	if w := get(t, h, "/health/live"); w.Code != http.StatusOK {
		t.Errorf("liveness must stay open, got %d", w.Code)
	}
}

func TestApplyReload(t *testing.T) {
	rt, _ := testRuntime(t)

	next := validConfig()
	next.App.LogLevel = slog.LevelDebug
	next.Cache.TTL = time.Minute
	rt.applyReload(next)

	if rt.level.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", rt.level.Level())
	}
	if rt.cache.TTL() != time.Minute {
		t.Errorf("ttl = %v, want 1m", rt.cache.TTL())
	}
}

func TestRepositoryEventsReachBroker(t *testing.T) {
	rt, _ := testRuntime(t)
	broker := sse.NewBroker(time.Hour)
	t.Cleanup(broker.Close)
	rt.repo.SetListener(broker.PublishChange)

	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	if _, err := rt.repo.UpdateRecord(context.Background(), "t1",
		notion.Properties{record.PropStatus: record.StatusValue("Done")}); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), sse.EventPageUpdated) {
			t.Errorf("first event = %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event after update")
	}
}
