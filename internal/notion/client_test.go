package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/apperr"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/testutil"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveRequest(op string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, fmt.Sprintf("%s:%d", op, status))
}

func pages(n int) []record.Page {
	out := make([]record.Page, n)
	for i := range out {
		out[i] = testutil.NewPage(fmt.Sprintf("page-%03d", i)).Title(fmt.Sprintf("Task %d", i)).Build()
	}
	return out
}

func TestQueryAll_FollowsCursors(t *testing.T) {
	fake := testutil.NewNotion(t)
	fake.SetDatabase("tasks", pages(7)...)
	fake.SetMaxPageSize(3)

	c := New("secret", WithBaseURL(fake.URL()))
	got, err := c.QueryAll(context.Background(), "tasks")
	if err != nil {
		t.Fatalf("QueryAll: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("len = %d, want 7", len(got))
	}
	for i, p := range got {
		if want := fmt.Sprintf("page-%03d", i); p.ID != want {
			t.Errorf("got[%d].ID = %q, want %q (order must be preserved)", i, p.ID, want)
		}
	}
	if q := fake.Queries("tasks"); q != 3 {
		t.Errorf("queries = %d, want 3 pages of results", q)
	}
}

func TestQueryAll_EmptyCollection(t *testing.T) {
	fake := testutil.NewNotion(t)
	fake.SetDatabase("goals")

	c := New("secret", WithBaseURL(fake.URL()))
	got, err := c.QueryAll(context.Background(), "goals")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want empty non-nil slice", got)
	}
}

func TestQuery_HeadersAndPageSizeCap(t *testing.T) {
	fake := testutil.NewNotion(t)
	fake.SetDatabase("tasks", pages(1)...)

	c := New("secret", WithBaseURL(fake.URL()), WithVersion("2022-06-28"))
	if _, err := c.QueryFiltered(context.Background(), "tasks", nil, nil, 500); err != nil {
		t.Fatal(err)
	}

	h := fake.LastHeaders()
	if h.Get("Authorization") != "Bearer secret" {
		t.Errorf("Authorization = %q", h.Get("Authorization"))
	}
	if h.Get("Notion-Version") != "2022-06-28" {
		t.Errorf("Notion-Version = %q", h.Get("Notion-Version"))
	}
	if got := string(fake.LastQuery()["page_size"]); got != "100" {
		t.Errorf("page_size = %s, want capped at 100", got)
	}
}

func TestQueryFiltered_SendsFilterAndSorts(t *testing.T) {
	fake := testutil.NewNotion(t)
	fake.SetDatabase("tasks", pages(2)...)

	c := New("secret", WithBaseURL(fake.URL()))
	filter := map[string]any{"property": "Status", "status": map[string]string{"does_not_equal": "Done"}}
	sorts := []Sort{{Property: "Due Date", Direction: Ascending}}
	if _, err := c.QueryFiltered(context.Background(), "tasks", filter, sorts, 50); err != nil {
		t.Fatal(err)
	}

	q := fake.LastQuery()
	if !strings.Contains(string(q["filter"]), "does_not_equal") {
		t.Errorf("filter not forwarded: %s", q["filter"])
	}
	var gotSorts []Sort
	if err := json.Unmarshal(q["sorts"], &gotSorts); err != nil || len(gotSorts) != 1 || gotSorts[0].Direction != Ascending {
		t.Errorf("sorts = %s (%v)", q["sorts"], err)
	}
	if string(q["page_size"]) != "50" {
		t.Errorf("page_size = %s, want 50", q["page_size"])
	}
}

func TestQuery_UpstreamStatusError(t *testing.T) {
	fake := testutil.NewNotion(t)
	fake.SetDatabase("tasks", pages(1)...)
	fake.FailWith(http.StatusBadGateway)

	c := New("secret", WithBaseURL(fake.URL()))
	_, err := c.QueryAll(context.Background(), "tasks")

	var ue *apperr.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if ue.Status != http.StatusBadGateway || !ue.Retryable() {
		t.Errorf("status=%d retryable=%v", ue.Status, ue.Retryable())
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "Bad Gateway") {
		t.Errorf("error should carry upstream status and text: %v", err)
	}
}

func TestQuery_Timeout(t *testing.T) {
	fake := testutil.NewNotion(t)
	fake.SetDatabase("tasks", pages(1)...)
	fake.Delay(500 * time.Millisecond)

	c := New("secret", WithBaseURL(fake.URL()), WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := c.QueryAll(context.Background(), "tasks")
	if time.Since(start) > 400*time.Millisecond {
		t.Errorf("call was not aborted at the timeout")
	}

	var ue *apperr.UpstreamError
	if !errors.As(err, &ue) || !ue.Timeout {
		t.Fatalf("err = %v, want timeout UpstreamError", err)
	}
	if !apperr.IsRetryable(err) {
		t.Error("timeouts must be retryable")
	}
}

func TestGetPage_NotFound(t *testing.T) {
	fake := testutil.NewNotion(t)
	fake.SetDatabase("tasks")

	c := New("secret", WithBaseURL(fake.URL()))
	_, err := c.GetPage(context.Background(), "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if apperr.IsRetryable(err) {
		t.Error("404 must not be retryable")
	}
}

func TestCreateAndUpdatePage(t *testing.T) {
	fake := testutil.NewNotion(t)
	fake.SetDatabase("tasks")
	c := New("secret", WithBaseURL(fake.URL()))
	ctx := context.Background()

	created, err := c.CreatePage(ctx, "tasks", Properties{
		"Name":               record.TitleValue("Ship it"),
		record.PropPriority:  record.SelectValue("High"),
		record.PropBlocked:   record.CheckboxValue(false),
		record.PropScheduled: record.DateStart("2026-02-18"),
	})
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if record.Title(*created) != "Ship it" || record.Priority(*created) != "High" {
		t.Errorf("created = %+v", created)
	}

	updated, err := c.UpdatePage(ctx, created.ID, Properties{record.PropStatus: record.StatusValue("Done")})
	if err != nil {
		t.Fatalf("UpdatePage: %v", err)
	}
	if !record.IsCompleted(*updated) {
		t.Errorf("updated status = %q", record.Status(*updated))
	}

	got, err := c.GetPage(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if record.Status(*got) != "Done" {
		t.Errorf("GetPage status = %q", record.Status(*got))
	}
}

func TestSearch(t *testing.T) {
	fake := testutil.NewNotion(t)
	fake.SetDatabase("tasks",
		testutil.NewPage("a").Title("Write quarterly report").Build(),
		testutil.NewPage("b").Title("Plan offsite").Build(),
	)
	c := New("secret", WithBaseURL(fake.URL()))
	got, err := c.Search(context.Background(), "report", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("search = %+v", got)
	}
}

func TestObserverAndBreaker(t *testing.T) {
	fake := testutil.NewNotion(t)
	fake.SetDatabase("tasks", pages(1)...)
	fake.FailWith(http.StatusInternalServerError)

	obs := &recordingObserver{}
	c := New("secret",
		WithBaseURL(fake.URL()),
		WithObserver(obs),
		WithBreaker(BreakerSettings{MinRequests: 2, FailureRatio: 0.5, OpenTimeout: time.Minute}),
	)
	ctx := context.Background()

	for range 2 {
		if _, err := c.QueryAll(ctx, "tasks"); err == nil {
			t.Fatal("expected upstream failure")
		}
	}

	fake.FailWith(0)
	_, err := c.QueryAll(ctx, "tasks")
	var ue *apperr.UpstreamError
	if !errors.As(err, &ue) || ue.Status != http.StatusServiceUnavailable || !ue.Retryable() {
		t.Fatalf("open breaker err = %v, want retryable 503", err)
	}
	if fake.Queries("tasks") != 0 {
		t.Errorf("open breaker still reached upstream: %d queries", fake.Queries("tasks"))
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.calls) != 2 || obs.calls[0] != "query:500" {
		t.Errorf("observed calls = %v, want two failed upstream calls only", obs.calls)
	}
}

func TestBreaker_IgnoresCallerErrors(t *testing.T) {
	fake := testutil.NewNotion(t)
	c := New("secret",
		WithBaseURL(fake.URL()),
		WithBreaker(BreakerSettings{MinRequests: 1, FailureRatio: 0.1, OpenTimeout: time.Minute}),
	)
	ctx := context.Background()
	for range 3 {
		if _, err := c.GetPage(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound (breaker must stay closed)", err)
		}
	}
}

func TestBreaker_IgnoresCancellation(t *testing.T) {
	fake := testutil.NewNotion(t)
	fake.SetDatabase("tasks", pages(1)...)
	c := New("secret",
		WithBaseURL(fake.URL()),
		WithBreaker(BreakerSettings{MinRequests: 2, FailureRatio: 0.5, OpenTimeout: time.Minute}),
	)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for range 3 {
		_, err := c.QueryAll(cancelled, "tasks")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
		var ue *apperr.UpstreamError
		if errors.As(err, &ue) {
			t.Fatalf("cancellation reported as upstream error: %v", err)
		}
	}

	got, err := c.QueryAll(context.Background(), "tasks")
	if err != nil {
		t.Fatalf("healthy upstream rejected after cancellations: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}
