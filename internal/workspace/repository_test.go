package workspace

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/apperr"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/cache"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/notion"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/testutil"
)

var testIDs = DatabaseIDs{Tasks: "db-tasks", Projects: "db-projects", Goals: "db-goals"}

func newRepo(t *testing.T) (*Repository, *testutil.Notion) {
	t.Helper()
	fake := testutil.NewNotion(t)
	fake.SetDatabase(testIDs.Tasks,
		testutil.NewPage("t1").Title("Write report").Status("To Do").Build(),
		testutil.NewPage("t2").Title("Review PR").Status("Done").Build(),
	)
	fake.SetDatabase(testIDs.Projects, testutil.NewPage("p1").Title("Launch").Status("Active").Build())
	fake.SetDatabase(testIDs.Goals, testutil.NewPage("g1").Title("Grow").Build())

	client := notion.New("secret", notion.WithBaseURL(fake.URL()))
	return New(client, cache.New(cache.DefaultTTL), testIDs, nil), fake
}

func TestCollection_ServedFromCache(t *testing.T) {
	repo, fake := newRepo(t)
	ctx := context.Background()

	for range 3 {
		tasks, err := repo.Tasks(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(tasks) != 2 {
			t.Fatalf("len = %d, want 2", len(tasks))
		}
	}
	if q := fake.Queries(testIDs.Tasks); q != 1 {
		t.Errorf("queries = %d, want 1", q)
	}
}

func TestSnapshot_FetchesAll(t *testing.T) {
	repo, fake := newRepo(t)
	snap, err := repo.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Tasks) != 2 || len(snap.Projects) != 1 || len(snap.Goals) != 1 {
		t.Errorf("snapshot sizes = %d/%d/%d", len(snap.Tasks), len(snap.Projects), len(snap.Goals))
	}
	for _, id := range []string{testIDs.Tasks, testIDs.Projects, testIDs.Goals} {
		if q := fake.Queries(id); q != 1 {
			t.Errorf("%s queried %d times, want 1", id, q)
		}
	}
}

func TestSnapshot_PropagatesFailure(t *testing.T) {
	repo, fake := newRepo(t)
	fake.FailWith(http.StatusServiceUnavailable)

	_, err := repo.Snapshot(context.Background())
	var ue *apperr.UpstreamError
	if !errors.As(err, &ue) || ue.Status != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want upstream 503", err)
	}

	fake.FailWith(0)
	if _, err := repo.Snapshot(context.Background()); err != nil {
		t.Errorf("failed fetch must not be cached: %v", err)
	}
}

func TestCreateRecord_InvalidatesCollection(t *testing.T) {
	repo, fake := newRepo(t)
	ctx := context.Background()

	if _, err := repo.Snapshot(ctx); err != nil {
		t.Fatal(err)
	}

	var (
		mu     sync.Mutex
		events []string
	)
	repo.SetListener(func(kind string, data map[string]string) {
		mu.Lock()
		events = append(events, kind+":"+data["collection"])
		mu.Unlock()
	})

	created, err := repo.CreateRecord(ctx, Tasks, notion.Properties{
		"Name": record.TitleValue("New task"),
	})
	if err != nil {
		t.Fatal(err)
	}

	tasks, err := repo.Tasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 3 || tasks[2].ID != created.ID {
		t.Errorf("tasks after create = %d, want the new record visible", len(tasks))
	}
	if q := fake.Queries(testIDs.Tasks); q != 2 {
		t.Errorf("task queries = %d, want refetch after invalidation", q)
	}

	if _, err := repo.Projects(ctx); err != nil {
		t.Fatal(err)
	}
	if q := fake.Queries(testIDs.Projects); q != 1 {
		t.Errorf("project queries = %d, other keys must stay cached", q)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 || events[0] != "page.created:tasks" {
		t.Errorf("events = %v", events)
	}
}

func TestUpdateRecord_InvalidatesEverything(t *testing.T) {
	repo, fake := newRepo(t)
	ctx := context.Background()
	if _, err := repo.Snapshot(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := repo.UpdateRecord(ctx, "t1", notion.Properties{record.PropStatus: record.StatusValue("Done")}); err != nil {
		t.Fatal(err)
	}

	snap, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{testIDs.Tasks, testIDs.Projects, testIDs.Goals} {
		if q := fake.Queries(id); q != 2 {
			t.Errorf("%s queried %d times, want 2", id, q)
		}
	}
	if !record.IsCompleted(snap.Tasks[0]) {
		t.Error("update not visible after invalidation")
	}
}

func TestUpdateRecord_FailureLeavesCache(t *testing.T) {
	repo, fake := newRepo(t)
	ctx := context.Background()
	if _, err := repo.Tasks(ctx); err != nil {
		t.Fatal(err)
	}

	_, err := repo.UpdateRecord(ctx, "missing", notion.Properties{record.PropStatus: record.StatusValue("Done")})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := repo.Tasks(ctx); err != nil {
		t.Fatal(err)
	}
	if q := fake.Queries(testIDs.Tasks); q != 1 {
		t.Errorf("queries = %d, failed write must not invalidate", q)
	}
}

func TestInvalidate(t *testing.T) {
	repo, fake := newRepo(t)
	ctx := context.Background()
	if _, err := repo.Snapshot(ctx); err != nil {
		t.Fatal(err)
	}

	if err := repo.Invalidate("nonsense"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unknown key err = %v, want validation error", err)
	}
	if err := repo.Invalidate(Goals); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Snapshot(ctx); err != nil {
		t.Fatal(err)
	}
	if fake.Queries(testIDs.Goals) != 2 || fake.Queries(testIDs.Tasks) != 1 {
		t.Errorf("goals=%d tasks=%d", fake.Queries(testIDs.Goals), fake.Queries(testIDs.Tasks))
	}

	if err := repo.Invalidate(""); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Snapshot(ctx); err != nil {
		t.Fatal(err)
	}
	if fake.Queries(testIDs.Tasks) != 2 {
		t.Errorf("full invalidation did not drop tasks")
	}
}

func TestCollection_UnknownDatabase(t *testing.T) {
	repo, _ := newRepo(t)
	if _, err := repo.Collection(context.Background(), "areas"); err == nil {
		t.Error("expected error for unknown collection")
	}
}
