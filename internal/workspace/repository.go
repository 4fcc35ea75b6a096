// Package workspace exposes the three bulk collections (tasks, projects,
// goals) through the read-through cache and owns the write path, which
// invalidates affected cache keys before reporting success.
package workspace

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/apperr"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/cache"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/notion"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
)

// Collection names double as cache keys.
type Collection string

const (
	Tasks    Collection = "tasks"
	Projects Collection = "projects"
	Goals    Collection = "goals"
)

// Collections lists every bulk collection.
var Collections = []Collection{Tasks, Projects, Goals}

// Valid reports whether c names a known collection.
func (c Collection) Valid() bool {
	switch c {
	case Tasks, Projects, Goals:
		return true
	}
	return false
}

// DatabaseIDs maps each collection to its source identifier.
type DatabaseIDs struct {
	Tasks    string
	Projects string
	Goals    string
}

// For returns the identifier of c.
func (ids DatabaseIDs) For(c Collection) string {
	switch c {
	case Tasks:
		return ids.Tasks
	case Projects:
		return ids.Projects
	case Goals:
		return ids.Goals
	}
	return ""
}

// Source is the subset of the data-source client the repository needs.
type Source interface {
	QueryAll(ctx context.Context, databaseID string) ([]record.Page, error)
	QueryFiltered(ctx context.Context, databaseID string, filter any, sorts []notion.Sort, pageSize int) ([]record.Page, error)
	GetPage(ctx context.Context, pageID string) (*record.Page, error)
	Search(ctx context.Context, query string, limit int) ([]record.Page, error)
	CreatePage(ctx context.Context, databaseID string, props notion.Properties) (*record.Page, error)
	UpdatePage(ctx context.Context, pageID string, props notion.Properties) (*record.Page, error)
}

var _ Source = (*notion.Client)(nil)

// Event kinds passed to a Listener.
const (
	EventCreated     = "page.created"
	EventUpdated     = "page.updated"
	EventInvalidated = "cache.invalidated"
)

// Listener is told about writes and invalidations after they complete.
type Listener func(kind string, data map[string]string)

// Snapshot is the joined result of the three bulk fetches.
type Snapshot struct {
	Tasks    []record.Page
	Projects []record.Page
	Goals    []record.Page
}

// Repository reads collections through the cache and writes through the source.
type Repository struct {
	source   Source
	cache    *cache.Cache
	ids      DatabaseIDs
	logger   *slog.Logger
	listener Listener
}

// New creates a repository. logger may be nil.
func New(source Source, c *cache.Cache, ids DatabaseIDs, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{source: source, cache: c, ids: ids, logger: logger}
}

// SetListener installs the write/invalidation listener.
func (r *Repository) SetListener(l Listener) {
	r.listener = l
}

// Collection returns every page of c, served from cache while fresh.
func (r *Repository) Collection(ctx context.Context, c Collection) ([]record.Page, error) {
	id := r.ids.For(c)
	if id == "" {
		return nil, fmt.Errorf("workspace: unknown collection %q", c)
	}
	return cache.Cached(ctx, r.cache, string(c), func(ctx context.Context) ([]record.Page, error) {
		pages, err := r.source.QueryAll(ctx, id)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("collection fetched",
			slog.String("collection", string(c)),
			slog.Int("pages", len(pages)))
		return pages, nil
	})
}

// Tasks returns the cached task collection.
func (r *Repository) Tasks(ctx context.Context) ([]record.Page, error) {
	return r.Collection(ctx, Tasks)
}

// Projects returns the cached project collection.
func (r *Repository) Projects(ctx context.Context) ([]record.Page, error) {
	return r.Collection(ctx, Projects)
}

// Goals returns the cached goal collection.
func (r *Repository) Goals(ctx context.Context) ([]record.Page, error) {
	return r.Collection(ctx, Goals)
}

// Snapshot fetches the three collections concurrently and waits for all of
// them. The three reads are independent; no cross-collection consistency holds.
func (r *Repository) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Tasks, err = r.Tasks(gCtx)
		return err
	})
	g.Go(func() (err error) {
		snap.Projects, err = r.Projects(gCtx)
		return err
	})
	g.Go(func() (err error) {
		snap.Goals, err = r.Goals(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// QueryFiltered runs an uncached, server-side filtered query over c.
func (r *Repository) QueryFiltered(ctx context.Context, c Collection, filter any, sorts []notion.Sort, pageSize int) ([]record.Page, error) {
	id := r.ids.For(c)
	if id == "" {
		return nil, fmt.Errorf("workspace: unknown collection %q", c)
	}
	return r.source.QueryFiltered(ctx, id, filter, sorts, pageSize)
}

// Page fetches a single page, bypassing the cache.
func (r *Repository) Page(ctx context.Context, id string) (*record.Page, error) {
	return r.source.GetPage(ctx, id)
}

// Search runs a full-text search, bypassing the cache.
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]record.Page, error) {
	return r.source.Search(ctx, query, limit)
}

// CreateRecord creates a page in c and invalidates c's cache entry.
func (r *Repository) CreateRecord(ctx context.Context, c Collection, props notion.Properties) (*record.Page, error) {
	id := r.ids.For(c)
	if id == "" {
		return nil, fmt.Errorf("workspace: unknown collection %q", c)
	}
	p, err := r.source.CreatePage(ctx, id, props)
	if err != nil {
		return nil, err
	}
	r.cache.Invalidate(string(c))
	r.logger.Info("record created",
		slog.String("collection", string(c)),
		slog.String("page_id", p.ID))
	r.notify(EventCreated, map[string]string{"id": p.ID, "collection": string(c)})
	return p, nil
}

// UpdateRecord patches a page. The owning collection of an arbitrary id is
// not known locally, so every collection is invalidated.
func (r *Repository) UpdateRecord(ctx context.Context, pageID string, props notion.Properties) (*record.Page, error) {
	p, err := r.source.UpdatePage(ctx, pageID, props)
	if err != nil {
		return nil, err
	}
	r.cache.Invalidate()
	r.logger.Info("record updated", slog.String("page_id", p.ID))
	r.notify(EventUpdated, map[string]string{"id": p.ID})
	return p, nil
}

// Invalidate drops the cache entry for c, or every entry when c is empty.
func (r *Repository) Invalidate(c Collection) error {
	if c == "" {
		r.cache.Invalidate()
	} else {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown cache key %q", apperr.ErrValidation, c)
		}
		r.cache.Invalidate(string(c))
	}
	r.notify(EventInvalidated, map[string]string{"key": string(c)})
	return nil
}

func (r *Repository) notify(kind string, data map[string]string) {
	if r.listener != nil {
		r.listener(kind, data)
	}
}
