package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/history"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/insights"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/notion"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/workspace"
)

// Defaults for list endpoints.
const (
	DefaultTodayLimit  = 10
	DefaultSearchLimit = 20
	maxBodyBytes       = 1 << 20
)

// Analyses are the read-only insight operations.
type Analyses interface {
	TodayTasks(ctx context.Context, limit int) ([]insights.ScoredTask, error)
	HealthCheck(ctx context.Context) (*insights.HealthReport, error)
	StrategyAnalysis(ctx context.Context) (*insights.StrategyAnalysis, error)
	WeeklyReview(ctx context.Context, weekStart string) (*insights.WeeklyReview, error)
}

// Records reads and writes individual pages.
type Records interface {
	Page(ctx context.Context, id string) (*record.Page, error)
	Search(ctx context.Context, query string, limit int) ([]record.Page, error)
	CreateRecord(ctx context.Context, c workspace.Collection, props notion.Properties) (*record.Page, error)
	UpdateRecord(ctx context.Context, pageID string, props notion.Properties) (*record.Page, error)
	Invalidate(c workspace.Collection) error
}

// History lists stored snapshots.
type History interface {
	List(kind string, limit int) ([]history.Snapshot, error)
}

var (
	_ Analyses = (*insights.Service)(nil)
	_ Records  = (*workspace.Repository)(nil)
	_ History  = (*history.Store)(nil)
)

// Handler holds API route handlers.
type Handler struct {
	analyses Analyses
	records  Records
	history  History
}

// NewHandler creates a new Handler. hist may be nil when snapshots are disabled.
func NewHandler(analyses Analyses, records Records, hist History) *Handler {
	return &Handler{analyses: analyses, records: records, history: hist}
}

// TodayTasks handles GET /api/tasks/today.
//
//	@Summary		Open tasks ranked by urgency
//	@Tags			tasks
//	@Produce		json
//	@Param			limit	query		int	false	"Max tasks (default 10)"
//	@Success		200		{object}	TodayTasksResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/today [get]
func (h *Handler) TodayTasks(w http.ResponseWriter, r *http.Request) {
	limit := DefaultTodayLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		limit = n
	}
	tasks, err := h.analyses.TodayTasks(r.Context(), limit)
	if err != nil {
		writeError(w, "today tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, TodayTasksResponse{Tasks: tasks, Total: len(tasks)})
}

// HealthCheck handles GET /api/health-check.
//
//	@Summary		Workspace integrity report
//	@Tags			insights
//	@Produce		json
//	@Success		200	{object}	insights.HealthReport
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/health-check [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyses.HealthCheck(r.Context())
	if err != nil {
		writeError(w, "health check", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HealthCheckText handles GET /api/health-check/text.
func (h *Handler) HealthCheckText(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyses.HealthCheck(r.Context())
	if err != nil {
		writeError(w, "health check", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(insights.FormatHealthReport(report)))
}

// Strategy handles GET /api/strategy.
//
//	@Summary		Goal, project and task linkage analysis
//	@Tags			insights
//	@Produce		json
//	@Success		200	{object}	insights.StrategyAnalysis
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/strategy [get]
func (h *Handler) Strategy(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.analyses.StrategyAnalysis(r.Context())
	if err != nil {
		writeError(w, "strategy analysis", err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// WeeklyReview handles GET /api/weekly-review.
//
//	@Summary		Records completed in one ISO week
//	@Tags			insights
//	@Produce		json
//	@Param			week_start	query		string	false	"Monday, YYYY-MM-DD (default: current week)"
//	@Success		200			{object}	insights.WeeklyReview
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/weekly-review [get]
func (h *Handler) WeeklyReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.analyses.WeeklyReview(r.Context(), r.URL.Query().Get("week_start"))
	if err != nil {
		writeError(w, "weekly review", err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// GetPage handles GET /api/pages/{id}.
//
//	@Summary		Get a single page, normalized
//	@Tags			pages
//	@Produce		json
//	@Param			id	path		string	true	"Page id"
//	@Success		200	{object}	PageDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{id} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	p, err := h.records.Page(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get page", err)
		return
	}
	writeJSON(w, http.StatusOK, newPageDetail(*p))
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across the workspace
//	@Tags			pages
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	pages, err := h.records.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	results := make([]PageDetail, len(pages))
	for i, p := range pages {
		results[i] = newPageDetail(p)
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// CreateTask handles POST /api/tasks.
//
//	@Summary		Create a task
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTaskRequest	true	"Task to create"
//	@Success		201		{object}	PageDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks [post]
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	p, err := h.records.CreateRecord(r.Context(), workspace.Tasks, req.Properties())
	if err != nil {
		writeError(w, "create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, newPageDetail(*p))
}

// UpdateStatus handles PATCH /api/pages/{id}/status. The page is read first
// so the write matches the property's type (status or select).
//
//	@Summary		Change a page's status
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Page id"
//	@Param			body	body		UpdateStatusRequest	true	"New status"
//	@Success		200		{object}	PageDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{id}/status [patch]
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	id := chi.URLParam(r, "id")
	current, err := h.records.Page(r.Context(), id)
	if err != nil {
		writeError(w, "update status", err)
		return
	}
	p, err := h.records.UpdateRecord(r.Context(), id, notion.Properties{
		record.PropStatus: statusValueFor(*current, req.Status),
	})
	if err != nil {
		writeError(w, "update status", err)
		return
	}
	writeJSON(w, http.StatusOK, newPageDetail(*p))
}

// InvalidateCache handles POST /api/cache/invalidate.
//
//	@Summary		Drop one cached collection, or all of them
//	@Tags			cache
//	@Produce		json
//	@Param			key	query		string	false	"tasks, projects or goals (default: all)"
//	@Success		200	{object}	InvalidateResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/cache/invalidate [post]
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if err := h.records.Invalidate(workspace.Collection(key)); err != nil {
		writeError(w, "invalidate cache", err)
		return
	}
	writeJSON(w, http.StatusOK, InvalidateResponse{Key: key})
}

// History handles GET /api/history.
//
//	@Summary		Stored analytics snapshots, newest first
//	@Tags			history
//	@Produce		json
//	@Param			kind	query		string	false	"health or strategy"
//	@Param			limit	query		int		false	"Max rows"
//	@Success		200		{object}	HistoryResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusNotFound, errorBody("snapshot history is disabled"))
		return
	}
	kind := r.URL.Query().Get("kind")
	if kind != "" && kind != history.KindHealth && kind != history.KindStrategy {
		writeJSON(w, http.StatusBadRequest, errorBody("kind must be health or strategy"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	snaps, err := h.history.List(kind, limit)
	if err != nil {
		writeError(w, "list history", err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Snapshots: snaps})
}
