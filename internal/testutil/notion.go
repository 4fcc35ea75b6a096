package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
)

// Notion is a fake workspace API. Collections are served with real cursor
// pagination; writes mutate the in-memory state.
type Notion struct {
	Server *httptest.Server

	mu          sync.Mutex
	dbs         map[string][]record.Page
	queries     map[string]int
	maxPageSize int
	failStatus  int
	delay       time.Duration
	lastHeaders http.Header
	lastQuery   map[string]json.RawMessage
	created     map[string][]record.Page
}

// NewNotion starts a fake server that is closed when the test ends.
func NewNotion(t *testing.T) *Notion {
	t.Helper()
	n := &Notion{
		dbs:     map[string][]record.Page{},
		queries: map[string]int{},
		created: map[string][]record.Page{},
	}

	r := chi.NewRouter()
	r.Post("/databases/{id}/query", n.query)
	r.Get("/pages/{id}", n.getPage)
	r.Patch("/pages/{id}", n.updatePage)
	r.Post("/pages", n.createPage)
	r.Post("/search", n.search)

	n.Server = httptest.NewServer(n.middleware(r))
	t.Cleanup(n.Server.Close)
	return n
}

// URL is the API root to pass to notion.WithBaseURL.
func (n *Notion) URL() string {
	return n.Server.URL
}

// SetDatabase replaces the contents of a collection.
func (n *Notion) SetDatabase(id string, pages ...record.Page) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dbs[id] = append([]record.Page(nil), pages...)
}

// SetMaxPageSize caps results per response below what clients ask for.
func (n *Notion) SetMaxPageSize(size int) {
	n.mu.Lock()
	n.maxPageSize = size
	n.mu.Unlock()
}

// FailWith makes every request answer status; 0 restores normal service.
func (n *Notion) FailWith(status int) {
	n.mu.Lock()
	n.failStatus = status
	n.mu.Unlock()
}

// Delay stalls every response by d.
func (n *Notion) Delay(d time.Duration) {
	n.mu.Lock()
	n.delay = d
	n.mu.Unlock()
}

// Queries reports how many query requests hit the collection.
func (n *Notion) Queries(id string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.queries[id]
}

// LastHeaders returns the headers of the most recent request.
func (n *Notion) LastHeaders() http.Header {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastHeaders.Clone()
}

// LastQuery returns the raw body fields of the most recent query request.
func (n *Notion) LastQuery() map[string]json.RawMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastQuery
}

// Created returns pages created in the collection through the API.
func (n *Notion) Created(id string) []record.Page {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]record.Page(nil), n.created[id]...)
}

func (n *Notion) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.mu.Lock()
		n.lastHeaders = r.Header.Clone()
		status, delay := n.failStatus, n.delay
		n.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			writeJSON(w, status, map[string]string{
				"object":  "error",
				"code":    "injected_failure",
				"message": http.StatusText(status),
			})
			return
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "unauthorized", "message": "missing token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (n *Notion) query(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	var req struct {
		PageSize    int    `json:"page_size"`
		StartCursor string `json:"start_cursor"`
	}
	if b, err := json.Marshal(raw); err == nil {
		_ = json.Unmarshal(b, &req)
	}

	n.mu.Lock()
	n.queries[id]++
	n.lastQuery = raw
	pages, ok := n.dbs[id]
	size := req.PageSize
	if n.maxPageSize > 0 && (size == 0 || size > n.maxPageSize) {
		size = n.maxPageSize
	}
	n.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "object_not_found", "message": "database " + id})
		return
	}
	if size <= 0 || size > 100 {
		size = 100
	}
	start, _ := strconv.Atoi(req.StartCursor)
	if start > len(pages) {
		start = len(pages)
	}
	end := min(start+size, len(pages))

	resp := map[string]any{
		"object":      "list",
		"results":     pages[start:end],
		"has_more":    end < len(pages),
		"next_cursor": nil,
	}
	if end < len(pages) {
		resp["next_cursor"] = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (n *Notion) getPage(w http.ResponseWriter, r *http.Request) {
	p, ok := n.find(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "object_not_found", "message": "page not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (n *Notion) createPage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Parent struct {
			DatabaseID string `json:"database_id"`
		} `json:"parent"`
		Properties map[string]record.PropertyValue `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	dbID := req.Parent.DatabaseID
	if _, ok := n.dbs[dbID]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "object_not_found", "message": "database " + dbID})
		return
	}
	now := time.Now().UTC()
	p := record.Page{
		ID:             uuid.NewString(),
		CreatedTime:    now,
		LastEditedTime: now,
		Properties:     req.Properties,
	}
	p.URL = "https://www.notion.so/" + record.NormalizeID(p.ID)
	n.dbs[dbID] = append(n.dbs[dbID], p)
	n.created[dbID] = append(n.created[dbID], p)
	writeJSON(w, http.StatusOK, p)
}

func (n *Notion) updatePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Properties map[string]record.PropertyValue `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for dbID, pages := range n.dbs {
		for i := range pages {
			if !record.SameID(pages[i].ID, id) {
				continue
			}
			if pages[i].Properties == nil {
				pages[i].Properties = map[string]record.PropertyValue{}
			}
			for k, v := range req.Properties {
				pages[i].Properties[k] = v
			}
			pages[i].LastEditedTime = time.Now().UTC()
			n.dbs[dbID] = pages
			writeJSON(w, http.StatusOK, pages[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"code": "object_not_found", "message": "page not found"})
}

func (n *Notion) search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query    string `json:"query"`
		PageSize int    `json:"page_size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	q := strings.ToLower(req.Query)

	n.mu.Lock()
	var hits []record.Page
	for _, pages := range n.dbs {
		for _, p := range pages {
			if strings.Contains(strings.ToLower(record.Title(p)), q) {
				hits = append(hits, p)
			}
		}
	}
	n.mu.Unlock()

	if req.PageSize > 0 && len(hits) > req.PageSize {
		hits = hits[:req.PageSize]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"object":      "list",
		"results":     hits,
		"has_more":    false,
		"next_cursor": nil,
	})
}

func (n *Notion) find(id string) (record.Page, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, pages := range n.dbs {
		for _, p := range pages {
			if record.SameID(p.ID, id) {
				return p, true
			}
		}
	}
	return record.Page{}, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
