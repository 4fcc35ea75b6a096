package notion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
)

// Sort directions.
const (
	Ascending  = "ascending"
	Descending = "descending"
)

// Sort orders query results by a property or a page timestamp.
type Sort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Direction string `json:"direction"`
}

// QueryRequest is the body of a collection query.
type QueryRequest struct {
	Filter      any    `json:"filter,omitempty"`
	Sorts       []Sort `json:"sorts,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
}

// QueryResponse is one page of collection results.
type QueryResponse struct {
	Object     string        `json:"object"`
	Results    []record.Page `json:"results"`
	NextCursor *string       `json:"next_cursor"`
	HasMore    bool          `json:"has_more"`
}

// QueryAll returns every page in the collection, in source order.
func (c *Client) QueryAll(ctx context.Context, databaseID string) ([]record.Page, error) {
	return c.QueryFiltered(ctx, databaseID, nil, nil, MaxPageSize)
}

// QueryFiltered returns every page matching filter, sorted server-side.
// pageSize is clamped to (0, MaxPageSize]; filter and sorts may be nil.
//
// The loop ends when the source reports has_more=false. There is no overall
// deadline: each request is bounded by the client timeout only.
func (c *Client) QueryFiltered(ctx context.Context, databaseID string, filter any, sorts []Sort, pageSize int) ([]record.Page, error) {
	req := QueryRequest{
		Filter:   filter,
		Sorts:    sorts,
		PageSize: clampPageSize(pageSize),
	}

	pages := []record.Page{}
	for {
		resp, err := c.Query(ctx, databaseID, req)
		if err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			return pages, nil
		}
		req.StartCursor = *resp.NextCursor
	}
}

// Query fetches a single page of results.
func (c *Client) Query(ctx context.Context, databaseID string, req QueryRequest) (*QueryResponse, error) {
	if databaseID == "" {
		return nil, fmt.Errorf("query: database id is required")
	}
	req.PageSize = clampPageSize(req.PageSize)

	var resp QueryResponse
	path := "/databases/" + url.PathEscape(databaseID) + "/query"
	if err := c.do(ctx, "query", http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func clampPageSize(n int) int {
	if n <= 0 || n > MaxPageSize {
		return MaxPageSize
	}
	return n
}
