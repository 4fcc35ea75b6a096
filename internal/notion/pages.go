package notion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
)

// Properties is a write payload keyed by property name.
type Properties map[string]record.PropertyValue

type parent struct {
	DatabaseID string `json:"database_id"`
}

type createPageRequest struct {
	Parent     parent     `json:"parent"`
	Properties Properties `json:"properties"`
}

type updatePageRequest struct {
	Properties Properties `json:"properties"`
}

type searchRequest struct {
	Query    string         `json:"query,omitempty"`
	Filter   map[string]any `json:"filter,omitempty"`
	PageSize int            `json:"page_size,omitempty"`
}

// GetPage fetches a single page by id.
func (c *Client) GetPage(ctx context.Context, pageID string) (*record.Page, error) {
	if pageID == "" {
		return nil, fmt.Errorf("get page: id is required")
	}
	var p record.Page
	if err := c.do(ctx, "get_page", http.MethodGet, "/pages/"+url.PathEscape(pageID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Search runs a full-text search over pages and returns at most limit results
// from the first response page.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]record.Page, error) {
	req := searchRequest{
		Query:    query,
		Filter:   map[string]any{"property": "object", "value": "page"},
		PageSize: clampPageSize(limit),
	}
	var resp QueryResponse
	if err := c.do(ctx, "search", http.MethodPost, "/search", req, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return []record.Page{}, nil
	}
	return resp.Results, nil
}

// CreatePage creates a page in the given collection.
func (c *Client) CreatePage(ctx context.Context, databaseID string, props Properties) (*record.Page, error) {
	if databaseID == "" {
		return nil, fmt.Errorf("create page: database id is required")
	}
	req := createPageRequest{
		Parent:     parent{DatabaseID: databaseID},
		Properties: props,
	}
	var p record.Page
	if err := c.do(ctx, "create_page", http.MethodPost, "/pages", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePage patches the given properties of a page.
func (c *Client) UpdatePage(ctx context.Context, pageID string, props Properties) (*record.Page, error) {
	if pageID == "" {
		return nil, fmt.Errorf("update page: id is required")
	}
	var p record.Page
	req := updatePageRequest{Properties: props}
	if err := c.do(ctx, "update_page", http.MethodPatch, "/pages/"+url.PathEscape(pageID), req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
