package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/history"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/insights"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/notion"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
)

// titleProperty is where created tasks store their title.
const titleProperty = "Name"

// CreateTaskRequest is the request body for creating a task.
type CreateTaskRequest struct {
	Title     string `json:"title" example:"Write quarterly report" validate:"required"`
	Priority  string `json:"priority,omitempty" example:"High"`
	Status    string `json:"status,omitempty" example:"To Do"`
	DueDate   string `json:"due_date,omitempty" example:"2026-02-20"`
	Scheduled string `json:"scheduled,omitempty" example:"2026-02-18"`
	ProjectID string `json:"project_id,omitempty" example:"1a2b3c4d-0000-0000-0000-000000000001"`
}

// Validate checks the request fields.
func (r *CreateTaskRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 2000)),
		validation.Field(&r.Priority, validation.Length(0, 100)),
		validation.Field(&r.Status, validation.Length(0, 100)),
		validation.Field(&r.DueDate, validation.Date(time.DateOnly)),
		validation.Field(&r.Scheduled, validation.Date(time.DateOnly)),
	)
}

// Properties converts the request into the write payload. Empty optional
// fields are left out so workspace defaults apply.
func (r *CreateTaskRequest) Properties() notion.Properties {
	props := notion.Properties{titleProperty: record.TitleValue(r.Title)}
	if r.Priority != "" {
		props[record.PropPriority] = record.SelectValue(r.Priority)
	}
	if r.Status != "" {
		props[record.PropStatus] = record.StatusValue(r.Status)
	}
	if r.DueDate != "" {
		props[record.PropDueDate] = record.DateStart(r.DueDate)
	}
	if r.Scheduled != "" {
		props[record.PropScheduled] = record.DateStart(r.Scheduled)
	}
	if r.ProjectID != "" {
		props[record.PropProject] = record.RelationValue(r.ProjectID)
	}
	return props
}

// UpdateStatusRequest is the request body for changing a page's status.
type UpdateStatusRequest struct {
	Status string `json:"status" example:"Done" validate:"required"`
}

// Validate checks the request fields.
func (r *UpdateStatusRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Status, validation.Required, validation.Length(1, 100)),
	)
}

// PageDetail is the normalized view of a single page.
type PageDetail struct {
	ID             string    `json:"id" validate:"required"`
	URL            string    `json:"url"`
	Title          string    `json:"title" validate:"required"`
	Description    string    `json:"description,omitempty"`
	Status         string    `json:"status,omitempty"`
	Category       string    `json:"category"`
	Priority       string    `json:"priority,omitempty"`
	DueDate        string    `json:"due_date,omitempty"`
	Scheduled      string    `json:"scheduled,omitempty"`
	CompletedDate  string    `json:"completed_date,omitempty"`
	Completed      bool      `json:"completed"`
	Projects       []string  `json:"projects"`
	Goals          []string  `json:"goals"`
	CreatedTime    time.Time `json:"created_time"`
	LastEditedTime time.Time `json:"last_edited_time"`
}

func newPageDetail(p record.Page) PageDetail {
	return PageDetail{
		ID:             p.ID,
		URL:            p.URL,
		Title:          record.Title(p),
		Description:    record.Description(p),
		Status:         record.Status(p),
		Category:       string(record.ProjectStatusCategory(p)),
		Priority:       record.Priority(p),
		DueDate:        record.DueDate(p),
		Scheduled:      record.ScheduledDate(p),
		CompletedDate:  record.CompletedDate(p),
		Completed:      record.IsCompleted(p),
		Projects:       record.FirstRelationIDs(p, record.PropProject, record.PropProjects),
		Goals:          record.FirstRelationIDs(p, record.PropGoal, record.PropGoals),
		CreatedTime:    p.CreatedTime,
		LastEditedTime: p.LastEditedTime,
	}
}

// TodayTasksResponse wraps the ranked task list.
type TodayTasksResponse struct {
	Tasks []insights.ScoredTask `json:"tasks" validate:"required"`
	Total int                   `json:"total" example:"10" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []PageDetail `json:"results" validate:"required"`
}

// HistoryResponse wraps stored snapshots, newest first.
type HistoryResponse struct {
	Snapshots []history.Snapshot `json:"snapshots" validate:"required"`
}

// InvalidateResponse reports which cache key was dropped ("" means all).
type InvalidateResponse struct {
	Key string `json:"key"`
}

// statusValueFor builds a Status value of the type p already uses. The API
// rejects a status-typed write to a select property and vice versa.
func statusValueFor(p record.Page, name string) record.PropertyValue {
	if prop, ok := p.Properties[record.PropStatus]; ok && prop.Type == record.TypeSelect {
		return record.SelectValue(name)
	}
	return record.StatusValue(name)
}
