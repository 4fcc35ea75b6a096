package insights

import (
	"strings"
	"time"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
)

// Component weights. They sum to 1, so a score stays within [0, 1].
const (
	weightDue       = 0.40
	weightScheduled = 0.30
	weightPriority  = 0.25
	weightStatus    = 0.05
)

// ScoredTask is a task with its urgency score.
type ScoredTask struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	URL       string   `json:"url,omitempty"`
	Score     float64  `json:"score"`
	Priority  string   `json:"priority,omitempty"`
	Status    string   `json:"status,omitempty"`
	DueDate   string   `json:"due_date,omitempty"`
	Scheduled string   `json:"scheduled,omitempty"`
	Projects  []string `json:"projects,omitempty"`
}

// ScoreTask rates a task's urgency relative to today. Higher is more urgent.
// A task without dates and without a recognised priority or status scores 0.
func ScoreTask(task record.Page, today time.Time) float64 {
	loc := today.Location()
	score := weightDue*dueComponent(record.DueDate(task), today, loc) +
		weightScheduled*scheduledComponent(record.ScheduledDate(task), today, loc) +
		weightPriority*priorityComponent(record.Priority(task)) +
		weightStatus*statusComponent(record.Status(task))
	return min(1, max(0, score))
}

func dueComponent(raw string, today time.Time, loc *time.Location) float64 {
	d, ok := record.ParseDate(raw, loc)
	if !ok {
		return 0
	}
	switch days := daysBetween(today, d); {
	case days < 0:
		return 1
	case days == 0:
		return 0.95
	case days <= 2:
		return 0.8
	case days <= 7:
		return 0.5
	default:
		return max(0, 0.3-0.01*float64(days-7))
	}
}

func scheduledComponent(raw string, today time.Time, loc *time.Location) float64 {
	d, ok := record.ParseDate(raw, loc)
	if !ok {
		return 0
	}
	switch days := daysBetween(today, d); {
	case days < 0:
		return 1
	case days == 0:
		return 0.95
	case days == 1:
		return 0.7
	case days <= 3:
		return 0.4
	default:
		return 0
	}
}

func priorityComponent(raw string) float64 {
	p := strings.ToLower(raw)
	switch {
	case containsAny(p, "high", "p1", "urgent"):
		return 1
	case containsAny(p, "medium", "p2"):
		return 0.6
	case containsAny(p, "low", "p3", "p4"):
		return 0.2
	default:
		return 0
	}
}

func statusComponent(raw string) float64 {
	s := strings.ToLower(raw)
	switch {
	case containsAny(s, "in progress", "doing", "active"):
		return 1
	case containsAny(s, "todo", "to do", "not started"):
		return 0.5
	default:
		return 0
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// daysBetween counts calendar days from a to b, ignoring time of day and DST.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

func scoredTask(task record.Page, today time.Time) ScoredTask {
	return ScoredTask{
		ID:        task.ID,
		Title:     record.Title(task),
		URL:       task.URL,
		Score:     ScoreTask(task, today),
		Priority:  record.Priority(task),
		Status:    record.Status(task),
		DueDate:   record.DueDate(task),
		Scheduled: record.ScheduledDate(task),
		Projects:  record.FirstRelationIDs(task, record.PropProject, record.PropProjects),
	}
}
