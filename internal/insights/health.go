package insights

import (
	"time"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/workspace"
)

// Issue points at a record that needs a look.
type Issue struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	URL     string   `json:"url,omitempty"`
	Date    string   `json:"date,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// HealthTotals are raw collection counts.
type HealthTotals struct {
	Tasks       int `json:"tasks"`
	ActiveTasks int `json:"active_tasks"`
	Projects    int `json:"projects"`
	Goals       int `json:"goals"`
}

// HealthReport holds the seven issue lists. NeedsAttention counts the first
// five; the two description lists are informational.
type HealthReport struct {
	OrphanedTasks              []Issue      `json:"orphaned_tasks"`
	ProjectsWithoutGoal        []Issue      `json:"projects_without_goal"`
	OverdueTasks               []Issue      `json:"overdue_tasks"`
	OverdueScheduled           []Issue      `json:"overdue_scheduled"`
	MissingFields              []Issue      `json:"missing_fields"`
	MissingDescription         []Issue      `json:"missing_description"`
	ProjectsMissingDescription []Issue      `json:"projects_missing_description"`
	Totals                     HealthTotals `json:"totals"`
	NeedsAttention             int          `json:"needs_attention"`
	GeneratedAt                time.Time    `json:"generated_at"`
}

// AuditHealth runs the diagnostic pass over a snapshot.
func AuditHealth(snap *workspace.Snapshot, today time.Time) *HealthReport {
	r := &HealthReport{
		OrphanedTasks:              []Issue{},
		ProjectsWithoutGoal:        []Issue{},
		OverdueTasks:               []Issue{},
		OverdueScheduled:           []Issue{},
		MissingFields:              []Issue{},
		MissingDescription:         []Issue{},
		ProjectsMissingDescription: []Issue{},
	}
	loc := today.Location()

	active := 0
	for _, t := range snap.Tasks {
		if record.IsCompleted(t) {
			continue
		}
		active++

		if !record.HasRelation(t, record.PropProject) && !record.HasRelation(t, record.PropProjects) {
			r.OrphanedTasks = append(r.OrphanedTasks, issue(t))
		}
		if due := record.DueDate(t); isBefore(due, today, loc) {
			i := issue(t)
			i.Date = due
			r.OverdueTasks = append(r.OverdueTasks, i)
		}
		if sched := record.ScheduledDate(t); isBefore(sched, today, loc) {
			i := issue(t)
			i.Date = sched
			r.OverdueScheduled = append(r.OverdueScheduled, i)
		}
		if missing := missingFields(t); len(missing) > 0 {
			i := issue(t)
			i.Missing = missing
			r.MissingFields = append(r.MissingFields, i)
		}
		if record.Description(t) == "" {
			r.MissingDescription = append(r.MissingDescription, issue(t))
		}
	}

	for _, p := range snap.Projects {
		if !record.HasRelation(p, "") {
			r.ProjectsWithoutGoal = append(r.ProjectsWithoutGoal, issue(p))
		}
		if record.Description(p) == "" {
			r.ProjectsMissingDescription = append(r.ProjectsMissingDescription, issue(p))
		}
	}

	r.Totals = HealthTotals{
		Tasks:       len(snap.Tasks),
		ActiveTasks: active,
		Projects:    len(snap.Projects),
		Goals:       len(snap.Goals),
	}
	r.NeedsAttention = len(r.OrphanedTasks) + len(r.ProjectsWithoutGoal) +
		len(r.OverdueTasks) + len(r.OverdueScheduled) + len(r.MissingFields)
	return r
}

func issue(p record.Page) Issue {
	return Issue{ID: p.ID, Title: record.Title(p), URL: p.URL}
}

func missingFields(t record.Page) []string {
	var missing []string
	if !record.HasTitle(t) {
		missing = append(missing, "title")
	}
	if record.Priority(t) == "" {
		missing = append(missing, "priority")
	}
	if record.Status(t) == "" {
		missing = append(missing, "status")
	}
	return missing
}

// isBefore reports whether raw is a date strictly before today.
func isBefore(raw string, today time.Time, loc *time.Location) bool {
	d, ok := record.ParseDate(raw, loc)
	return ok && daysBetween(today, d) < 0
}
