package insights

import (
	"fmt"
	"strings"
)

// maxListed caps how many entries of one issue list the text report shows.
const maxListed = 5

// FormatHealthReport renders a report as plain text for chat collaborators.
func FormatHealthReport(r *HealthReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Workspace health: %d issue(s) need attention\n", r.NeedsAttention)
	fmt.Fprintf(&b, "Tasks: %d (%d active), projects: %d, goals: %d\n",
		r.Totals.Tasks, r.Totals.ActiveTasks, r.Totals.Projects, r.Totals.Goals)

	sections := []struct {
		heading string
		issues  []Issue
	}{
		{"Orphaned tasks (no project)", r.OrphanedTasks},
		{"Projects without goal", r.ProjectsWithoutGoal},
		{"Overdue tasks", r.OverdueTasks},
		{"Overdue scheduled tasks", r.OverdueScheduled},
		{"Tasks missing required fields", r.MissingFields},
		{"Tasks missing description", r.MissingDescription},
		{"Projects missing description", r.ProjectsMissingDescription},
	}
	for _, s := range sections {
		if len(s.issues) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d)\n", s.heading, len(s.issues))
		for i, is := range s.issues {
			if i == maxListed {
				fmt.Fprintf(&b, "  ... and %d more\n", len(s.issues)-maxListed)
				break
			}
			b.WriteString("  - ")
			b.WriteString(is.Title)
			if is.Date != "" {
				fmt.Fprintf(&b, " (%s)", is.Date)
			}
			if len(is.Missing) > 0 {
				fmt.Fprintf(&b, " [missing: %s]", strings.Join(is.Missing, ", "))
			}
			b.WriteByte('\n')
		}
	}
	if r.NeedsAttention == 0 {
		b.WriteString("\nAll clear.\n")
	}
	return b.String()
}
