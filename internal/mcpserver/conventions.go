package mcpserver

import (
	"fmt"
	"strings"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
)

// ConventionsURI identifies the workspace conventions resource.
const ConventionsURI = "workspace://conventions"

// Conventions renders the property names and status vocabulary the analyses
// read, so an LLM client can create records that will be classified as
// intended.
func Conventions() string {
	var b strings.Builder
	b.WriteString("# Workspace conventions\n\n")
	b.WriteString("Tasks, projects and goals live in three databases. Property names are\n")
	b.WriteString("matched exactly first, then case-insensitively.\n\n")

	b.WriteString("## Properties\n\n")
	for _, p := range []struct{ name, use string }{
		{record.PropStatus, "status or select; drives completion and project category"},
		{record.PropPriority, "select; High, Medium or Low"},
		{record.PropDueDate + " / " + record.PropDue, "date; deadline"},
		{record.PropScheduled, "date; planned work day"},
		{record.PropCompletedDate + " / " + record.PropCompleted, "date; used by the weekly review"},
		{record.PropProject + " / " + record.PropProjects, "relation from task to project"},
		{record.PropGoal + " / " + record.PropGoals, "relation from project to goal"},
		{record.PropBlocked, "checkbox; excludes a project from active counts"},
		{record.PropEvergreen, "checkbox; never reported as a zombie"},
	} {
		fmt.Fprintf(&b, "- `%s`: %s\n", p.name, p.use)
	}

	b.WriteString("\n## Project status categories\n\n")
	for _, group := range record.StatusCategories {
		fmt.Fprintf(&b, "- **%s**: %s\n", group.Category, strings.Join(group.Values, ", "))
	}
	fmt.Fprintf(&b, "\nAny other value classifies as %s. Matching ignores case and surrounding space.\n",
		record.CategoryUnknown)
	return b.String()
}
