package insights

import (
	"math"
	"time"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/workspace"
)

// OverloadThreshold is the active project count above which focus is overloaded.
const OverloadThreshold = 5

// Ref identifies a record in a result list.
type Ref struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// GoalProgress is the share of completed projects linked to a goal.
type GoalProgress struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Percent   int    `json:"percent"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// StrategyAnalysis relates goals, projects and tasks.
type StrategyAnalysis struct {
	StalledGoals        []Ref          `json:"stalled_goals"`
	ZombieProjects      []Ref          `json:"zombie_projects"`
	ActiveProjectsCount int            `json:"active_projects_count"`
	ActiveGoalsCount    int            `json:"active_goals_count"`
	ActiveTasksCount    int            `json:"active_tasks_count"`
	Overloaded          bool           `json:"overloaded"`
	FocusScore          int            `json:"focus_score"`
	GoalProgress        []GoalProgress `json:"goal_progress"`
	GeneratedAt         time.Time      `json:"generated_at"`
}

// AnalyzeStrategy runs the cross-entity analysis over a snapshot.
func AnalyzeStrategy(snap *workspace.Snapshot) *StrategyAnalysis {
	activeProjects := filter(snap.Projects, record.IsActiveProject)
	activeGoals := filter(snap.Goals, notCompleted)
	activeTasks := filter(snap.Tasks, notCompleted)

	// Links live on the referencing side only, so each lookup scans it.
	projectGoals := make([][]string, len(snap.Projects))
	for i, p := range snap.Projects {
		projectGoals[i] = goalIDs(p)
	}
	taskProjects := make([][]string, len(activeTasks))
	for i, t := range activeTasks {
		taskProjects[i] = projectIDs(t)
	}

	a := &StrategyAnalysis{
		StalledGoals:        []Ref{},
		ZombieProjects:      []Ref{},
		ActiveProjectsCount: len(activeProjects),
		ActiveGoalsCount:    len(activeGoals),
		ActiveTasksCount:    len(activeTasks),
		Overloaded:          len(activeProjects) > OverloadThreshold,
		FocusScore:          max(0, 100-10*len(activeProjects)),
		GoalProgress:        []GoalProgress{},
	}

	for _, g := range activeGoals {
		stalled := true
		for _, p := range activeProjects {
			if record.ContainsID(goalIDs(p), g.ID) {
				stalled = false
				break
			}
		}
		if stalled {
			a.StalledGoals = append(a.StalledGoals, ref(g))
		}

		progress := GoalProgress{ID: g.ID, Title: record.Title(g)}
		for i, p := range snap.Projects {
			if !record.ContainsID(projectGoals[i], g.ID) {
				continue
			}
			progress.Total++
			if record.IsCompleted(p) {
				progress.Completed++
			}
		}
		if progress.Total > 0 {
			progress.Percent = int(math.Round(100 * float64(progress.Completed) / float64(progress.Total)))
		}
		a.GoalProgress = append(a.GoalProgress, progress)
	}

	for _, p := range activeProjects {
		zombie := true
		for _, ids := range taskProjects {
			if record.ContainsID(ids, p.ID) {
				zombie = false
				break
			}
		}
		if zombie {
			a.ZombieProjects = append(a.ZombieProjects, ref(p))
		}
	}
	return a
}

func goalIDs(p record.Page) []string {
	return record.FirstRelationIDs(p, record.PropGoal, record.PropGoals)
}

func projectIDs(t record.Page) []string {
	return record.FirstRelationIDs(t, record.PropProject, record.PropProjects)
}

func notCompleted(p record.Page) bool {
	return !record.IsCompleted(p)
}

func filter(pages []record.Page, keep func(record.Page) bool) []record.Page {
	out := make([]record.Page, 0, len(pages))
	for _, p := range pages {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func ref(p record.Page) Ref {
	return Ref{ID: p.ID, Title: record.Title(p), URL: p.URL}
}
