package record

import "strings"

// StatusCategory is the closed set of project lifecycle categories.
type StatusCategory string

const (
	CategoryActive  StatusCategory = "ACTIVE"
	CategoryReady   StatusCategory = "READY"
	CategoryBacklog StatusCategory = "BACKLOG"
	CategoryParked  StatusCategory = "PARKED"
	CategoryDone    StatusCategory = "DONE"
	CategoryUnknown StatusCategory = "UNKNOWN"
)

// StatusCategories lists the literal (lowercase, trimmed) status values of each
// category in match order. Anything not listed classifies as CategoryUnknown.
var StatusCategories = []struct {
	Category StatusCategory
	Values   []string
}{
	{CategoryActive, []string{"active", "in progress", "doing", "ongoing", "started"}},
	{CategoryReady, []string{"ready", "next", "up next", "to do", "todo", "planned"}},
	{CategoryBacklog, []string{"backlog", "not started", "idea", "ideas", "someday"}},
	{CategoryParked, []string{"parked", "on hold", "paused", "waiting", "blocked"}},
	{CategoryDone, []string{"done", "completed", "complete", "canceled", "cancelled", "archived"}},
}

// Classify maps a raw status value to its category. It is total: unknown or
// empty input yields CategoryUnknown.
func Classify(raw string) StatusCategory {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return CategoryUnknown
	}
	for _, group := range StatusCategories {
		for _, v := range group.Values {
			if s == v {
				return group.Category
			}
		}
	}
	return CategoryUnknown
}

// ProjectStatusCategory classifies the page's Status property, reading a
// status-typed value first and a select-typed value otherwise.
func ProjectStatusCategory(p Page) StatusCategory {
	return Classify(SelectName(p, PropStatus))
}

// IsActiveProject reports an ACTIVE project that is neither blocked nor evergreen.
func IsActiveProject(p Page) bool {
	return ProjectStatusCategory(p) == CategoryActive && !IsBlocked(p) && !IsEvergreen(p)
}
