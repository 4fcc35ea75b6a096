package record

import (
	"sort"
	"strings"
	"time"
)

// Untitled is returned by Title when no title-like property resolves.
const Untitled = "Untitled"

// Conventional property names. Workspaces may rename any of them, so every
// accessor below degrades to a zero value when a name is absent or mistyped.
const (
	PropStatus        = "Status"
	PropPriority      = "Priority"
	PropDueDate       = "Due Date"
	PropDue           = "Due"
	PropScheduled     = "Scheduled"
	PropCompletedDate = "Completed Date"
	PropCompleted     = "Completed"
	PropProject       = "Project"
	PropProjects      = "Projects"
	PropGoal          = "Goal"
	PropGoals         = "Goals"
	PropBlocked       = "Blocked?"
	PropEvergreen     = "Evergreen"
)

var (
	// titleCandidates are rich_text properties consulted when the title property is empty.
	titleCandidates = []string{"Title", "Name", "Goal", "Project", "Task"}
	// descriptionCandidates are consulted in order by Description.
	descriptionCandidates = []string{"Description", "Notes", "Summary"}
	// completedMarkers mark a Status name as terminal.
	completedMarkers = []string{"completed", "canceled", "cancelled", "done"}
)

// Title returns the page title. It never returns an empty string.
func Title(p Page) string {
	for _, prop := range p.Properties {
		if prop.Type != TypeTitle {
			continue
		}
		if s := strings.TrimSpace(joinText(prop.Title)); s != "" {
			return s
		}
	}
	for _, name := range titleCandidates {
		key, ok := findKeyFold(p, name)
		if !ok {
			continue
		}
		prop := p.Properties[key]
		if prop.Type != TypeRichText {
			continue
		}
		if s := strings.TrimSpace(joinText(prop.RichText)); s != "" {
			return s
		}
	}
	return Untitled
}

// HasTitle reports whether the page has a real title, not the Untitled sentinel.
func HasTitle(p Page) bool {
	return Title(p) != Untitled
}

// Description returns the first non-empty description-like text, or "".
func Description(p Page) string {
	for _, name := range descriptionCandidates {
		if s := strings.TrimSpace(TextValue(p, name)); s != "" {
			return s
		}
	}
	return ""
}

// TextValue returns the plain text of a title or rich_text property, or "".
func TextValue(p Page, name string) string {
	prop, ok := p.Properties[name]
	if !ok {
		return ""
	}
	switch prop.Type {
	case TypeRichText:
		return joinText(prop.RichText)
	case TypeTitle:
		return joinText(prop.Title)
	}
	return ""
}

// SelectName returns the option name of a status or select property, or "".
func SelectName(p Page, name string) string {
	prop, ok := p.Properties[name]
	if !ok {
		return ""
	}
	switch prop.Type {
	case TypeStatus:
		if prop.Status != nil {
			return prop.Status.Name
		}
	case TypeSelect:
		if prop.Select != nil {
			return prop.Select.Name
		}
	}
	return ""
}

// Status returns the name of the Status property, or "".
func Status(p Page) string {
	return SelectName(p, PropStatus)
}

// Priority returns the name of the Priority property, or "".
func Priority(p Page) string {
	return SelectName(p, PropPriority)
}

// Date returns the start value of a date property, or "".
func Date(p Page, name string) string {
	prop, ok := p.Properties[name]
	if !ok || prop.Type != TypeDate || prop.Date == nil {
		return ""
	}
	return prop.Date.Start
}

// FirstDate returns the first non-empty date among names.
func FirstDate(p Page, names ...string) string {
	for _, name := range names {
		if d := Date(p, name); d != "" {
			return d
		}
	}
	return ""
}

// DueDate resolves the due date under "Due Date", falling back to "Due".
func DueDate(p Page) string {
	return FirstDate(p, PropDueDate, PropDue)
}

// ScheduledDate returns the "Scheduled" date, or "".
func ScheduledDate(p Page) string {
	return Date(p, PropScheduled)
}

// CompletedDate resolves the completion date under "Completed Date", falling back to "Completed".
func CompletedDate(p Page) string {
	return FirstDate(p, PropCompletedDate, PropCompleted)
}

// Checkbox returns the value of a checkbox property; absent or mistyped is false.
func Checkbox(p Page, name string) bool {
	prop, ok := p.Properties[name]
	return ok && prop.Type == TypeCheckbox && prop.Checkbox
}

// Number returns the value of a number property and whether it was set.
func Number(p Page, name string) (float64, bool) {
	prop, ok := p.Properties[name]
	if !ok || prop.Type != TypeNumber || prop.Number == nil {
		return 0, false
	}
	return *prop.Number, true
}

// RelationIDs resolves name by exact match, then by case-insensitive substring
// match against the page's property keys, and returns the referenced ids when
// the resolved property is a relation. Anything else yields an empty slice.
func RelationIDs(p Page, name string) []string {
	key, ok := resolveKey(p, name)
	if !ok {
		return []string{}
	}
	prop := p.Properties[key]
	if prop.Type != TypeRelation {
		return []string{}
	}
	ids := make([]string, 0, len(prop.Relation))
	for _, r := range prop.Relation {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// FirstRelationIDs returns the ids of the first name that resolves to a
// non-empty relation. Later names are not consulted once one matches.
func FirstRelationIDs(p Page, names ...string) []string {
	for _, name := range names {
		if ids := RelationIDs(p, name); len(ids) > 0 {
			return ids
		}
	}
	return []string{}
}

// HasRelation reports whether the named relation is non-empty. With an empty
// name it reports whether any relation property on the page is non-empty.
func HasRelation(p Page, name string) bool {
	if name != "" {
		return len(RelationIDs(p, name)) > 0
	}
	for _, prop := range p.Properties {
		if prop.Type == TypeRelation && len(prop.Relation) > 0 {
			return true
		}
	}
	return false
}

// IsCompleted reports whether the Status name contains a terminal marker.
func IsCompleted(p Page) bool {
	s := strings.ToLower(Status(p))
	if s == "" {
		return false
	}
	for _, m := range completedMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// IsBlocked reads the "Blocked?" checkbox.
func IsBlocked(p Page) bool {
	return Checkbox(p, PropBlocked)
}

// IsEvergreen reads the "Evergreen" checkbox.
func IsEvergreen(p Page) bool {
	return Checkbox(p, PropEvergreen)
}

// SameID compares page ids ignoring case and dashes; the source emits both forms.
func SameID(a, b string) bool {
	return NormalizeID(a) == NormalizeID(b)
}

// NormalizeID lowercases an id and strips dashes.
func NormalizeID(id string) string {
	return strings.ToLower(strings.ReplaceAll(id, "-", ""))
}

// ContainsID reports whether ids holds id under SameID.
func ContainsID(ids []string, id string) bool {
	want := NormalizeID(id)
	for _, candidate := range ids {
		if NormalizeID(candidate) == want {
			return true
		}
	}
	return false
}

// ParseDate parses the date part of an ISO date or datetime string in loc.
// The boolean is false when s is empty or malformed.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(time.DateOnly) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(time.DateOnly, s[:len(time.DateOnly)], loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func joinText(runs []RichText) string {
	if len(runs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.PlainText)
	}
	return b.String()
}

func resolveKey(p Page, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if _, ok := p.Properties[name]; ok {
		return name, true
	}
	needle := strings.ToLower(name)
	for _, key := range sortedKeys(p) {
		if strings.Contains(strings.ToLower(key), needle) {
			return key, true
		}
	}
	return "", false
}

func findKeyFold(p Page, name string) (string, bool) {
	if _, ok := p.Properties[name]; ok {
		return name, true
	}
	for _, key := range sortedKeys(p) {
		if strings.EqualFold(key, name) {
			return key, true
		}
	}
	return "", false
}

// sortedKeys gives fuzzy lookups a deterministic order over the property map.
func sortedKeys(p Page) []string {
	keys := make([]string, 0, len(p.Properties))
	for k := range p.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
