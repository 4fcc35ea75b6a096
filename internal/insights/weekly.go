package insights

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/apperr"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/workspace"
)

// CompletedItem is a record finished during the reviewed week.
type CompletedItem struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	CompletedDate string `json:"completed_date"`
	URL           string `json:"url,omitempty"`
	Priority      string `json:"priority,omitempty"`
}

// WeeklyTotals counts completions per collection.
type WeeklyTotals struct {
	Tasks    int `json:"tasks"`
	Projects int `json:"projects"`
	Goals    int `json:"goals"`
}

// WeeklyReview lists completions within [WeekStart, WeekEnd], both inclusive.
type WeeklyReview struct {
	WeekStart string          `json:"week_start"`
	WeekEnd   string          `json:"week_end"`
	Tasks     []CompletedItem `json:"tasks"`
	Projects  []CompletedItem `json:"projects"`
	Goals     []CompletedItem `json:"goals"`
	Totals    WeeklyTotals    `json:"totals"`
}

// ParseWeekStart validates a YYYY-MM-DD Monday.
func ParseWeekStart(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", apperr.ErrInvalidDate, s)
	}
	if d.Weekday() != time.Monday {
		return time.Time{}, fmt.Errorf("%w: %s is a %s", apperr.ErrNotMonday, d.Format(time.DateOnly), d.Weekday())
	}
	return d, nil
}

// MondayOf returns the Monday starting the ISO week that contains day.
func MondayOf(day time.Time) time.Time {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	iso := int(start.Weekday())
	if iso == 0 {
		iso = 7
	}
	return start.AddDate(0, 0, -(iso - 1))
}

func (s *Service) resolveWeekStart(weekStart string) (time.Time, error) {
	if weekStart == "" {
		return MondayOf(s.Today()), nil
	}
	return ParseWeekStart(weekStart, s.loc)
}

// ReviewWeek filters each collection to records completed within the seven
// days starting at start.
func ReviewWeek(snap *workspace.Snapshot, start time.Time) *WeeklyReview {
	end := start.AddDate(0, 0, 6)
	r := &WeeklyReview{
		WeekStart: start.Format(time.DateOnly),
		WeekEnd:   end.Format(time.DateOnly),
		Tasks:     completedWithin(snap.Tasks, start, end, true),
		Projects:  completedWithin(snap.Projects, start, end, false),
		Goals:     completedWithin(snap.Goals, start, end, false),
	}
	r.Totals = WeeklyTotals{Tasks: len(r.Tasks), Projects: len(r.Projects), Goals: len(r.Goals)}
	return r
}

func completedWithin(pages []record.Page, start, end time.Time, withPriority bool) []CompletedItem {
	loc := start.Location()
	items := []CompletedItem{}
	for _, p := range pages {
		if !record.IsCompleted(p) {
			continue
		}
		raw := record.CompletedDate(p)
		d, ok := record.ParseDate(raw, loc)
		if !ok || daysBetween(start, d) < 0 || daysBetween(d, end) < 0 {
			continue
		}
		item := CompletedItem{ID: p.ID, Title: record.Title(p), CompletedDate: raw, URL: p.URL}
		if withPriority {
			item.Priority = record.Priority(p)
		}
		items = append(items, item)
	}
	slices.SortStableFunc(items, func(a, b CompletedItem) int {
		return strings.Compare(a.CompletedDate, b.CompletedDate)
	})
	return items
}
