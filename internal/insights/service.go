// Package insights derives urgency, health, strategy and weekly-review
// results from the cached workspace collections. Every result is built fresh
// per call; only the fetches suspend.
package insights

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/workspace"
)

// Collections is what the analyses read from.
type Collections interface {
	Tasks(ctx context.Context) ([]record.Page, error)
	Snapshot(ctx context.Context) (*workspace.Snapshot, error)
}

var _ Collections = (*workspace.Repository)(nil)

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone that defines "today". Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// Service runs the analyses.
type Service struct {
	source Collections
	now    func() time.Time
	loc    *time.Location
}

// New creates a Service.
func New(source Collections, opts ...Option) *Service {
	s := &Service{source: source, now: time.Now, loc: time.Local}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Today is the start of the current day in the service's zone.
func (s *Service) Today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// TodayTasks scores every open task and returns the limit most urgent ones,
// highest first. Equal scores keep collection order. limit <= 0 returns all.
func (s *Service) TodayTasks(ctx context.Context, limit int) ([]ScoredTask, error) {
	tasks, err := s.source.Tasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("today tasks: %w", err)
	}
	return RankTasks(tasks, s.Today(), limit), nil
}

// RankTasks is the pure part of TodayTasks.
func RankTasks(tasks []record.Page, today time.Time, limit int) []ScoredTask {
	scored := make([]ScoredTask, 0, len(tasks))
	for _, t := range tasks {
		if record.IsCompleted(t) {
			continue
		}
		scored = append(scored, scoredTask(t, today))
	}
	slices.SortStableFunc(scored, func(a, b ScoredTask) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// HealthCheck audits the workspace.
func (s *Service) HealthCheck(ctx context.Context) (*HealthReport, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	report := AuditHealth(snap, s.Today())
	report.GeneratedAt = s.now()
	return report, nil
}

// StrategyAnalysis relates goals, projects and tasks.
func (s *Service) StrategyAnalysis(ctx context.Context) (*StrategyAnalysis, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("strategy analysis: %w", err)
	}
	analysis := AnalyzeStrategy(snap)
	analysis.GeneratedAt = s.now()
	return analysis, nil
}

// WeeklyReview lists what was completed in the week starting weekStart
// (YYYY-MM-DD, a Monday). An empty weekStart means the current week.
func (s *Service) WeeklyReview(ctx context.Context, weekStart string) (*WeeklyReview, error) {
	start, err := s.resolveWeekStart(weekStart)
	if err != nil {
		return nil, err
	}
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("weekly review: %w", err)
	}
	return ReviewWeek(snap, start), nil
}
