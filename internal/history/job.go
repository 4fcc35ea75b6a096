package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/insights"
)

// Analyzer produces the analyses a snapshot run records.
type Analyzer interface {
	HealthCheck(ctx context.Context) (*insights.HealthReport, error)
	StrategyAnalysis(ctx context.Context) (*insights.StrategyAnalysis, error)
}

// RecordedFunc is called after every run with its stored rows or its error.
type RecordedFunc func(snaps []Snapshot, err error)

// Job records a health and a strategy snapshot on every tick.
type Job struct {
	Store      *Store
	Analyzer   Analyzer
	Interval   time.Duration
	Retention  time.Duration // zero keeps everything
	Logger     *slog.Logger
	OnRecorded RecordedFunc
}

// RunOnce takes and stores one pair of snapshots.
func (j *Job) RunOnce(ctx context.Context) ([]Snapshot, error) {
	report, err := j.Analyzer.HealthCheck(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	analysis, err := j.Analyzer.StrategyAnalysis(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	healthJSON, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode health: %w", err)
	}
	strategyJSON, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode strategy: %w", err)
	}

	now := time.Now()
	return j.Store.Record(
		Snapshot{Kind: KindHealth, TakenAt: now, Headline: report.NeedsAttention, Payload: healthJSON},
		Snapshot{Kind: KindStrategy, TakenAt: now, Headline: analysis.FocusScore, Payload: strategyJSON},
	)
}

// Run records snapshots every Interval until ctx is cancelled. A failed run
// is logged and retried on the next tick.
func (j *Job) Run(ctx context.Context) error {
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if j.Interval <= 0 {
		logger.Info("snapshot job: disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	logger.Info("snapshot job: started", slog.Duration("interval", j.Interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("snapshot job: stopped")
			return nil
		case <-ticker.C:
			snaps, err := j.RunOnce(ctx)
			if err != nil {
				logger.Warn("snapshot job: run failed", slog.String("error", err.Error()))
			} else {
				logger.Debug("snapshot job: recorded", slog.String("run_id", snaps[0].RunID))
				j.prune(logger)
			}
			if j.OnRecorded != nil {
				j.OnRecorded(snaps, err)
			}
		}
	}
}

func (j *Job) prune(logger *slog.Logger) {
	if j.Retention <= 0 {
		return
	}
	n, err := j.Store.Prune(time.Now().Add(-j.Retention))
	if err != nil {
		logger.Warn("snapshot job: prune failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		logger.Debug("snapshot job: pruned", slog.Int64("rows", n))
	}
}
