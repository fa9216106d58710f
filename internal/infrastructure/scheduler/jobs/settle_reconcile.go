// Package jobs contains implementations of scheduled jobs for the
// curriculum engine: settlement reconciliation and daily summary rebuilds.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
	"github.com/arkok-lms/curriculum-engine/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// SETTLE RECONCILE JOB
// ══════════════════════════════════════════════════════════════════════════════

// SettleReconcileJob finds tasks that were completed but never settled
// and settles them. A task normally settles right after completion; this
// job is the safety net for the cases where the settle call was lost
// (process crash, transient storage error).
//
// The settlement store's conditional mark makes the job safe to run
// concurrently with on-demand settlement: a task settled by someone
// else between listing and settling simply reports Won == false.
type SettleReconcileJob struct {
	// Dependencies
	taskRepo       task.Repository
	settlements    reward.SettlementStore
	eventPublisher shared.EventPublisher
	logger         *slog.Logger

	// Configuration
	config SettleReconcileConfig

	// State (for metrics)
	lastRunStats atomic.Value // *ReconcileStats
}

// SettleReconcileConfig contains configuration for the reconcile job.
type SettleReconcileConfig struct {
	// GracePeriod is how long a completed task may stay unsettled
	// before this job picks it up. Keeps the job from racing the
	// normal settle path right after completion.
	GracePeriod time.Duration

	// BatchSize is the maximum number of tasks settled per run.
	BatchSize int

	// Timeout is the maximum duration for the entire run.
	Timeout time.Duration
}

// DefaultSettleReconcileConfig returns sensible defaults.
func DefaultSettleReconcileConfig() SettleReconcileConfig {
	return SettleReconcileConfig{
		GracePeriod: 2 * time.Minute,
		BatchSize:   100,
		Timeout:     time.Minute,
	}
}

// ReconcileStats contains statistics from a reconcile run.
type ReconcileStats struct {
	StartedAt     time.Time
	CompletedAt   time.Time
	Duration      time.Duration
	Candidates    int
	SettledCount  int
	LostRaces     int
	FailedCount   int
	ExpAwarded    int
	PointsAwarded int
}

// NewSettleReconcileJob creates a new reconcile job.
func NewSettleReconcileJob(
	taskRepo task.Repository,
	settlements reward.SettlementStore,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
	config SettleReconcileConfig,
) *SettleReconcileJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = 2 * time.Minute
	}

	return &SettleReconcileJob{
		taskRepo:       taskRepo,
		settlements:    settlements,
		eventPublisher: eventPublisher,
		logger:         logger,
		config:         config,
	}
}

// Name returns the job name.
func (j *SettleReconcileJob) Name() string {
	return "settle_reconcile"
}

// Description returns a human-readable description.
func (j *SettleReconcileJob) Description() string {
	return "Settles completed tasks whose reward settlement was lost"
}

// Run executes the reconcile job.
func (j *SettleReconcileJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &ReconcileStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	olderThan := startedAt.Add(-j.config.GracePeriod)
	candidates, err := j.taskRepo.ListCompletedUnsettled(ctx, olderThan, j.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list completed unsettled tasks: %w", err)
	}

	stats.Candidates = len(candidates)
	if stats.Candidates == 0 {
		j.finishRun(stats)
		return nil
	}

	j.logger.Info("reconciling unsettled tasks", "count", stats.Candidates)

	for _, rec := range candidates {
		select {
		case <-ctx.Done():
			j.finishRun(stats)
			return ctx.Err()
		default:
		}

		outcome, err := j.settlements.Settle(ctx, reward.SettleParams{
			TaskID:    rec.ID,
			SchoolID:  rec.SchoolID,
			StudentID: rec.StudentID,
			Exp:       rec.RewardExp,
			Points:    rec.RewardPoints,
			At:        time.Now().UTC(),
		})
		if err != nil {
			stats.FailedCount++
			j.logger.Error("failed to settle task",
				"task_id", rec.ID,
				"student_id", rec.StudentID,
				"error", err,
			)
			continue
		}

		if !outcome.Won {
			stats.LostRaces++
			continue
		}

		stats.SettledCount++
		stats.ExpAwarded += rec.RewardExp
		stats.PointsAwarded += rec.RewardPoints

		j.emitSettled(rec, outcome)
	}

	j.finishRun(stats)

	j.logger.Info("settle_reconcile job completed",
		"duration", stats.Duration.String(),
		"candidates", stats.Candidates,
		"settled", stats.SettledCount,
		"lost_races", stats.LostRaces,
		"failed", stats.FailedCount,
	)

	if stats.FailedCount > 0 && stats.SettledCount == 0 {
		return fmt.Errorf("reconcile settled nothing: %d of %d tasks failed",
			stats.FailedCount, stats.Candidates)
	}

	return nil
}

// emitSettled publishes the events a won settlement produces.
func (j *SettleReconcileJob) emitSettled(rec *task.Record, outcome *reward.SettleOutcome) {
	if j.eventPublisher == nil {
		return
	}

	event := shared.NewTaskSettledEvent(rec.StudentID, rec.ID, rec.RewardExp, rec.RewardPoints, outcome.NewExp)
	if err := j.eventPublisher.Publish(event); err != nil {
		j.logger.Warn("failed to publish TaskSettled event",
			"task_id", rec.ID,
			"error", err,
		)
	}

	if outcome.NewLevel != outcome.OldLevel {
		levelUp := shared.NewLevelUpEvent(rec.StudentID, outcome.OldLevel, outcome.NewLevel)
		if err := j.eventPublisher.Publish(levelUp); err != nil {
			j.logger.Warn("failed to publish LevelUp event",
				"student_id", rec.StudentID,
				"error", err,
			)
		}
	}
}

func (j *SettleReconcileJob) finishRun(stats *ReconcileStats) {
	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	j.lastRunStats.Store(stats)
}

// LastRunStats returns statistics from the last reconcile run.
func (j *SettleReconcileJob) LastRunStats() *ReconcileStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*ReconcileStats)
}
