package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/projections"
	"github.com/arkok-lms/curriculum-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD SUMMARY JOB
// ══════════════════════════════════════════════════════════════════════════════

// RebuildSummaryJob rebuilds the daily summary projection from the reward
// ledger. The projection is normally maintained incrementally by event
// handlers; a periodic rebuild from the ledger corrects any drift after
// restarts or missed events.
type RebuildSummaryJob struct {
	studentRepo student.Repository
	eventRepo   reward.EventRepository
	view        *projections.DailySummaryView
	logger      *slog.Logger
	config      RebuildSummaryConfig
}

// RebuildSummaryConfig contains configuration for the rebuild job.
type RebuildSummaryConfig struct {
	// SchoolIDs are the schools whose ledgers feed the projection.
	SchoolIDs []string

	// Lookback bounds how far back ledger entries are replayed.
	Lookback time.Duration

	// PageSize is the student page size when walking a school.
	PageSize int
}

// DefaultRebuildSummaryConfig returns sensible defaults.
func DefaultRebuildSummaryConfig() RebuildSummaryConfig {
	return RebuildSummaryConfig{
		Lookback: 7 * 24 * time.Hour,
		PageSize: 200,
	}
}

// NewRebuildSummaryJob creates a new rebuild job.
func NewRebuildSummaryJob(
	studentRepo student.Repository,
	eventRepo reward.EventRepository,
	view *projections.DailySummaryView,
	logger *slog.Logger,
	config RebuildSummaryConfig,
) *RebuildSummaryJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.PageSize <= 0 {
		config.PageSize = 200
	}
	if config.Lookback <= 0 {
		config.Lookback = 7 * 24 * time.Hour
	}

	return &RebuildSummaryJob{
		studentRepo: studentRepo,
		eventRepo:   eventRepo,
		view:        view,
		logger:      logger,
		config:      config,
	}
}

// Name returns the job name.
func (j *RebuildSummaryJob) Name() string {
	return "rebuild_daily_summary"
}

// Description returns a human-readable description.
func (j *RebuildSummaryJob) Description() string {
	return "Rebuilds the daily summary projection from the reward ledger"
}

// Run executes the rebuild.
func (j *RebuildSummaryJob) Run(ctx context.Context) error {
	now := time.Now().UTC()
	from := now.Add(-j.config.Lookback)

	var ledger []*reward.Event
	for _, schoolID := range j.config.SchoolIDs {
		events, err := j.collectSchoolLedger(ctx, schoolID, from, now)
		if err != nil {
			return fmt.Errorf("failed to collect ledger for school %s: %w", schoolID, err)
		}
		ledger = append(ledger, events...)
	}

	j.view.RebuildFromLedger(ledger, func(t time.Time) string {
		return timeutil.DayOf(t).String()
	})

	j.logger.Info("rebuild_daily_summary job completed",
		"schools", len(j.config.SchoolIDs),
		"ledger_entries", len(ledger),
		"version", j.view.GetVersion(),
	)

	return nil
}

// collectSchoolLedger walks the school's students page by page and
// gathers their ledger entries for the window.
func (j *RebuildSummaryJob) collectSchoolLedger(
	ctx context.Context,
	schoolID string,
	from, to time.Time,
) ([]*reward.Event, error) {
	var ledger []*reward.Event

	opts := student.DefaultListOptions().
		WithLimit(j.config.PageSize).
		WithSort("created_at", false).
		WithInactive()

	for offset := 0; ; offset += j.config.PageSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page, err := j.studentRepo.ListBySchool(ctx, schoolID, opts.WithOffset(offset))
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return ledger, nil
		}

		for _, s := range page {
			events, err := j.eventRepo.ListByStudent(ctx, s.ID, from, to)
			if err != nil {
				return nil, err
			}
			ledger = append(ledger, events...)
		}

		if len(page) < j.config.PageSize {
			return ledger, nil
		}
	}
}
