package processing

import (
	"context"
	"fmt"
	"time"

	"adspower_sync/internal/notifications"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Steps selects the flows a Job runs.
type Steps struct {
	Balance bool
	Remarks bool
	Mirror  bool
	Cleanup bool
}

// AllSteps runs every flow.
var AllSteps = Steps{Balance: true, Remarks: true, Mirror: true, Cleanup: true}

// Notifier receives the summary of each finished run.
type Notifier interface {
	NotifyRunSummary(ctx context.Context, s notifications.RunSummary)
}

// Job is one sync run over all flows.
type Job struct {
	api      ProfileAPI
	balancer *Balancer
	remarks  *RemarkUpdater
	mirror   *Mirror
	cleaner  *Cleaner
	notifier Notifier
	steps    Steps
}

func NewJob(api ProfileAPI, balancer *Balancer, remarks *RemarkUpdater, mirror *Mirror, cleaner *Cleaner, notifier Notifier, steps Steps) *Job {
	return &Job{
		api:      api,
		balancer: balancer,
		remarks:  remarks,
		mirror:   mirror,
		cleaner:  cleaner,
		notifier: notifier,
		steps:    steps,
	}
}

// Run executes the selected flows in order: balance, remarks, mirror and
// cleanup. Only an unreachable profile API fails the run; flow errors are
// logged and the next flow still runs. Cleanup needs the mirror's valid id
// set and is skipped when that set is incomplete.
func (j *Job) Run(ctx context.Context) (notifications.RunSummary, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := log.Ctx(ctx).With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)
	summary := notifications.RunSummary{RunID: runID}

	logger.Info().Msg("Starting sync run")
	if err := j.api.Status(ctx); err != nil {
		logger.Error().Err(err).Msg("Profile API unavailable, aborting run")
		return summary, fmt.Errorf("profile API status check failed: %w", err)
	}

	if j.steps.Balance && j.balancer != nil {
		res, err := j.balancer.Run(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Quota balancing failed")
		}
		summary.Created = res.Created
		summary.CreateFailures = res.Failed
	}

	if j.steps.Remarks && j.remarks != nil {
		res := j.remarks.Run(ctx)
		summary.RemarksUpdated = res.Updated
		summary.RemarkFailures = res.Failed
	}

	if j.steps.Mirror && j.mirror != nil {
		res := j.mirror.Run(ctx)
		summary.RowsMirrored = res.Written

		if j.steps.Cleanup && j.cleaner != nil {
			if res.Complete {
				cleaned := j.cleaner.Run(ctx, res.Valid)
				summary.RowsDeleted = cleaned.Deleted
				summary.CleanupSkipped = cleaned.Skipped
			} else {
				logger.Warn().Msg("Profile listing incomplete, skipping cleanup")
				summary.CleanupSkipped = true
			}
		}
	}

	summary.Duration = time.Since(start)
	logger.Info().
		Int("created", summary.Created).
		Int("remarks_updated", summary.RemarksUpdated).
		Int("rows_mirrored", summary.RowsMirrored).
		Int("rows_deleted", summary.RowsDeleted).
		Bool("cleanup_skipped", summary.CleanupSkipped).
		Dur("duration", summary.Duration).
		Msg("Sync run finished")

	if j.notifier != nil {
		j.notifier.NotifyRunSummary(ctx, summary)
	}
	return summary, nil
}
