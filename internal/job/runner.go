// Package job runs qualification jobs: batches of imported companies
// pushed through enrichment and scoring, with progress and grade
// buckets persisted after every item.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leadgrid/prospect-cli/internal/model"
	"github.com/leadgrid/prospect-cli/internal/prospect"
	"github.com/leadgrid/prospect-cli/internal/resilience"
	"github.com/leadgrid/prospect-cli/internal/store"
)

// Qualifier enriches and scores a single job item. Satisfied by
// *prospect.Pipeline.
type Qualifier interface {
	ScoreItem(ctx context.Context, item model.JobItem, icp *model.ICPProfile) (*model.ScoredCompany, model.Diagnostics, error)
}

// qualifyRetry retries a flaky enrichment call once before failing the
// item; permanent errors are not retried.
var qualifyRetry = resilience.Config{Attempts: 2, BaseDelay: 200 * time.Millisecond}

// Runner drives the qualification job state machine. The store's
// AcquireJob lease guarantees at most one runner per job.
type Runner struct {
	store     store.Store
	qualifier Qualifier
}

// NewRunner creates a Runner.
func NewRunner(st store.Store, q Qualifier) *Runner {
	return &Runner{store: st, qualifier: q}
}

// Run executes a pending job to completion. Individual item failures
// are recorded and do not abort the run; a store failure or context
// cancellation fails the job, preserving the progress made so far.
func (r *Runner) Run(ctx context.Context, jobID string) (*model.QualificationJob, error) {
	job, err := r.store.AcquireJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("job_id", jobID), zap.String("tenant_id", job.TenantID))
	log.Info("job acquired", zap.Int("total_items", job.TotalItems))

	icp, err := r.store.GetActiveICP(ctx, job.TenantID)
	if err != nil {
		log.Warn("icp lookup failed, scoring without profile", zap.Error(err))
		icp = nil
	}

	items, err := r.store.ListJobItems(ctx, jobID, model.JobItemPending)
	if err != nil {
		return nil, r.fail(ctx, job, eris.Wrap(err, "job: list items"))
	}

	// Progress writes survive cancellation of the run context so a
	// finished item is never lost; the cancellation itself is honored at
	// the item boundary.
	persistCtx := context.WithoutCancel(ctx)

	for _, item := range items {
		if ctx.Err() != nil {
			return nil, r.fail(ctx, job, eris.Wrap(ctx.Err(), "job: canceled"))
		}

		var (
			scored *model.ScoredCompany
			diag   model.Diagnostics
		)
		err = resilience.Do(ctx, qualifyRetry, "qualify item", func(ctx context.Context) error {
			var qerr error
			scored, diag, qerr = r.qualifier.ScoreItem(ctx, item, icp)
			return qerr
		})
		switch {
		case err != nil:
			log.Warn("item qualification failed", zap.String("company", item.LegalName), zap.Error(err))
			job.FailedCount++
			r.setItemStatus(persistCtx, item.ID, model.JobItemFailed)
		case scored == nil:
			log.Debug("item rejected", zap.String("company", item.LegalName))
			job.FailedCount++
			r.setItemStatus(persistCtx, item.ID, model.JobItemFailed)
		default:
			grade := prospect.Grade(scored.TotalScore)
			job.Grades.Add(grade)
			if diag.EnrichedOK+diag.EnrichedPartial > 0 {
				job.EnrichedCount++
			}
			if err := r.store.InsertQualifiedLead(persistCtx, leadFromScored(job, scored)); err != nil {
				return nil, r.fail(ctx, job, eris.Wrap(err, "job: insert qualified lead"))
			}
			r.setItemStatus(persistCtx, item.ID, model.JobItemProcessed)
		}

		job.ProcessedCount++
		if job.TotalItems > 0 {
			job.ProgressPct = 100 * float64(job.ProcessedCount) / float64(job.TotalItems)
		}
		if err := r.store.UpdateJobProgress(persistCtx, job); err != nil {
			return nil, r.fail(ctx, job, eris.Wrap(err, "job: update progress"))
		}
	}

	if err := r.store.CompleteJob(ctx, job); err != nil {
		return nil, eris.Wrap(err, "job: complete")
	}
	job.Status = model.JobStatusCompleted
	job.ProgressPct = 100
	log.Info("job completed",
		zap.Int("processed", job.ProcessedCount),
		zap.Int("qualified", job.Grades.Total()),
		zap.Int("failed", job.FailedCount),
	)
	return job, nil
}

// Reset returns a completed job to pending for a re-run.
func (r *Runner) Reset(ctx context.Context, jobID string) error {
	return r.store.ResetJob(ctx, jobID)
}

// fail marks the job failed without losing the per-item progress that
// was already persisted. Uses an uncancelable context so the terminal
// state is written even when the run's context is gone.
func (r *Runner) fail(ctx context.Context, job *model.QualificationJob, cause error) error {
	if err := r.store.FailJob(context.WithoutCancel(ctx), job.ID, cause.Error()); err != nil {
		zap.L().Error("could not mark job failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	return cause
}

func (r *Runner) setItemStatus(ctx context.Context, itemID int64, status model.JobItemStatus) {
	if err := r.store.UpdateJobItemStatus(ctx, itemID, status); err != nil {
		zap.L().Warn("could not update item status", zap.Int64("item_id", itemID), zap.Error(err))
	}
}

func leadFromScored(job *model.QualificationJob, scored *model.ScoredCompany) model.QualifiedLead {
	return model.QualifiedLead{
		JobID:          job.ID,
		TenantID:       job.TenantID,
		LegalName:      scored.LegalName,
		TaxID:          scored.TaxID,
		Website:        scored.Website,
		City:           scored.City,
		Region:         scored.Region,
		Emails:         scored.Emails,
		DecisionMakers: scored.DecisionMakers,
		ICPScore:       scored.ICPScore,
		RelevanceScore: scored.RelevanceScore,
		TotalScore:     scored.TotalScore,
		Grade:          prospect.Grade(scored.TotalScore),
	}
}

// Summary is the operator-facing result of a run.
type Summary struct {
	Success        bool   `json:"success"`
	ProcessedCount int    `json:"processed_count"`
	QualifiedCount int    `json:"qualified_count"`
	Message        string `json:"message"`
}

// Summarize formats a completed job for API and CLI output.
func Summarize(job *model.QualificationJob) Summary {
	return Summary{
		Success:        job.Status == model.JobStatusCompleted,
		ProcessedCount: job.ProcessedCount,
		QualifiedCount: job.Grades.Total(),
		Message: fmt.Sprintf("%d de %d empresas processadas (%d qualificadas, %d falhas)",
			job.ProcessedCount, job.TotalItems, job.Grades.Total(), job.FailedCount),
	}
}
