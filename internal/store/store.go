// Package store persists ICP profiles, qualification jobs, job items
// and qualified leads behind a driver-agnostic interface.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/leadgrid/prospect-cli/internal/model"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = eris.New("store: not found")
	// ErrJobNotRunnable is returned by AcquireJob when the job is not in
	// the pending state, including when another runner already holds it.
	ErrJobNotRunnable = eris.New("store: job not runnable")
	// ErrJobNotResettable is returned by ResetJob for jobs that have not
	// completed.
	ErrJobNotResettable = eris.New("store: job not resettable")
)

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	TenantID string          `json:"tenant_id,omitempty"`
	Status   model.JobStatus `json:"status,omitempty"`
	Limit    int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for the prospecting pipeline.
type Store interface {
	// ICP profiles
	UpsertICP(ctx context.Context, icp model.ICPProfile) error
	// GetActiveICP returns the tenant's active profile, or nil when the
	// tenant has none.
	GetActiveICP(ctx context.Context, tenantID string) (*model.ICPProfile, error)

	// Jobs
	CreateJob(ctx context.Context, tenantID, icpID, name string, items []model.JobItem) (*model.QualificationJob, error)
	GetJob(ctx context.Context, jobID string) (*model.QualificationJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.QualificationJob, error)
	// AcquireJob transitions pending → processing and returns the job.
	// The conditional update is the runner lease: a job in any other
	// state yields ErrJobNotRunnable.
	AcquireJob(ctx context.Context, jobID string) (*model.QualificationJob, error)
	UpdateJobProgress(ctx context.Context, job *model.QualificationJob) error
	CompleteJob(ctx context.Context, job *model.QualificationJob) error
	FailJob(ctx context.Context, jobID, errorMessage string) error
	// ResetJob returns a completed job to pending: counters zeroed,
	// timestamps and error cleared, qualified leads deleted, items back
	// to pending. Only valid from completed; ErrJobNotResettable
	// otherwise.
	ResetJob(ctx context.Context, jobID string) error

	// Job items
	ListJobItems(ctx context.Context, jobID string, status model.JobItemStatus) ([]model.JobItem, error)
	UpdateJobItemStatus(ctx context.Context, itemID int64, status model.JobItemStatus) error

	// Qualified leads
	InsertQualifiedLead(ctx context.Context, lead model.QualifiedLead) error
	ListQualifiedLeads(ctx context.Context, jobID string) ([]model.QualifiedLead, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
