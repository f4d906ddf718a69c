package job

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgrid/prospect-cli/internal/model"
	"github.com/leadgrid/prospect-cli/internal/store"
)

type stubQualifier struct {
	score func(ctx context.Context, item model.JobItem, icp *model.ICPProfile) (*model.ScoredCompany, model.Diagnostics, error)
}

func (s *stubQualifier) ScoreItem(ctx context.Context, item model.JobItem, icp *model.ICPProfile) (*model.ScoredCompany, model.Diagnostics, error) {
	return s.score(ctx, item, icp)
}

func scoredFor(item model.JobItem, total int) *model.ScoredCompany {
	return &model.ScoredCompany{
		EnrichedCompany: model.EnrichedCompany{
			LegalName: item.LegalName,
			TaxID:     item.TaxID,
		},
		ICPScore:       total - 40,
		RelevanceScore: 40,
		TotalScore:     total,
	}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func createJob(t *testing.T, st store.Store, n int) *model.QualificationJob {
	t.Helper()
	items := make([]model.JobItem, n)
	for i := range items {
		items[i] = model.JobItem{
			LegalName: "Empresa LTDA",
			TaxID:     "11222333000144",
		}
	}
	job, err := st.CreateJob(context.Background(), "t-1", "", "lote", items)
	require.NoError(t, err)
	return job
}

func TestRunCompletesWithGradeBuckets(t *testing.T) {
	st := newTestStore(t)
	job := createJob(t, st, 3)

	totals := []int{130, 100, 50}
	i := 0
	q := &stubQualifier{score: func(ctx context.Context, item model.JobItem, icp *model.ICPProfile) (*model.ScoredCompany, model.Diagnostics, error) {
		s := scoredFor(item, totals[i])
		i++
		return s, model.Diagnostics{EnrichedOK: 1}, nil
	}}

	r := NewRunner(st, q)
	done, err := r.Run(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusCompleted, done.Status)
	assert.Equal(t, 3, done.ProcessedCount)
	assert.Equal(t, 3, done.EnrichedCount)
	assert.Equal(t, 1, done.Grades.APlus)
	assert.Equal(t, 1, done.Grades.A)
	assert.Equal(t, 1, done.Grades.C)
	assert.InDelta(t, 100, done.ProgressPct, 0.01)

	leads, err := st.ListQualifiedLeads(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, leads, 3)
	assert.Equal(t, model.GradeAPlus, leads[0].Grade)

	items, err := st.ListJobItems(context.Background(), job.ID, model.JobItemProcessed)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestRunItemFailureDoesNotAbort(t *testing.T) {
	st := newTestStore(t)
	job := createJob(t, st, 3)

	call := 0
	q := &stubQualifier{score: func(ctx context.Context, item model.JobItem, icp *model.ICPProfile) (*model.ScoredCompany, model.Diagnostics, error) {
		call++
		if call == 2 {
			return nil, model.Diagnostics{}, eris.New("contacts: unexpected status 500")
		}
		return scoredFor(item, 90), model.Diagnostics{EnrichedPartial: 1}, nil
	}}

	r := NewRunner(st, q)
	done, err := r.Run(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusCompleted, done.Status)
	assert.Equal(t, 3, done.ProcessedCount)
	assert.Equal(t, 1, done.FailedCount)
	assert.Equal(t, 2, done.Grades.Total())

	failed, err := st.ListJobItems(context.Background(), job.ID, model.JobItemFailed)
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestRunRejectedItemCountsAsFailed(t *testing.T) {
	st := newTestStore(t)
	job := createJob(t, st, 1)

	q := &stubQualifier{score: func(ctx context.Context, item model.JobItem, icp *model.ICPProfile) (*model.ScoredCompany, model.Diagnostics, error) {
		return nil, model.Diagnostics{Dropped: 1}, nil
	}}

	done, err := NewRunner(st, q).Run(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, done.FailedCount)
	assert.Zero(t, done.Grades.Total())
}

func TestRunSecondRunnerRejected(t *testing.T) {
	st := newTestStore(t)
	job := createJob(t, st, 1)

	_, err := st.AcquireJob(context.Background(), job.ID)
	require.NoError(t, err)

	q := &stubQualifier{score: func(ctx context.Context, item model.JobItem, icp *model.ICPProfile) (*model.ScoredCompany, model.Diagnostics, error) {
		t.Fatal("qualifier should not run")
		return nil, model.Diagnostics{}, nil
	}}

	_, err = NewRunner(st, q).Run(context.Background(), job.ID)
	assert.ErrorIs(t, err, store.ErrJobNotRunnable)
}

func TestRunCancellationFailsJobKeepingProgress(t *testing.T) {
	st := newTestStore(t)
	job := createJob(t, st, 3)

	ctx, cancel := context.WithCancel(context.Background())
	call := 0
	q := &stubQualifier{score: func(ctx context.Context, item model.JobItem, icp *model.ICPProfile) (*model.ScoredCompany, model.Diagnostics, error) {
		call++
		if call == 2 {
			cancel()
		}
		return scoredFor(item, 90), model.Diagnostics{EnrichedOK: 1}, nil
	}}

	_, err := NewRunner(st, q).Run(ctx, job.ID)
	require.Error(t, err)

	got, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Equal(t, 2, got.ProcessedCount, "progress before cancellation survives")
	assert.NotEmpty(t, got.ErrorMessage)
}

func TestResetAfterRunAllowsReRun(t *testing.T) {
	st := newTestStore(t)
	job := createJob(t, st, 2)

	q := &stubQualifier{score: func(ctx context.Context, item model.JobItem, icp *model.ICPProfile) (*model.ScoredCompany, model.Diagnostics, error) {
		return scoredFor(item, 90), model.Diagnostics{EnrichedOK: 1}, nil
	}}
	r := NewRunner(st, q)

	_, err := r.Run(context.Background(), job.ID)
	require.NoError(t, err)

	require.NoError(t, r.Reset(context.Background(), job.ID))

	done, err := r.Run(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, done.ProcessedCount)

	leads, err := st.ListQualifiedLeads(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Len(t, leads, 2, "re-run leads are not duplicated")
}

func TestSummarize(t *testing.T) {
	job := &model.QualificationJob{
		Status:         model.JobStatusCompleted,
		TotalItems:     10,
		ProcessedCount: 10,
		FailedCount:    2,
	}
	job.Grades.Add(model.GradeA)
	job.Grades.Add(model.GradeB)

	s := Summarize(job)
	assert.True(t, s.Success)
	assert.Equal(t, 10, s.ProcessedCount)
	assert.Equal(t, 2, s.QualifiedCount)
	assert.Contains(t, s.Message, "10 de 10")
}
