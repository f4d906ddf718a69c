package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgrid/prospect-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testItems() []model.JobItem {
	return []model.JobItem{
		{LegalName: "Acme Tecnologia LTDA", TaxID: "11222333000144", City: "São Paulo", Region: "SP"},
		{LegalName: "Beta Sistemas LTDA", TaxID: "22333444000155", Website: "beta.com.br"},
	}
}

// --- ICP profiles ---

func TestSQLite_ICP_UpsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	icp := model.ICPProfile{
		ID:       "icp-1",
		TenantID: "t-1",
		Sectors:  []string{"tecnologia"},
		Regions:  []string{"SP"},
	}
	require.NoError(t, st.UpsertICP(ctx, icp))

	got, err := st.GetActiveICP(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, icp.Sectors, got.Sectors)
	assert.Equal(t, icp.Regions, got.Regions)
}

func TestSQLite_ICP_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetActiveICP(context.Background(), "no-such-tenant")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_ICP_NewProfileDeactivatesOld(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertICP(ctx, model.ICPProfile{ID: "icp-old", TenantID: "t-1", Sectors: []string{"varejo"}}))
	require.NoError(t, st.UpsertICP(ctx, model.ICPProfile{ID: "icp-new", TenantID: "t-1", Sectors: []string{"saude"}}))

	got, err := st.GetActiveICP(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "icp-new", got.ID)
}

// --- Jobs ---

func TestSQLite_Job_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "t-1", "icp-1", "importacao agosto", testItems())
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, 2, job.TotalItems)
	assert.Equal(t, model.JobStatusPending, job.Status)

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "importacao agosto", got.Name)
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)

	items, err := st.ListJobItems(ctx, job.ID, "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.JobItemPending, items[0].Status)
}

func TestSQLite_Job_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetJob(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Job_AcquireLease(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "t-1", "", "", testItems())
	require.NoError(t, err)

	acquired, err := st.AcquireJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, acquired.Status)
	require.NotNil(t, acquired.StartedAt)

	// A second runner cannot acquire the same job.
	_, err = st.AcquireJob(ctx, job.ID)
	assert.ErrorIs(t, err, ErrJobNotRunnable)
}

func TestSQLite_Job_AcquireMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.AcquireJob(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Job_ProgressAndComplete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "t-1", "", "", testItems())
	require.NoError(t, err)
	_, err = st.AcquireJob(ctx, job.ID)
	require.NoError(t, err)

	job.ProcessedCount = 1
	job.EnrichedCount = 1
	job.Grades.Add(model.GradeB)
	job.ProgressPct = 50
	require.NoError(t, st.UpdateJobProgress(ctx, job))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ProcessedCount)
	assert.Equal(t, 1, got.Grades.B)
	assert.InDelta(t, 50, got.ProgressPct, 0.01)

	job.ProcessedCount = 2
	job.Grades.Add(model.GradeA)
	require.NoError(t, st.CompleteJob(ctx, job))

	got, err = st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.InDelta(t, 100, got.ProgressPct, 0.01)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, 2, got.Grades.Total())
}

func TestSQLite_Job_FailPreservesProgress(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "t-1", "", "", testItems())
	require.NoError(t, err)
	_, err = st.AcquireJob(ctx, job.ID)
	require.NoError(t, err)

	job.ProcessedCount = 1
	job.ProgressPct = 50
	require.NoError(t, st.UpdateJobProgress(ctx, job))
	require.NoError(t, st.FailJob(ctx, job.ID, "directory unavailable"))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Equal(t, "directory unavailable", got.ErrorMessage)
	assert.Equal(t, 1, got.ProcessedCount)
}

func TestSQLite_Job_List(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	j1, err := st.CreateJob(ctx, "t-1", "", "", testItems())
	require.NoError(t, err)
	_, err = st.CreateJob(ctx, "t-2", "", "", nil)
	require.NoError(t, err)
	_, err = st.AcquireJob(ctx, j1.ID)
	require.NoError(t, err)

	jobs, err := st.ListJobs(ctx, JobFilter{TenantID: "t-1"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, j1.ID, jobs[0].ID)

	jobs, err = st.ListJobs(ctx, JobFilter{Status: model.JobStatusPending})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "t-2", jobs[0].TenantID)
}

// --- Reset ---

func TestSQLite_Job_ResetFromCompleted(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "t-1", "", "", testItems())
	require.NoError(t, err)
	_, err = st.AcquireJob(ctx, job.ID)
	require.NoError(t, err)

	items, err := st.ListJobItems(ctx, job.ID, "")
	require.NoError(t, err)
	require.NoError(t, st.UpdateJobItemStatus(ctx, items[0].ID, model.JobItemProcessed))

	require.NoError(t, st.InsertQualifiedLead(ctx, model.QualifiedLead{
		JobID:     job.ID,
		TenantID:  "t-1",
		LegalName: items[0].LegalName,
		Emails:    []string{"contato@acme.com.br"},
		DecisionMakers: []model.Person{
			{Name: "Maria Souza", Title: "Diretora"},
		},
		ICPScore:       70,
		RelevanceScore: 45,
		TotalScore:     115,
		Grade:          model.GradeA,
	}))

	job.ProcessedCount = 2
	job.Grades.Add(model.GradeA)
	require.NoError(t, st.CompleteJob(ctx, job))

	require.NoError(t, st.ResetJob(ctx, job.ID))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, got.Status)
	assert.Zero(t, got.ProcessedCount)
	assert.Zero(t, got.Grades.Total())
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)
	assert.Empty(t, got.ErrorMessage)

	leads, err := st.ListQualifiedLeads(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, leads)

	pending, err := st.ListJobItems(ctx, job.ID, model.JobItemPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestSQLite_Job_ResetOnlyFromCompleted(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "t-1", "", "", testItems())
	require.NoError(t, err)

	// pending
	assert.ErrorIs(t, st.ResetJob(ctx, job.ID), ErrJobNotResettable)

	// processing
	_, err = st.AcquireJob(ctx, job.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, st.ResetJob(ctx, job.ID), ErrJobNotResettable)

	// failed
	require.NoError(t, st.FailJob(ctx, job.ID, "boom"))
	assert.ErrorIs(t, st.ResetJob(ctx, job.ID), ErrJobNotResettable)

	// missing
	assert.ErrorIs(t, st.ResetJob(ctx, "no-such-job"), ErrNotFound)
}

// --- Qualified leads ---

func TestSQLite_QualifiedLeads_RoundTripOrdered(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "t-1", "", "", testItems())
	require.NoError(t, err)

	require.NoError(t, st.InsertQualifiedLead(ctx, model.QualifiedLead{
		JobID: job.ID, TenantID: "t-1", LegalName: "Menor LTDA", TotalScore: 50, Grade: model.GradeC,
	}))
	require.NoError(t, st.InsertQualifiedLead(ctx, model.QualifiedLead{
		JobID: job.ID, TenantID: "t-1", LegalName: "Maior LTDA", TotalScore: 130, Grade: model.GradeAPlus,
		Emails: []string{"a@maior.com.br", "b@maior.com.br"},
	}))

	leads, err := st.ListQualifiedLeads(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "Maior LTDA", leads[0].LegalName)
	assert.Equal(t, model.GradeAPlus, leads[0].Grade)
	assert.Len(t, leads[0].Emails, 2)
}

func TestSQLite_JobItem_UpdateMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateJobItemStatus(context.Background(), 9999, model.JobItemProcessed)
	assert.ErrorIs(t, err, ErrNotFound)
}
