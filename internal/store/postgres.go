package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/leadgrid/prospect-cli/internal/db"
	"github.com/leadgrid/prospect-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest job-runner operations.
var preparedStatements = map[string]string{
	"get_job":             `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`,
	"acquire_job":         `UPDATE jobs SET status = $1, started_at = $2 WHERE id = $3 AND status = $4`,
	"update_job_progress": `UPDATE jobs SET processed_count = $1, enriched_count = $2, failed_count = $3, grades = $4, progress_pct = $5 WHERE id = $6`,
	"update_item_status":  `UPDATE job_items SET status = $1 WHERE id = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS icp_profiles (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tenant_id  TEXT NOT NULL,
	profile    JSONB NOT NULL,
	active     BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS jobs (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tenant_id       TEXT NOT NULL,
	icp_id          TEXT,
	name            TEXT,
	total_items     INTEGER NOT NULL DEFAULT 0,
	processed_count INTEGER NOT NULL DEFAULT 0,
	enriched_count  INTEGER NOT NULL DEFAULT 0,
	failed_count    INTEGER NOT NULL DEFAULT 0,
	grades          JSONB NOT NULL DEFAULT '{}',
	status          TEXT NOT NULL DEFAULT 'pending',
	progress_pct    DOUBLE PRECISION NOT NULL DEFAULT 0,
	started_at      TIMESTAMPTZ,
	completed_at    TIMESTAMPTZ,
	error_message   TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS job_items (
	id         BIGSERIAL PRIMARY KEY,
	job_id     TEXT NOT NULL REFERENCES jobs(id),
	legal_name TEXT NOT NULL,
	tax_id     TEXT,
	website    TEXT,
	city       TEXT,
	region     TEXT,
	status     TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS qualified_leads (
	id              BIGSERIAL PRIMARY KEY,
	job_id          TEXT NOT NULL REFERENCES jobs(id),
	tenant_id       TEXT NOT NULL,
	legal_name      TEXT NOT NULL,
	tax_id          TEXT,
	website         TEXT,
	city            TEXT,
	region          TEXT,
	emails          JSONB,
	decision_makers JSONB,
	icp_score       INTEGER NOT NULL,
	relevance_score INTEGER NOT NULL,
	total_score     INTEGER NOT NULL,
	grade           TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_icp_profiles_tenant ON icp_profiles(tenant_id, active);
CREATE INDEX IF NOT EXISTS idx_jobs_tenant ON jobs(tenant_id);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_job_items_job_id ON job_items(job_id);
CREATE INDEX IF NOT EXISTS idx_qualified_leads_job_id ON qualified_leads(job_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertICP(ctx context.Context, icp model.ICPProfile) error {
	if icp.ID == "" {
		icp.ID = uuid.New().String()
	}

	profileJSON, err := json.Marshal(icp)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal icp")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin upsert icp")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `UPDATE icp_profiles SET active = false WHERE tenant_id = $1`, icp.TenantID); err != nil {
		return eris.Wrap(err, "postgres: deactivate icps")
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO icp_profiles (id, tenant_id, profile, active, created_at) VALUES ($1, $2, $3, true, $4)
		 ON CONFLICT (id) DO UPDATE SET profile = EXCLUDED.profile, active = true`,
		icp.ID, icp.TenantID, profileJSON, time.Now().UTC(),
	); err != nil {
		return eris.Wrap(err, "postgres: insert icp")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit upsert icp")
}

func (s *PostgresStore) GetActiveICP(ctx context.Context, tenantID string) (*model.ICPProfile, error) {
	var profileJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT profile FROM icp_profiles
		 WHERE tenant_id = $1 AND active = true
		 ORDER BY created_at DESC LIMIT 1`,
		tenantID,
	).Scan(&profileJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get active icp")
	}

	var icp model.ICPProfile
	if err := json.Unmarshal(profileJSON, &icp); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal icp")
	}
	return &icp, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, tenantID, icpID, name string, items []model.JobItem) (*model.QualificationJob, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin create job")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO jobs (id, tenant_id, icp_id, name, total_items, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, tenantID, icpID, name, len(items), string(model.JobStatusPending), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}

	if len(items) > 0 {
		rows := make([][]any, 0, len(items))
		for _, item := range items {
			rows = append(rows, []any{id, item.LegalName, item.TaxID, item.Website, item.City, item.Region, string(model.JobItemPending)})
		}
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"job_items"},
			[]string{"job_id", "legal_name", "tax_id", "website", "city", "region", "status"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: copy job items")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit create job")
	}

	return &model.QualificationJob{
		ID:         id,
		TenantID:   tenantID,
		ICPID:      icpID,
		Name:       name,
		TotalItems: len(items),
		Status:     model.JobStatusPending,
		CreatedAt:  now,
	}, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.QualificationJob, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID)
	return scanJobPg(row)
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.QualificationJob, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []any

	if filter.TenantID != "" {
		args = append(args, filter.TenantID)
		query += ` AND tenant_id = $1`
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.QualificationJob
	for rows.Next() {
		j, err := scanJobPg(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) AcquireJob(ctx context.Context, jobID string) (*model.QualificationJob, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, started_at = $2 WHERE id = $3 AND status = $4`,
		string(model.JobStatusProcessing), time.Now().UTC(), jobID, string(model.JobStatusPending),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: acquire job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetJob(ctx, jobID); err != nil {
			return nil, err
		}
		return nil, ErrJobNotRunnable
	}
	return s.GetJob(ctx, jobID)
}

func (s *PostgresStore) UpdateJobProgress(ctx context.Context, job *model.QualificationJob) error {
	gradesJSON, err := json.Marshal(job.Grades)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal grades")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET processed_count = $1, enriched_count = $2, failed_count = $3, grades = $4, progress_pct = $5 WHERE id = $6`,
		job.ProcessedCount, job.EnrichedCount, job.FailedCount, gradesJSON, job.ProgressPct, job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job progress %s", job.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", job.ID)
	}
	return nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, job *model.QualificationJob) error {
	gradesJSON, err := json.Marshal(job.Grades)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal grades")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, processed_count = $2, enriched_count = $3, failed_count = $4, grades = $5, progress_pct = 100, completed_at = $6 WHERE id = $7`,
		string(model.JobStatusCompleted), job.ProcessedCount, job.EnrichedCount, job.FailedCount, gradesJSON, time.Now().UTC(), job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", job.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", job.ID)
	}
	return nil
}

func (s *PostgresStore) FailJob(ctx context.Context, jobID, errorMessage string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, error_message = $2, completed_at = $3 WHERE id = $4`,
		string(model.JobStatusFailed), errorMessage, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", jobID)
	}
	return nil
}

func (s *PostgresStore) ResetJob(ctx context.Context, jobID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin reset job")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE jobs SET status = $1, processed_count = 0, enriched_count = 0, failed_count = 0,
		 grades = '{}', progress_pct = 0, started_at = NULL, completed_at = NULL, error_message = NULL
		 WHERE id = $2 AND status = $3`,
		string(model.JobStatusPending), jobID, string(model.JobStatusCompleted),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: reset job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetJob(ctx, jobID); err != nil {
			return err
		}
		return ErrJobNotResettable
	}

	if _, err := tx.Exec(ctx, `DELETE FROM qualified_leads WHERE job_id = $1`, jobID); err != nil {
		return eris.Wrap(err, "postgres: delete qualified leads")
	}
	if _, err := tx.Exec(ctx,
		`UPDATE job_items SET status = $1 WHERE job_id = $2`,
		string(model.JobItemPending), jobID,
	); err != nil {
		return eris.Wrap(err, "postgres: reset job items")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit reset job")
}

func (s *PostgresStore) ListJobItems(ctx context.Context, jobID string, status model.JobItemStatus) ([]model.JobItem, error) {
	query := `SELECT id, job_id, legal_name, tax_id, website, city, region, status FROM job_items WHERE job_id = $1`
	args := []any{jobID}
	if status != "" {
		args = append(args, string(status))
		query += ` AND status = $2`
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list job items")
	}
	defer rows.Close()

	var items []model.JobItem
	for rows.Next() {
		var it model.JobItem
		if err := rows.Scan(&it.ID, &it.JobID, &it.LegalName, &it.TaxID, &it.Website, &it.City, &it.Region, &it.Status); err != nil {
			return nil, eris.Wrap(err, "postgres: scan job item")
		}
		items = append(items, it)
	}
	return items, eris.Wrap(rows.Err(), "postgres: list job items iterate")
}

func (s *PostgresStore) UpdateJobItemStatus(ctx context.Context, itemID int64, status model.JobItemStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE job_items SET status = $1 WHERE id = $2`,
		string(status), itemID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job item %d", itemID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) InsertQualifiedLead(ctx context.Context, lead model.QualifiedLead) error {
	emailsJSON, err := json.Marshal(lead.Emails)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal emails")
	}
	dmJSON, err := json.Marshal(lead.DecisionMakers)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal decision makers")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO qualified_leads
		 (job_id, tenant_id, legal_name, tax_id, website, city, region, emails, decision_makers, icp_score, relevance_score, total_score, grade, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		lead.JobID, lead.TenantID, lead.LegalName, lead.TaxID, lead.Website, lead.City, lead.Region,
		emailsJSON, dmJSON, lead.ICPScore, lead.RelevanceScore, lead.TotalScore, string(lead.Grade), time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: insert qualified lead")
}

func (s *PostgresStore) ListQualifiedLeads(ctx context.Context, jobID string) ([]model.QualifiedLead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, tenant_id, legal_name, tax_id, website, city, region, emails, decision_makers,
		        icp_score, relevance_score, total_score, grade, created_at
		 FROM qualified_leads WHERE job_id = $1
		 ORDER BY total_score DESC, id ASC`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list qualified leads")
	}
	defer rows.Close()

	var leads []model.QualifiedLead
	for rows.Next() {
		var l model.QualifiedLead
		var emailsJSON, dmJSON []byte
		if err := rows.Scan(&l.ID, &l.JobID, &l.TenantID, &l.LegalName, &l.TaxID, &l.Website, &l.City, &l.Region,
			&emailsJSON, &dmJSON, &l.ICPScore, &l.RelevanceScore, &l.TotalScore, &l.Grade, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan qualified lead")
		}
		if len(emailsJSON) > 0 {
			if err := json.Unmarshal(emailsJSON, &l.Emails); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal emails")
			}
		}
		if len(dmJSON) > 0 {
			if err := json.Unmarshal(dmJSON, &l.DecisionMakers); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal decision makers")
			}
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list qualified leads iterate")
}

func scanJobPg(row pgx.Row) (*model.QualificationJob, error) {
	var j model.QualificationJob
	var icpID, name, errorMessage *string
	var gradesJSON []byte
	var startedAt, completedAt *time.Time

	err := row.Scan(&j.ID, &j.TenantID, &icpID, &name, &j.TotalItems, &j.ProcessedCount, &j.EnrichedCount,
		&j.FailedCount, &gradesJSON, &j.Status, &j.ProgressPct, &startedAt, &completedAt, &errorMessage, &j.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan job")
	}

	if icpID != nil {
		j.ICPID = *icpID
	}
	if name != nil {
		j.Name = *name
	}
	if errorMessage != nil {
		j.ErrorMessage = *errorMessage
	}
	j.StartedAt = startedAt
	j.CompletedAt = completedAt
	if len(gradesJSON) > 0 {
		if err := json.Unmarshal(gradesJSON, &j.Grades); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal grades")
		}
	}
	return &j, nil
}

