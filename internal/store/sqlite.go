package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/leadgrid/prospect-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS icp_profiles (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	profile    TEXT NOT NULL,
	active     INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS jobs (
	id              TEXT PRIMARY KEY,
	tenant_id       TEXT NOT NULL,
	icp_id          TEXT,
	name            TEXT,
	total_items     INTEGER NOT NULL DEFAULT 0,
	processed_count INTEGER NOT NULL DEFAULT 0,
	enriched_count  INTEGER NOT NULL DEFAULT 0,
	failed_count    INTEGER NOT NULL DEFAULT 0,
	grades          TEXT NOT NULL DEFAULT '{}',
	status          TEXT NOT NULL DEFAULT 'pending',
	progress_pct    REAL NOT NULL DEFAULT 0,
	started_at      DATETIME,
	completed_at    DATETIME,
	error_message   TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS job_items (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id     TEXT NOT NULL REFERENCES jobs(id),
	legal_name TEXT NOT NULL,
	tax_id     TEXT,
	website    TEXT,
	city       TEXT,
	region     TEXT,
	status     TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS qualified_leads (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id          TEXT NOT NULL REFERENCES jobs(id),
	tenant_id       TEXT NOT NULL,
	legal_name      TEXT NOT NULL,
	tax_id          TEXT,
	website         TEXT,
	city            TEXT,
	region          TEXT,
	emails          TEXT,
	decision_makers TEXT,
	icp_score       INTEGER NOT NULL,
	relevance_score INTEGER NOT NULL,
	total_score     INTEGER NOT NULL,
	grade           TEXT NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_icp_profiles_tenant ON icp_profiles(tenant_id, active);
CREATE INDEX IF NOT EXISTS idx_jobs_tenant ON jobs(tenant_id);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_job_items_job_id ON job_items(job_id);
CREATE INDEX IF NOT EXISTS idx_qualified_leads_job_id ON qualified_leads(job_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertICP(ctx context.Context, icp model.ICPProfile) error {
	if icp.ID == "" {
		icp.ID = uuid.New().String()
	}

	profileJSON, err := json.Marshal(icp)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal icp")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert icp")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`UPDATE icp_profiles SET active = 0 WHERE tenant_id = ?`,
		icp.TenantID,
	); err != nil {
		return eris.Wrap(err, "sqlite: deactivate icps")
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO icp_profiles (id, tenant_id, profile, active, created_at) VALUES (?, ?, ?, 1, ?)`,
		icp.ID, icp.TenantID, string(profileJSON), time.Now().UTC(),
	); err != nil {
		return eris.Wrap(err, "sqlite: insert icp")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit upsert icp")
}

func (s *SQLiteStore) GetActiveICP(ctx context.Context, tenantID string) (*model.ICPProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT profile FROM icp_profiles
		 WHERE tenant_id = ? AND active = 1
		 ORDER BY created_at DESC LIMIT 1`,
		tenantID,
	)

	var profileJSON string
	err := row.Scan(&profileJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get active icp")
	}

	var icp model.ICPProfile
	if err := json.Unmarshal([]byte(profileJSON), &icp); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal icp")
	}
	return &icp, nil
}

func (s *SQLiteStore) CreateJob(ctx context.Context, tenantID, icpID, name string, items []model.JobItem) (*model.QualificationJob, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin create job")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO jobs (id, tenant_id, icp_id, name, total_items, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, tenantID, icpID, name, len(items), string(model.JobStatusPending), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO job_items (job_id, legal_name, tax_id, website, city, region, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, item.LegalName, item.TaxID, item.Website, item.City, item.Region, string(model.JobItemPending),
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: insert job item")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit create job")
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

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.QualificationJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, jobID)
	return scanJob(row)
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.QualificationJob, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []any

	if filter.TenantID != "" {
		query += ` AND tenant_id = ?`
		args = append(args, filter.TenantID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.QualificationJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) AcquireJob(ctx context.Context, jobID string) (*model.QualificationJob, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
		string(model.JobStatusProcessing), time.Now().UTC(), jobID, string(model.JobStatusPending),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: acquire job %s", jobID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		// Distinguish a missing job from one held by another runner or
		// already finished.
		if _, err := s.GetJob(ctx, jobID); err != nil {
			return nil, err
		}
		return nil, ErrJobNotRunnable
	}
	return s.GetJob(ctx, jobID)
}

func (s *SQLiteStore) UpdateJobProgress(ctx context.Context, job *model.QualificationJob) error {
	gradesJSON, err := json.Marshal(job.Grades)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal grades")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET processed_count = ?, enriched_count = ?, failed_count = ?, grades = ?, progress_pct = ? WHERE id = ?`,
		job.ProcessedCount, job.EnrichedCount, job.FailedCount, string(gradesJSON), job.ProgressPct, job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job progress %s", job.ID)
	}
	return checkRowsAffected(res, "job", job.ID)
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, job *model.QualificationJob) error {
	gradesJSON, err := json.Marshal(job.Grades)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal grades")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, processed_count = ?, enriched_count = ?, failed_count = ?, grades = ?, progress_pct = 100, completed_at = ? WHERE id = ?`,
		string(model.JobStatusCompleted), job.ProcessedCount, job.EnrichedCount, job.FailedCount, string(gradesJSON), time.Now().UTC(), job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete job %s", job.ID)
	}
	return checkRowsAffected(res, "job", job.ID)
}

func (s *SQLiteStore) FailJob(ctx context.Context, jobID, errorMessage string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, completed_at = ? WHERE id = ?`,
		string(model.JobStatusFailed), errorMessage, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail job %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) ResetJob(ctx context.Context, jobID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin reset job")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, processed_count = 0, enriched_count = 0, failed_count = 0,
		 grades = '{}', progress_pct = 0, started_at = NULL, completed_at = NULL, error_message = NULL
		 WHERE id = ? AND status = ?`,
		string(model.JobStatusPending), jobID, string(model.JobStatusCompleted),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: reset job %s", jobID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		if _, err := s.GetJob(ctx, jobID); err != nil {
			return err
		}
		return ErrJobNotResettable
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM qualified_leads WHERE job_id = ?`, jobID); err != nil {
		return eris.Wrap(err, "sqlite: delete qualified leads")
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE job_items SET status = ? WHERE job_id = ?`,
		string(model.JobItemPending), jobID,
	); err != nil {
		return eris.Wrap(err, "sqlite: reset job items")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit reset job")
}

func (s *SQLiteStore) ListJobItems(ctx context.Context, jobID string, status model.JobItemStatus) ([]model.JobItem, error) {
	query := `SELECT id, job_id, legal_name, tax_id, website, city, region, status FROM job_items WHERE job_id = ?`
	args := []any{jobID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list job items")
	}
	defer rows.Close()

	var items []model.JobItem
	for rows.Next() {
		var it model.JobItem
		if err := rows.Scan(&it.ID, &it.JobID, &it.LegalName, &it.TaxID, &it.Website, &it.City, &it.Region, &it.Status); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job item")
		}
		items = append(items, it)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: list job items iterate")
}

func (s *SQLiteStore) UpdateJobItemStatus(ctx context.Context, itemID int64, status model.JobItemStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE job_items SET status = ? WHERE id = ?`,
		string(status), itemID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job item %d", itemID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) InsertQualifiedLead(ctx context.Context, lead model.QualifiedLead) error {
	emailsJSON, err := json.Marshal(lead.Emails)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal emails")
	}
	dmJSON, err := json.Marshal(lead.DecisionMakers)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal decision makers")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO qualified_leads
		 (job_id, tenant_id, legal_name, tax_id, website, city, region, emails, decision_makers, icp_score, relevance_score, total_score, grade, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.JobID, lead.TenantID, lead.LegalName, lead.TaxID, lead.Website, lead.City, lead.Region,
		string(emailsJSON), string(dmJSON), lead.ICPScore, lead.RelevanceScore, lead.TotalScore, string(lead.Grade), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: insert qualified lead")
}

func (s *SQLiteStore) ListQualifiedLeads(ctx context.Context, jobID string) ([]model.QualifiedLead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, tenant_id, legal_name, tax_id, website, city, region, emails, decision_makers,
		        icp_score, relevance_score, total_score, grade, created_at
		 FROM qualified_leads WHERE job_id = ?
		 ORDER BY total_score DESC, id ASC`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list qualified leads")
	}
	defer rows.Close()

	var leads []model.QualifiedLead
	for rows.Next() {
		var l model.QualifiedLead
		var emailsJSON, dmJSON string
		if err := rows.Scan(&l.ID, &l.JobID, &l.TenantID, &l.LegalName, &l.TaxID, &l.Website, &l.City, &l.Region,
			&emailsJSON, &dmJSON, &l.ICPScore, &l.RelevanceScore, &l.TotalScore, &l.Grade, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan qualified lead")
		}
		if err := json.Unmarshal([]byte(emailsJSON), &l.Emails); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal emails")
		}
		if err := json.Unmarshal([]byte(dmJSON), &l.DecisionMakers); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal decision makers")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list qualified leads iterate")
}

// helpers

const jobColumns = `id, tenant_id, icp_id, name, total_items, processed_count, enriched_count, failed_count,
	grades, status, progress_pct, started_at, completed_at, error_message, created_at`

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*model.QualificationJob, error) {
	var j model.QualificationJob
	var icpID, name, gradesJSON sql.NullString
	var startedAt, completedAt sql.NullTime
	var errorMessage sql.NullString

	err := row.Scan(&j.ID, &j.TenantID, &icpID, &name, &j.TotalItems, &j.ProcessedCount, &j.EnrichedCount,
		&j.FailedCount, &gradesJSON, &j.Status, &j.ProgressPct, &startedAt, &completedAt, &errorMessage, &j.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan job")
	}

	j.ICPID = icpID.String
	j.Name = name.String
	j.ErrorMessage = errorMessage.String
	if startedAt.Valid {
		t := startedAt.Time
		j.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	if gradesJSON.Valid && gradesJSON.String != "" {
		if err := json.Unmarshal([]byte(gradesJSON.String), &j.Grades); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal grades")
		}
	}
	return &j, nil
}
