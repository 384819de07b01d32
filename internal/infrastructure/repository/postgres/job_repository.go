package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/neural-transliterator/internal/core/domain"
)

const schemaLockID int64 = 2026101901

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS transliteration_jobs (
	id TEXT PRIMARY KEY,
	lines JSONB NOT NULL,
	status TEXT NOT NULL,
	results JSONB,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transliteration_jobs_status ON transliteration_jobs(status);
CREATE INDEX IF NOT EXISTS idx_transliteration_jobs_created_at ON transliteration_jobs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	linesJSON, err := json.Marshal(job.Lines)
	if err != nil {
		return fmt.Errorf("marshal lines: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO transliteration_jobs (id, lines, status, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
`,
		job.ID, linesJSON, string(job.Status), job.Error, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, lines, status, results, error_message, created_at, updated_at
FROM transliteration_jobs
WHERE id = $1
`, id)

	var job domain.Job
	var linesRaw, resultsRaw []byte
	var status string

	err := row.Scan(&job.ID, &linesRaw, &status, &resultsRaw, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get job", fmt.Errorf("job %s", id))
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if err := json.Unmarshal(linesRaw, &job.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal lines: %w", err)
	}
	if len(resultsRaw) > 0 {
		if err := json.Unmarshal(resultsRaw, &job.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results: %w", err)
		}
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}

func (r *JobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE transliteration_jobs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return requireAffected(res, "update job status", id)
}

// SaveResults stores the ranked output and marks the job done in one write.
func (r *JobRepository) SaveResults(ctx context.Context, id string, results []domain.SentenceResult) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE transliteration_jobs
SET results = $2, status = $3, error_message = '', updated_at = $4
WHERE id = $1
`, id, resultsJSON, string(domain.JobStatusDone), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save job results: %w", err)
	}
	return requireAffected(res, "save job results", id)
}

func requireAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("job %s", id))
	}
	return nil
}
