package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerbot-dev/ledgerbot/constants"
	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
)

// JobRepository persists queue work items. All status transitions are single
// UPDATE statements guarded on the current status, so concurrent schedulers
// cannot double-claim a row.
type JobRepository interface {
	Create(ctx context.Context, j *entity.Job) error
	Get(ctx context.Context, id int64) (*entity.Job, error)
	// SelectEligible returns up to limit pending jobs with attempts left,
	// oldest first.
	SelectEligible(ctx context.Context, limit int) ([]*entity.Job, error)
	// MarkProcessing atomically claims a pending job, incrementing attempts.
	// Returns nil (no error) when the job was claimed by someone else.
	MarkProcessing(ctx context.Context, id int64) (*entity.Job, error)
	MarkCompleted(ctx context.Context, id int64) error
	// RecordFailure stores the error message and moves the job back to
	// pending, or to failed when terminal.
	RecordFailure(ctx context.Context, id int64, message string, terminal bool) error
	// RetryFailed resets up to limit failed jobs to pending with a clean
	// attempt count. limit <= 0 is a no-op.
	RetryFailed(ctx context.Context, limit int) (int64, error)
	CountByStatus(ctx context.Context) (map[constants.JobStatus]int, error)
	// DeleteCompletedBefore removes completed jobs last touched before cutoff.
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type jobRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewJobRepository(db *sql.DB, log *slog.Logger) JobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &jobRepo{db: db, log: log}
}

const jobColumns = `id, type, status, payload, attempts, max_attempts, error_message, created_at, updated_at`

func (r *jobRepo) Create(ctx context.Context, j *entity.Job) error {
	if j.MaxAttempts <= 0 {
		j.MaxAttempts = 3
	}
	if j.Status == "" {
		j.Status = constants.JobStatusPending
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO jobs (type, status, payload, attempts, max_attempts) VALUES (?, ?, ?, ?, ?)`,
		string(j.Type), string(j.Status), string(j.Payload), j.Attempts, j.MaxAttempts,
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	j.ID, _ = res.LastInsertId()
	j.CreatedAt = time.Now().UTC()
	j.UpdatedAt = j.CreatedAt
	r.log.Info("job created", "job_id", j.ID, "type", j.Type)
	return nil
}

func (r *jobRepo) Get(ctx context.Context, id int64) (*entity.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (r *jobRepo) SelectEligible(ctx context.Context, limit int) ([]*entity.Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE status = 'pending' AND attempts < max_attempts
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select eligible jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*entity.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *jobRepo) MarkProcessing(ctx context.Context, id int64) (*entity.Job, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = 'processing', attempts = attempts + 1,
		 updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		 WHERE id = ? AND status = 'pending'`, id)
	if err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// claimed elsewhere or no longer pending
		return nil, nil
	}
	return r.Get(ctx, id)
}

func (r *jobRepo) MarkCompleted(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = 'completed',
		 updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (r *jobRepo) RecordFailure(ctx context.Context, id int64, message string, terminal bool) error {
	status := constants.JobStatusPending
	if terminal {
		status = constants.JobStatusFailed
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?,
		 updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		 WHERE id = ?`, string(status), message, id)
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

func (r *jobRepo) RetryFailed(ctx context.Context, limit int) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = 'pending', attempts = 0, error_message = NULL,
		 updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		 WHERE status = 'failed' AND id IN (
		   SELECT id FROM jobs WHERE status = 'failed' ORDER BY id ASC LIMIT ?
		 )`, limit)
	if err != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.log.Info("failed jobs reset to pending", "count", n)
	}
	return n, nil
}

func (r *jobRepo) CountByStatus(ctx context.Context) (map[constants.JobStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[constants.JobStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[constants.JobStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r *jobRepo) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE status = 'completed' AND updated_at < ?`,
		cutoff.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("delete completed jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.log.Info("completed jobs swept", "count", n)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*entity.Job, error) {
	j := &entity.Job{}
	var typ, status, payload, createdStr, updatedStr string
	var errMsg sql.NullString

	if err := row.Scan(&j.ID, &typ, &status, &payload, &j.Attempts, &j.MaxAttempts,
		&errMsg, &createdStr, &updatedStr); err != nil {
		return nil, err
	}

	j.Type = constants.JobType(typ)
	j.Status = constants.JobStatus(status)
	j.Payload = []byte(payload)
	if errMsg.Valid {
		j.ErrorMessage = &errMsg.String
	}
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return j, nil
}
