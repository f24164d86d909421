package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vbelyaev/docgate/internal/core/domain"
)

// JobRepository persists the asynchronous job table. State transitions are
// guarded in SQL so a redelivered or concurrent update can never move a job
// backwards.
type JobRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db, now: time.Now}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	submissionJSON, err := json.Marshal(job.Submission)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO jobs (id, document_id, state, submission, error_code, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		job.ID, job.DocumentID, string(job.State), submissionJSON,
		job.ErrorCode, job.ErrorMessage, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, state, submission, result, error_code, error_message, created_at, updated_at
FROM jobs
WHERE id = $1
`, id)

	var job domain.Job
	var state string
	var submissionRaw, resultRaw []byte

	err := row.Scan(
		&job.ID, &job.DocumentID, &state, &submissionRaw, &resultRaw,
		&job.ErrorCode, &job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "fetch job", fmt.Errorf("job %s", id))
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.State = domain.JobState(state)
	if err := json.Unmarshal(submissionRaw, &job.Submission); err != nil {
		return nil, fmt.Errorf("unmarshal submission: %w", err)
	}
	if len(resultRaw) > 0 {
		var result domain.ProcessingResult
		if err := json.Unmarshal(resultRaw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		job.Result = &result
	}
	return &job, nil
}

func (r *JobRepository) MarkProcessing(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE jobs SET state = 'processing', updated_at = $2
WHERE id = $1 AND state = 'pending'
`, id, r.now().UTC())
	if err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}
	return requireTransition(res, id, domain.JobProcessing)
}

func (r *JobRepository) Complete(ctx context.Context, id string, result *domain.ProcessingResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE jobs SET state = 'completed', result = $2, updated_at = $3
WHERE id = $1 AND state = 'processing'
`, id, resultJSON, r.now().UTC())
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return requireTransition(res, id, domain.JobCompleted)
}

func (r *JobRepository) Fail(ctx context.Context, id, errorCode, errorMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE jobs SET state = 'failed', error_code = $2, error_message = $3, updated_at = $4
WHERE id = $1 AND state IN ('pending', 'processing')
`, id, errorCode, errorMessage, r.now().UTC())
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return requireTransition(res, id, domain.JobFailed)
}

func (r *JobRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE state IN ('pending', 'processing')`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active jobs: %w", err)
	}
	return count, nil
}

func requireTransition(res sql.Result, id string, to domain.JobState) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %s cannot transition to %s", id, to)
	}
	return nil
}
