package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"anonymizer-service/internal/entity"
)

var ErrNotFound = errors.New("not found")

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, text, language string) (uuid.UUID, error) {
	const q = `
INSERT INTO anonymization_jobs (status, text, language)
VALUES ('pending', $1, $2)
RETURNING id;
`
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, q, text, language).Scan(&id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	const q = `
SELECT id, status, text, language, result, error, error_kind, created_at, updated_at
FROM anonymization_jobs
WHERE id = $1;
`

	var (
		job         entity.Job
		statusText  string
		resultBytes []byte
		errText     *string
		errKind     *string
		createdAt   time.Time
		updatedAt   time.Time
	)

	if err := r.pool.QueryRow(ctx, q, id).Scan(
		&job.ID,
		&statusText,
		&job.Text,
		&job.Language,
		&resultBytes, // NULL => nil
		&errText,     // NULL => nil
		&errKind,     // NULL => nil
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	job.Status = entity.JobStatus(statusText)
	if resultBytes != nil {
		job.Result = json.RawMessage(resultBytes)
	}
	job.Error = errText
	job.ErrorKind = errKind
	job.CreatedAt = createdAt
	job.UpdatedAt = updatedAt

	return &job, nil
}

// ClaimPending moves a job from pending to processing. Returns false when
// the job was already claimed or is terminal; the status guard makes the
// transition exactly-once even with competing workers.
func (r *JobRepository) ClaimPending(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `
UPDATE anonymization_jobs
SET status='processing', updated_at=now()
WHERE id=$1 AND status='pending';
`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetResultDone finishes a processing job with its result. Guarded on
// status='processing' so a terminal row is never rewritten.
func (r *JobRepository) SetResultDone(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	if len(result) == 0 {
		result = json.RawMessage(`[]`)
	}
	const q = `
UPDATE anonymization_jobs
SET status='done', result=$2, error=NULL, error_kind=NULL, updated_at=now()
WHERE id=$1 AND status='processing';
`
	tag, err := r.pool.Exec(ctx, q, id, result)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *JobRepository) SetResultError(ctx context.Context, id uuid.UUID, kind entity.ErrorKind, errText string) error {
	const q = `
UPDATE anonymization_jobs
SET status='error', error=$2, error_kind=$3, updated_at=now()
WHERE id=$1 AND status='processing';
`
	tag, err := r.pool.Exec(ctx, q, id, errText, string(kind))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a job that never made it onto the queue (enqueue failed
// right after Create). Guarded on pending so an executing or finished job
// is never removed this way.
func (r *JobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM anonymization_jobs WHERE id=$1 AND status='pending';`

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetStale returns claimed-but-unfinished jobs to pending once their claim
// is older than the cutoff, so a job interrupted by a worker crash or
// shutdown becomes claimable again when the queue reaper re-delivers its id.
func (r *JobRepository) ResetStale(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
UPDATE anonymization_jobs
SET status='pending', updated_at=now()
WHERE status='processing' AND updated_at < $1;
`
	tag, err := r.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired removes terminal jobs whose last update is older than the
// cutoff. Used by the worker's retention sweep.
func (r *JobRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
DELETE FROM anonymization_jobs
WHERE status IN ('done', 'error') AND updated_at < $1;
`
	tag, err := r.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
