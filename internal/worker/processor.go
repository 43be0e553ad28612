package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"anonymizer-service/internal/anonymize"
	"anonymizer-service/internal/entity"
)

type JobRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	ClaimPending(ctx context.Context, id uuid.UUID) (bool, error)
	SetResultDone(ctx context.Context, id uuid.UUID, result json.RawMessage) error
	SetResultError(ctx context.Context, id uuid.UUID, kind entity.ErrorKind, errText string) error
}

// Pipeline is the anonymization core (реализация: anonymize.Anonymizer).
type Pipeline interface {
	Anonymize(ctx context.Context, text, language string) ([]anonymize.Result, error)
}

// Processor executes one claimed job: pending -> processing -> done/error.
type Processor struct {
	repo            JobRepo
	pipeline        Pipeline
	detectorTimeout time.Duration
}

func NewProcessor(repo JobRepo, pipeline Pipeline, detectorTimeout time.Duration) *Processor {
	if detectorTimeout <= 0 {
		detectorTimeout = 30 * time.Second
	}
	return &Processor{repo: repo, pipeline: pipeline, detectorTimeout: detectorTimeout}
}

func (p *Processor) Process(ctx context.Context, jobID string) error {
	start := time.Now()

	id, err := uuid.Parse(jobID)
	if err != nil {
		log.Printf("[worker] job_id=%s parse_error=%v", jobID, err)
		return err
	}

	claimed, err := p.repo.ClaimPending(ctx, id)
	if err != nil {
		log.Printf("[worker] job_id=%s claim error=%v", id.String(), err)
		return err
	}
	if !claimed {
		// already claimed by another worker, or terminal (e.g. re-delivered
		// by the reaper after a crash mid-ack) — nothing to do
		log.Printf("[worker] job_id=%s skip: not pending", id.String())
		return nil
	}

	job, err := p.repo.GetByID(ctx, id)
	if err != nil {
		log.Printf("[worker] job_id=%s get_job error=%v", id.String(), err)
		return err
	}

	log.Printf("[worker] job_id=%s language=%s status=processing text_bytes=%d",
		id.String(), job.Language, len(job.Text))

	// the detector call is the only stage that can stall; bound it
	runCtx, cancel := context.WithTimeout(ctx, p.detectorTimeout)
	results, procErr := p.pipeline.Anonymize(runCtx, job.Text, job.Language)
	cancel()

	// terminal updates must land even when shutdown begins mid-run,
	// otherwise the job is stuck at processing until the lease sweep
	writeCtx := context.WithoutCancel(ctx)

	if procErr == nil {
		out, mErr := json.Marshal(results)
		if mErr != nil {
			procErr = fmt.Errorf("%w: marshal result: %v", anonymize.ErrContract, mErr)
		} else {
			if err := p.repo.SetResultDone(writeCtx, id, out); err != nil {
				log.Printf("[worker] job_id=%s set_done error=%v", id.String(), err)
				return err
			}
			log.Printf("[worker] job_id=%s status=done paragraphs=%d duration_ms=%d",
				id.String(), len(results), time.Since(start).Milliseconds())
			return nil
		}
	}

	if ctx.Err() != nil && !errors.Is(procErr, context.DeadlineExceeded) {
		// shutdown aborted the pipeline, not the detector: don't record a
		// failure the client would see as terminal. The row stays at
		// processing; the stale sweep resets it and the reaper re-delivers
		// it, so the job runs to completion on the next worker.
		log.Printf("[worker] job_id=%s interrupted, left for lease recovery: %v", id.String(), procErr)
		return procErr
	}

	kind := entity.ErrorKindDetector
	if errors.Is(procErr, anonymize.ErrContract) {
		kind = entity.ErrorKindInternal
	}
	msg := procErr.Error()
	if errors.Is(procErr, context.DeadlineExceeded) {
		msg = fmt.Sprintf("detector timed out after %s", p.detectorTimeout)
	}

	if err := p.repo.SetResultError(writeCtx, id, kind, msg); err != nil {
		log.Printf("[worker] job_id=%s set_error error=%v", id.String(), err)
	}

	log.Printf("[worker] job_id=%s status=error kind=%s duration_ms=%d error=%s",
		id.String(), kind, time.Since(start).Milliseconds(), msg)
	return procErr
}
