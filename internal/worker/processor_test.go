package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"anonymizer-service/internal/anonymize"
	"anonymizer-service/internal/entity"
	"anonymizer-service/internal/worker"
)

type memRepo struct {
	jobs map[uuid.UUID]*entity.Job
}

func newMemRepo(jobs ...*entity.Job) *memRepo {
	r := &memRepo{jobs: map[uuid.UUID]*entity.Job{}}
	for _, j := range jobs {
		r.jobs[j.ID] = j
	}
	return r
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	j, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return j, nil
}

func (r *memRepo) ClaimPending(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	j, ok := r.jobs[id]
	if !ok || j.Status != entity.StatusPending {
		return false, nil
	}
	j.Status = entity.StatusProcessing
	return true, nil
}

func (r *memRepo) SetResultDone(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j, ok := r.jobs[id]
	if !ok || j.Status != entity.StatusProcessing {
		return errors.New("not found")
	}
	j.Status = entity.StatusDone
	j.Result = result
	return nil
}

func (r *memRepo) SetResultError(ctx context.Context, id uuid.UUID, kind entity.ErrorKind, errText string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j, ok := r.jobs[id]
	if !ok || j.Status != entity.StatusProcessing {
		return errors.New("not found")
	}
	j.Status = entity.StatusError
	k := string(kind)
	j.ErrorKind = &k
	j.Error = &errText
	return nil
}

// resetStale mirrors the repository's stale-claim recovery for tests.
func (r *memRepo) resetStale() {
	for _, j := range r.jobs {
		if j.Status == entity.StatusProcessing {
			j.Status = entity.StatusPending
		}
	}
}

type fakePipeline struct {
	results []anonymize.Result
	err     error
	calls   int

	waitForCtx bool
	run        func(ctx context.Context) ([]anonymize.Result, error)
}

func (p *fakePipeline) Anonymize(ctx context.Context, text, language string) ([]anonymize.Result, error) {
	p.calls++
	if p.run != nil {
		return p.run(ctx)
	}
	if p.waitForCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return p.results, p.err
}

func pendingJob(id uuid.UUID) *entity.Job {
	return &entity.Job{
		ID:       id,
		Status:   entity.StatusPending,
		Text:     "Hello, my name is Jane Doe.",
		Language: "el",
	}
}

func TestProcess_SuccessTransitionsToDone(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	repo := newMemRepo(pendingJob(id))
	pipeline := &fakePipeline{results: []anonymize.Result{{
		FullText: "Hello, my name is Jane Doe.",
		Masked:   "Hello, my name is {{PERSON}}.",
		Spans:    []anonymize.SpanReport{{EntityType: "PERSON", EntityValue: "Jane Doe", Start: 18, End: 26}},
	}}}

	p := worker.NewProcessor(repo, pipeline, time.Second)
	if err := p.Process(context.Background(), id.String()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	j := repo.jobs[id]
	if j.Status != entity.StatusDone {
		t.Fatalf("expected status done, got %s", j.Status)
	}
	if len(j.Result) == 0 || !strings.Contains(string(j.Result), "{{PERSON}}") {
		t.Fatalf("expected stored result, got %s", j.Result)
	}
	if j.Error != nil {
		t.Fatalf("terminal success must not carry an error, got %v", *j.Error)
	}
}

func TestProcess_DetectorFailureTransitionsToError(t *testing.T) {
	id := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	repo := newMemRepo(pendingJob(id))
	pipeline := &fakePipeline{err: fmt.Errorf("%w: model unavailable", anonymize.ErrDetector)}

	p := worker.NewProcessor(repo, pipeline, time.Second)
	if err := p.Process(context.Background(), id.String()); err == nil {
		t.Fatal("expected the pipeline error back")
	}

	j := repo.jobs[id]
	if j.Status != entity.StatusError {
		t.Fatalf("expected status error, got %s", j.Status)
	}
	if j.Error == nil || *j.Error == "" {
		t.Fatal("failed job must carry an error detail")
	}
	if j.ErrorKind == nil || *j.ErrorKind != string(entity.ErrorKindDetector) {
		t.Fatalf("expected detector error kind, got %v", j.ErrorKind)
	}
	if len(j.Result) != 0 {
		t.Fatalf("failed job must not carry a result, got %s", j.Result)
	}
}

func TestProcess_ContractViolationIsInternalKind(t *testing.T) {
	id := uuid.MustParse("33333333-3333-3333-3333-333333333333")
	repo := newMemRepo(pendingJob(id))
	pipeline := &fakePipeline{err: fmt.Errorf("%w: span out of bounds", anonymize.ErrContract)}

	p := worker.NewProcessor(repo, pipeline, time.Second)
	_ = p.Process(context.Background(), id.String())

	j := repo.jobs[id]
	if j.Status != entity.StatusError {
		t.Fatalf("expected status error, got %s", j.Status)
	}
	if j.ErrorKind == nil || *j.ErrorKind != string(entity.ErrorKindInternal) {
		t.Fatalf("expected internal error kind, got %v", j.ErrorKind)
	}
}

func TestProcess_AlreadyClaimedJobIsSkipped(t *testing.T) {
	id := uuid.MustParse("44444444-4444-4444-4444-444444444444")
	job := pendingJob(id)
	job.Status = entity.StatusDone
	repo := newMemRepo(job)
	pipeline := &fakePipeline{}

	p := worker.NewProcessor(repo, pipeline, time.Second)
	if err := p.Process(context.Background(), id.String()); err != nil {
		t.Fatalf("expected nil error for a re-delivered terminal job, got %v", err)
	}
	if pipeline.calls != 0 {
		t.Fatal("terminal job must not be executed again")
	}
	if repo.jobs[id].Status != entity.StatusDone {
		t.Fatalf("terminal status must not change, got %s", repo.jobs[id].Status)
	}
}

func TestProcess_DetectorTimeoutForcesFailure(t *testing.T) {
	id := uuid.MustParse("55555555-5555-5555-5555-555555555555")
	repo := newMemRepo(pendingJob(id))
	pipeline := &fakePipeline{waitForCtx: true}

	p := worker.NewProcessor(repo, pipeline, 10*time.Millisecond)
	if err := p.Process(context.Background(), id.String()); err == nil {
		t.Fatal("expected a timeout error")
	}

	j := repo.jobs[id]
	if j.Status != entity.StatusError {
		t.Fatalf("expected status error, got %s", j.Status)
	}
	if j.Error == nil || !strings.Contains(*j.Error, "timed out") {
		t.Fatalf("expected a timeout error detail, got %v", j.Error)
	}
	if j.ErrorKind == nil || *j.ErrorKind != string(entity.ErrorKindDetector) {
		t.Fatalf("expected detector error kind for a timeout, got %v", j.ErrorKind)
	}
}

func TestProcess_ShutdownMidRunLeavesJobRecoverable(t *testing.T) {
	id := uuid.MustParse("66666666-6666-6666-6666-666666666666")
	repo := newMemRepo(pendingJob(id))

	ctx, cancel := context.WithCancel(context.Background())
	pipeline := &fakePipeline{run: func(runCtx context.Context) ([]anonymize.Result, error) {
		cancel() // shutdown arrives while the pipeline is running
		<-runCtx.Done()
		return nil, runCtx.Err()
	}}

	p := worker.NewProcessor(repo, pipeline, time.Minute)
	if err := p.Process(ctx, id.String()); err == nil {
		t.Fatal("expected the interruption error back")
	}

	j := repo.jobs[id]
	if j.Status != entity.StatusProcessing {
		t.Fatalf("interrupted job must stay claimed, got %s", j.Status)
	}
	if j.Error != nil {
		t.Fatalf("interruption must not be recorded as a terminal failure, got %v", *j.Error)
	}

	// after the stale sweep the re-delivered id runs to completion
	repo.resetStale()
	pipeline.run = nil
	pipeline.results = []anonymize.Result{{
		FullText: "Hello, my name is Jane Doe.",
		Masked:   "Hello, my name is {{PERSON}}.",
		Spans:    []anonymize.SpanReport{{EntityType: "PERSON", EntityValue: "Jane Doe", Start: 18, End: 26}},
	}}
	if err := p.Process(context.Background(), id.String()); err != nil {
		t.Fatalf("re-delivered job must execute, got %v", err)
	}
	if repo.jobs[id].Status != entity.StatusDone {
		t.Fatalf("expected status done after recovery, got %s", repo.jobs[id].Status)
	}
	if pipeline.calls != 2 {
		t.Fatalf("expected the pipeline to run twice, got %d", pipeline.calls)
	}
}

func TestProcess_TimeoutRecordedEvenDuringShutdown(t *testing.T) {
	id := uuid.MustParse("77777777-7777-7777-7777-777777777777")
	repo := newMemRepo(pendingJob(id))

	ctx, cancel := context.WithCancel(context.Background())
	pipeline := &fakePipeline{run: func(context.Context) ([]anonymize.Result, error) {
		cancel() // timeout fires just as shutdown begins
		return nil, context.DeadlineExceeded
	}}

	p := worker.NewProcessor(repo, pipeline, 10*time.Millisecond)
	if err := p.Process(ctx, id.String()); err == nil {
		t.Fatal("expected a timeout error")
	}

	j := repo.jobs[id]
	if j.Status != entity.StatusError {
		t.Fatalf("timeout must still reach a terminal state, got %s", j.Status)
	}
	if j.Error == nil || !strings.Contains(*j.Error, "timed out") {
		t.Fatalf("expected a timeout error detail, got %v", j.Error)
	}
}

func TestProcess_MalformedIDIsAnError(t *testing.T) {
	repo := newMemRepo()
	p := worker.NewProcessor(repo, &fakePipeline{}, time.Second)

	if err := p.Process(context.Background(), "not-a-uuid"); err == nil {
		t.Fatal("expected an error for a malformed job id")
	}
}
