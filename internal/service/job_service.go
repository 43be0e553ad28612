package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"anonymizer-service/internal/entity"
)

// Validation errors: the submission is rejected synchronously and no job is
// created.
var (
	ErrEmptyText           = errors.New("text is required")
	ErrTextTooLarge        = errors.New("text exceeds maximum size")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Порт репозитория (реализация: postgresql.JobRepository)
type JobRepository interface {
	Create(ctx context.Context, text, language string) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Маленький порт очереди только для добавления задач в очередь.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
}

type Config struct {
	MaxTextBytes    int
	DefaultLanguage string
	Languages       []string // language tags accepted at submission
}

type JobService struct {
	repo  JobRepository
	queue JobQueue

	maxTextBytes    int
	defaultLanguage string
	languages       map[string]bool
}

func NewJobService(repo JobRepository, queue JobQueue, cfg Config) *JobService {
	languages := make(map[string]bool, len(cfg.Languages))
	for _, lang := range cfg.Languages {
		languages[lang] = true
	}
	return &JobService{
		repo:            repo,
		queue:           queue,
		maxTextBytes:    cfg.MaxTextBytes,
		defaultLanguage: cfg.DefaultLanguage,
		languages:       languages,
	}
}

// Submit validates the request, creates a pending job and enqueues it for
// background processing. Returns immediately; it never waits on the
// detector. An empty language tag falls back to the configured default, an
// unknown one is rejected — there is no silent cross-language fallback.
func (s *JobService) Submit(ctx context.Context, text, language string) (uuid.UUID, error) {
	if strings.TrimSpace(text) == "" {
		return uuid.Nil, ErrEmptyText
	}
	if s.maxTextBytes > 0 && len(text) > s.maxTextBytes {
		return uuid.Nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTextTooLarge, len(text), s.maxTextBytes)
	}

	if language == "" {
		language = s.defaultLanguage
	}
	if !s.languages[language] {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	id, err := s.repo.Create(ctx, text, language)
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.queue.Enqueue(ctx, id.String()); err != nil {
		// A pending row without a queue entry would never be delivered:
		// delete it so the failed submission leaves nothing behind.
		if delErr := s.repo.Delete(ctx, id); delErr != nil {
			return uuid.Nil, fmt.Errorf("enqueue job: %w (cleanup: %v)", err, delErr)
		}
		return uuid.Nil, fmt.Errorf("enqueue job: %w", err)
	}

	return id, nil
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	return s.repo.GetByID(ctx, id)
}
