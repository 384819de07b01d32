package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/neural-transliterator/internal/core/domain"
	"github.com/kirillkom/neural-transliterator/internal/core/ports"
)

type SubmitJobUseCase struct {
	repo  ports.JobRepository
	queue ports.MessageQueue
}

func NewSubmitJobUseCase(repo ports.JobRepository, queue ports.MessageQueue) *SubmitJobUseCase {
	return &SubmitJobUseCase{
		repo:  repo,
		queue: queue,
	}
}

// Submit validates lines up front so that a rejected batch never reaches
// the queue, stores the job as pending and announces it to workers.
func (uc *SubmitJobUseCase) Submit(ctx context.Context, lines []string) (*domain.Job, error) {
	if _, _, err := SegmentLines(lines); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:        uuid.NewString(),
		Lines:     append([]string(nil), lines...),
		Status:    domain.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := uc.queue.PublishJobSubmitted(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish job event: %w", err)
	}

	return job, nil
}
