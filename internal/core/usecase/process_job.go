package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/neural-transliterator/internal/core/domain"
	"github.com/kirillkom/neural-transliterator/internal/core/ports"
)

type ProcessJobUseCase struct {
	repo           ports.JobRepository
	transliterator ports.Transliterator
	observer       ports.JobObserver
	now            func() time.Time
}

func NewProcessJobUseCase(repo ports.JobRepository, transliterator ports.Transliterator) *ProcessJobUseCase {
	return &ProcessJobUseCase{
		repo:           repo,
		transliterator: transliterator,
		now:            time.Now,
	}
}

// WithObserver reports in-flight jobs, queue lag and outcome.
func (uc *ProcessJobUseCase) WithObserver(observer ports.JobObserver) *ProcessJobUseCase {
	uc.observer = observer
	return uc
}

func (uc *ProcessJobUseCase) ProcessByID(ctx context.Context, jobID string) (err error) {
	start := uc.now()
	if uc.observer != nil {
		uc.observer.StartJob()
		defer func() {
			uc.observer.FinishJob(uc.now().Sub(start), err)
		}()
	}

	if err := uc.markStatus(ctx, jobID, domain.JobStatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	results, err := uc.run(ctx, jobID, start)
	if err != nil {
		if failErr := uc.markFailed(ctx, jobID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveResults(ctx, jobID, results); err != nil {
		saveErr := fmt.Errorf("save results: %w", err)
		if failErr := uc.markFailed(ctx, jobID, saveErr); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", saveErr, failErr)
		}
		return saveErr
	}

	return nil
}

func (uc *ProcessJobUseCase) run(ctx context.Context, jobID string, start time.Time) ([]domain.SentenceResult, error) {
	job, err := uc.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch job by id: %w", err)
	}
	if uc.observer != nil && !job.CreatedAt.IsZero() {
		uc.observer.ObserveQueueLag(start.Sub(job.CreatedAt))
	}

	results, err := uc.transliterator.Transliterate(ctx, job.Lines)
	if err != nil {
		return nil, fmt.Errorf("transliterate job lines: %w", err)
	}
	return results, nil
}

func (uc *ProcessJobUseCase) markStatus(ctx context.Context, jobID string, status domain.JobStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, jobID, status, errMessage)
}

func (uc *ProcessJobUseCase) markFailed(ctx context.Context, jobID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, jobID, domain.JobStatusFailed, processErr.Error())
}
