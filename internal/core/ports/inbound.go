package ports

import (
	"context"

	"github.com/kirillkom/neural-transliterator/internal/core/domain"
)

// Transliterator is the inbound contract for synchronous batch transliteration.
type Transliterator interface {
	Transliterate(ctx context.Context, lines []string) ([]domain.SentenceResult, error)
	Best(ctx context.Context, text string) (string, bool, error)
}

// JobSubmitter accepts a batch for asynchronous processing.
type JobSubmitter interface {
	Submit(ctx context.Context, lines []string) (*domain.Job, error)
}

// JobReader is the inbound read model for job state.
type JobReader interface {
	GetByID(ctx context.Context, id string) (*domain.Job, error)
}

// JobProcessor is the inbound contract for asynchronous job processing.
type JobProcessor interface {
	ProcessByID(ctx context.Context, jobID string) error
}
