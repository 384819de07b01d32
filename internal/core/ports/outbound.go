package ports

import (
	"context"
	"time"

	"github.com/kirillkom/neural-transliterator/internal/core/domain"
)

// Oracle is the external transliteration model. For every word in batch it
// returns exactly beam-width candidates, contiguous and in input order.
// Words are letter-spaced ("c a t"). The per-word ordering is not trusted.
type Oracle interface {
	Translate(ctx context.Context, batch []string) (texts []string, scores []float64, err error)
}

// HealthChecker reports whether a dependency can serve requests.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// CandidateCache remembers per-word candidate lists between requests.
// Missing words are simply absent from the returned map.
type CandidateCache interface {
	GetMany(ctx context.Context, nHyps int, words []string) (map[string]domain.CandidateList, error)
	PutMany(ctx context.Context, nHyps int, entries map[string]domain.CandidateList) error
}

// JobRepository persists and reads job state.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMessage string) error
	SaveResults(ctx context.Context, id string, results []domain.SentenceResult) error
}

// MessageQueue publishes/consumes job submission events.
type MessageQueue interface {
	PublishJobSubmitted(ctx context.Context, jobID string) error
	SubscribeJobSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// PipelineObserver receives pipeline measurements. Implementations must be
// safe for concurrent use.
type PipelineObserver interface {
	ObserveOracleBatch(words int, seconds float64, err error)
	ObserveCacheHits(hits int)
	ObserveSentence(words int, produced int, kept int)
}

// JobObserver receives per-job worker measurements.
type JobObserver interface {
	StartJob()
	ObserveQueueLag(lag time.Duration)
	FinishJob(duration time.Duration, err error)
}

// Batcher splits the word stream into oracle dispatch batches.
type Batcher interface {
	Split(words []string) [][]string
}
