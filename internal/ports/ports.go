package ports

import (
	"context"
	"time"

	"NewsOrchestrator/internal/domain"
)

// ProgressFunc reports per-source progress; done grows monotonically up to total.
type ProgressFunc func(done, total int)

// CancelledFunc is an advisory predicate collectors poll between expensive
// sub-steps. A true result is a strong hint to stop early and return what has
// been gathered so far.
type CancelledFunc func() bool

// Collector fetches raw articles for one source type.
type Collector interface {
	Type() string
	Collect(ctx context.Context, source domain.Source, onProgress ProgressFunc, isCancelled CancelledFunc) ([]domain.RawArticle, error)
}

// StatusChecker is an optional collector capability. Collectors without it
// get a synthesized failure result during status rounds.
type StatusChecker interface {
	CheckStatus(ctx context.Context, source domain.Source) (domain.StatusResult, error)
}

// CollectorResolver maps a source type string to its collector.
type CollectorResolver interface {
	Resolve(sourceType string) (Collector, bool)
}

// SourceProvider hands out the enabled-sources snapshot for a round.
type SourceProvider interface {
	EnabledSources() []domain.Source
}

// HealthStore persists per-source health state. Handles are not safe to
// share across goroutines; each status-check worker opens its own through a
// StoreOpener and closes it when its loop ends.
type HealthStore interface {
	UpdateSourceHealth(ctx context.Context, sourceID int64, status domain.SourceStatus, lastError *string, checkedAt time.Time, consecutiveErrors int) error
	Close() error
}

// StoreOpener constructs a fresh HealthStore handle per worker.
type StoreOpener interface {
	Open(ctx context.Context) (HealthStore, error)
}

// Scheduler controls when recurring refresh rounds execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
