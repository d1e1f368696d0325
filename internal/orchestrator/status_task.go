package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"NewsOrchestrator/internal/domain"
	"NewsOrchestrator/internal/ports"
)

// statusTask probes the health of each source with the same bounded fan-out
// discipline as refreshTask, plus durable side effects: each worker owns its
// own storage handle for the lifetime of the task, because embedded-database
// connections cannot be shared across goroutines.
type statusTask struct {
	sources    []domain.Source
	collectors ports.CollectorResolver
	stores     ports.StoreOpener
	flag       *CancellationFlag
	events     *listenerSet
	logger     *slog.Logger
	workers    int
	release    func()
}

func (t *statusTask) run(ctx context.Context) {
	total := len(t.sources)
	results := make([]domain.StatusResult, 0, total)
	resultCh := make(chan domain.StatusResult, total)

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("status round panicked", "panic", r)
		}
		t.logger.Info("status round done", "checked", len(results), "of", total)
		t.events.allStatusesChecked(results)
		t.events.statusCheckFinished()
		t.release()
	}()

	jobs := make(chan domain.Source)
	var wg sync.WaitGroup
	for i := 0; i < t.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.workerLoop(ctx, jobs, resultCh)
		}()
	}

	for _, src := range t.sources {
		if t.flag.IsSet() {
			t.logger.Info("status check cancelled, skipping remaining sources")
			break
		}
		jobs <- src
	}
	close(jobs)
	wg.Wait()
	close(resultCh)

	// Already-dispatched checks are still reported after cancellation.
	for res := range resultCh {
		results = append(results, res)
	}
}

func (t *statusTask) workerLoop(ctx context.Context, jobs <-chan domain.Source, out chan<- domain.StatusResult) {
	var store ports.HealthStore
	if t.stores != nil {
		opened, err := t.stores.Open(ctx)
		if err != nil {
			t.logger.Error("open health store", "error", err)
		} else {
			store = opened
		}
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				t.logger.Warn("close health store", "error", err)
			}
		}()
	}

	for src := range jobs {
		if t.flag.IsSet() {
			continue
		}
		res := t.checkOne(ctx, store, src)
		t.events.sourceStatusChecked(res)
		out <- res
	}
}

// checkOne probes one source, applies the uniform consecutive-error policy,
// and persists the outcome. A check that cannot be recorded is reported as a
// failure even when the probe itself succeeded.
func (t *statusTask) checkOne(ctx context.Context, store ports.HealthStore, src domain.Source) domain.StatusResult {
	res := t.probe(ctx, src)

	if res.Success {
		res.ConsecutiveErrors = 0
	} else {
		res.ConsecutiveErrors = src.ConsecutiveErrors + 1
	}

	if src.ID != nil {
		if err := t.persist(ctx, store, *src.ID, res); err != nil {
			t.logger.Error("persist source status", "source", src.Name, "error", err)
			res.Success = false
			res.Message = fmt.Sprintf("%s (persisting status failed: %v)", res.Message, err)
		}
	}

	t.logger.Debug("source status checked", "source", src.Name, "success", res.Success, "errors", res.ConsecutiveErrors)
	return res
}

// probe isolates the collector call; missing collectors, missing capability,
// errors and panics all collapse into a local failure result.
func (t *statusTask) probe(ctx context.Context, src domain.Source) (res domain.StatusResult) {
	res = domain.StatusResult{
		SourceName: src.Name,
		CheckedAt:  time.Now().UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("status check panic: %v", r)
			res.Success = false
			res.Message = msg
			res.ErrorDetails = &msg
		}
	}()

	col, ok := t.collectors.Resolve(src.Type)
	if !ok {
		msg := fmt.Sprintf("no collector registered for type %q", src.Type)
		res.Message = msg
		res.ErrorDetails = &msg
		return res
	}

	checker, ok := col.(ports.StatusChecker)
	if !ok {
		msg := fmt.Sprintf("collector %q does not support status checks", src.Type)
		res.Message = msg
		res.ErrorDetails = &msg
		return res
	}

	probed, err := checker.CheckStatus(ctx, src)
	if err != nil {
		msg := err.Error()
		res.Message = "status check failed: " + msg
		res.ErrorDetails = &msg
		return res
	}

	if probed.SourceName == "" {
		probed.SourceName = src.Name
	}
	if probed.CheckedAt.IsZero() {
		probed.CheckedAt = res.CheckedAt
	}
	return probed
}

func (t *statusTask) persist(ctx context.Context, store ports.HealthStore, id int64, res domain.StatusResult) error {
	if store == nil {
		return fmt.Errorf("health store unavailable")
	}

	var lastErr *string
	if !res.Success {
		msg := res.Message
		lastErr = &msg
	}
	return store.UpdateSourceHealth(ctx, id, res.Status(), lastErr, res.CheckedAt, res.ConsecutiveErrors)
}
