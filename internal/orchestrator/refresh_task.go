package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"NewsOrchestrator/internal/domain"
	"NewsOrchestrator/internal/ports"
)

// refreshTask is one bounded fan-out over a snapshot of sources. Every
// source yields exactly one SourceRefreshed event (real payload or empty),
// results are processed in completion order, and no per-source failure is
// allowed to escape the round.
type refreshTask struct {
	sources    []domain.Source
	collectors ports.CollectorResolver
	flag       *CancellationFlag
	events     *listenerSet
	logger     *slog.Logger
	workers    int
	release    func()
}

type collectOutcome struct {
	source    domain.Source
	articles  []domain.RawArticle
	err       error
	cancelled bool
}

func (t *refreshTask) run(ctx context.Context) {
	total := len(t.sources)

	var (
		notes     []string
		collected int
		processed int
	)

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("refresh round panicked", "panic", r)
			notes = append(notes, fmt.Sprintf("internal error: %v", r))
		}

		success := len(notes) == 0
		var message string
		switch {
		case t.flag.IsSet():
			success = false
			message = "refresh cancelled by user"
		case !success:
			message = "refresh finished with errors: " + strings.Join(notes, "; ")
		default:
			message = fmt.Sprintf("refresh complete (%d new items)", collected)
		}

		t.logger.Info("refresh round done", "success", success, "collected", collected, "processed", processed)
		t.events.refreshCompleted(success, message)
		t.release()
	}()

	outcomes := make(chan collectOutcome, total)
	sem := make(chan struct{}, t.workers)
	var wg sync.WaitGroup

	for _, src := range t.sources {
		// A flag observed before submission still counts toward the
		// processed denominator, so the caller can reconcile N events.
		if t.flag.IsSet() {
			processed++
			notes = append(notes, src.Name+": cancelled before start")
			t.events.sourceRefreshed(src.Name, nil)
			continue
		}

		col, ok := t.collectors.Resolve(src.Type)
		if !ok {
			msg := fmt.Sprintf("no collector registered for type %q", src.Type)
			t.logger.Error("cannot refresh source", "source", src.Name, "type", src.Type)
			processed++
			notes = append(notes, src.Name+": "+msg)
			t.events.sourceError(src.Name, msg)
			t.events.sourceRefreshed(src.Name, nil)
			continue
		}

		wg.Add(1)
		go func(src domain.Source, col ports.Collector) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes <- t.collectOne(ctx, col, src)
		}(src, col)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for out := range outcomes {
		processed++
		percent := processed * 100 / total
		t.events.sourceRefreshProgress(out.source.Name, percent, total, processed)

		switch {
		case out.cancelled || t.flag.IsSet():
			notes = append(notes, out.source.Name+": cancelled")
			t.events.sourceRefreshed(out.source.Name, nil)
		case out.err != nil:
			t.logger.Error("source refresh failed", "source", out.source.Name, "error", out.err)
			notes = append(notes, out.source.Name+": "+out.err.Error())
			t.events.sourceError(out.source.Name, out.err.Error())
			t.events.sourceRefreshed(out.source.Name, nil)
		default:
			t.logger.Debug("source refreshed", "source", out.source.Name, "items", len(out.articles))
			collected += len(out.articles)
			t.events.sourceRefreshed(out.source.Name, out.articles)
		}
	}
}

// collectOne runs a single collector call inside its own failure boundary:
// panics become per-source errors, never round aborts.
func (t *refreshTask) collectOne(ctx context.Context, col ports.Collector, src domain.Source) (out collectOutcome) {
	out.source = src

	defer func() {
		if r := recover(); r != nil {
			out.articles = nil
			out.err = fmt.Errorf("collector panic: %v", r)
		}
	}()

	// Queued units must not start fresh work after cancellation.
	if t.flag.IsSet() {
		out.cancelled = true
		return out
	}

	onProgress := func(done, items int) {
		t.logger.Debug("source progress", "source", src.Name, "done", done, "total", items)
	}

	articles, err := col.Collect(ctx, src, onProgress, t.flag.IsSet)
	if err != nil {
		out.err = err
		return out
	}

	// nil from a collector means zero items, not an error.
	out.articles = articles
	return out
}
