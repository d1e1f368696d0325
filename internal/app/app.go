package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"NewsOrchestrator/internal/collector"
	"NewsOrchestrator/internal/config"
	"NewsOrchestrator/internal/domain"
	"NewsOrchestrator/internal/infrastructure/rss"
	"NewsOrchestrator/internal/infrastructure/scheduler"
	"NewsOrchestrator/internal/infrastructure/scrape"
	"NewsOrchestrator/internal/infrastructure/storage"
	"NewsOrchestrator/internal/logging"
	"NewsOrchestrator/internal/orchestrator"
	"NewsOrchestrator/internal/ports"
	"NewsOrchestrator/internal/sources"
)

// Application wires config to the orchestrator and lifecycle collaborators.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *storage.Store
	manager *sources.Manager
	orch    *orchestrator.Orchestrator
	sched   ports.Scheduler
}

// New builds a runnable application instance. The store handle opened here
// belongs to the wiring layer; status-check workers open their own.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open source store: %w", err)
	}

	registry := collector.NewRegistry()
	registry.Register(rss.NewCollector(nil, baseLogger.With("component", "collector.rss")))
	registry.Register(scrape.NewCollector(nil, baseLogger.With("component", "collector.scrape")))

	manager := sources.NewManager(baseLogger.With("component", "sources"))

	orch := orchestrator.New(orchestrator.Deps{
		Collectors: registry,
		Sources:    manager,
		Stores:     storage.NewOpener(cfg.Database.Path),
		Logger:     baseLogger.With("component", "orchestrator"),
		MaxWorkers: cfg.Refresh.MaxWorkers,
	})
	orch.Subscribe(manager)

	var sched ports.Scheduler
	if cfg.Refresh.Auto {
		sched = scheduler.NewIntervalScheduler(cfg.Refresh.Interval())
	}

	return &Application{
		cfg:     cfg,
		logger:  baseLogger,
		store:   store,
		manager: manager,
		orch:    orch,
		sched:   sched,
	}, nil
}

// Orchestrator exposes the coordination surface to callers embedding the app.
func (a *Application) Orchestrator() *orchestrator.Orchestrator {
	return a.orch
}

// Run seeds sources, then either drives the auto-refresh loop until the
// context ends, or performs one refresh round plus one status round.
func (a *Application) Run(ctx context.Context) error {
	if err := a.seedSources(ctx); err != nil {
		return err
	}

	if a.sched != nil {
		job := func(time.Time) {
			a.orch.RefreshAll(ctx, nil)
		}
		if err := a.sched.Start(ctx, job); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		<-ctx.Done()
		_ = a.sched.Stop(context.Background())
		return ctx.Err()
	}

	waiter := newRoundWaiter()
	a.orch.Subscribe(waiter)

	if a.orch.RefreshAll(ctx, nil) {
		select {
		case <-waiter.refreshDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if a.orch.CheckAllStatuses(ctx) {
		select {
		case <-waiter.statusDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Close releases the wiring-layer store handle.
func (a *Application) Close() error {
	return a.store.Close()
}

// seedSources loads persisted sources into the manager, then inserts any
// config-defined source that is not in the database yet.
func (a *Application) seedSources(ctx context.Context) error {
	stored, err := a.store.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}

	known := map[string]struct{}{}
	for _, src := range stored {
		known[src.Name] = struct{}{}
		if err := a.manager.Add(src); err != nil {
			return fmt.Errorf("register source %q: %w", src.Name, err)
		}
	}

	for _, sc := range a.cfg.Sources {
		if _, ok := known[sc.Name]; ok {
			continue
		}

		src := domain.Source{
			Name:         sc.Name,
			Type:         sc.Type,
			URL:          sc.URL,
			Category:     sc.Category,
			Enabled:      sc.IsEnabled(),
			CustomConfig: sc.Options,
			Status:       domain.StatusUnchecked,
		}
		if err := a.store.AddSource(ctx, &src); err != nil {
			return fmt.Errorf("persist source %q: %w", sc.Name, err)
		}
		if err := a.manager.Add(src); err != nil {
			return fmt.Errorf("register source %q: %w", sc.Name, err)
		}
	}

	a.logger.Info("sources seeded", "stored", len(stored), "total", len(a.manager.All()))
	return nil
}

// roundWaiter turns terminal lifecycle events into done channels so Run can
// block until a round finishes.
type roundWaiter struct {
	orchestrator.NoopListener

	refreshDone chan struct{}
	statusDone  chan struct{}
	refreshOnce sync.Once
	statusOnce  sync.Once
}

func newRoundWaiter() *roundWaiter {
	return &roundWaiter{
		refreshDone: make(chan struct{}),
		statusDone:  make(chan struct{}),
	}
}

func (w *roundWaiter) RefreshCompleted(bool, string) {
	w.refreshOnce.Do(func() { close(w.refreshDone) })
}

func (w *roundWaiter) StatusCheckFinished() {
	w.statusOnce.Do(func() { close(w.statusDone) })
}
