package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"NewsOrchestrator/internal/domain"
	"NewsOrchestrator/internal/ports"
)

// Sources are I/O-bound (network round trips), so parallelism past a small
// ceiling only hammers remote servers without finishing rounds faster.
const maxWorkerCeiling = 8

// Deps wires the collaborators the orchestrator coordinates.
type Deps struct {
	Collectors ports.CollectorResolver
	Sources    ports.SourceProvider
	Stores     ports.StoreOpener
	Logger     *slog.Logger
	MaxWorkers int
}

// Orchestrator fans refresh and health-check work out across sources with
// bounded parallelism. Refresh rounds and status rounds are each
// single-flight, guarded by independent busy flags, so one of each may run
// concurrently but never two of the same kind.
type Orchestrator struct {
	collectors ports.CollectorResolver
	sources    ports.SourceProvider
	stores     ports.StoreOpener
	logger     *slog.Logger
	maxWorkers int

	events listenerSet

	refreshMu     sync.Mutex
	refreshing    bool
	cancelRefresh *CancellationFlag

	statusMu     sync.Mutex
	checking     bool
	cancelStatus *CancellationFlag
}

// New constructs an idle orchestrator.
func New(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		collectors:    deps.Collectors,
		sources:       deps.Sources,
		stores:        deps.Stores,
		logger:        logger,
		maxWorkers:    deps.MaxWorkers,
		cancelRefresh: NewCancellationFlag(),
		cancelStatus:  NewCancellationFlag(),
	}
}

// Subscribe registers a lifecycle event listener. Safe to call while rounds
// are running; the new listener sees events emitted after registration.
func (o *Orchestrator) Subscribe(l Listener) {
	o.events.subscribe(l)
}

// RefreshAll starts one refresh round over the given sources, or over all
// enabled sources when the argument is nil. Returns false without queueing
// when a round is already in flight.
func (o *Orchestrator) RefreshAll(ctx context.Context, sources []domain.Source) bool {
	o.refreshMu.Lock()
	if o.refreshing {
		o.refreshMu.Unlock()
		o.logger.Info("refresh already in progress, ignoring request")
		return false
	}
	o.refreshing = true
	o.refreshMu.Unlock()

	o.cancelRefresh.Clear()
	o.events.refreshStarted()

	snapshot := o.snapshotSources(sources)
	o.logger.Info("starting refresh round", "sources", len(snapshot))

	if len(snapshot) == 0 {
		o.events.refreshCompleted(true, "no enabled sources to refresh")
		o.setRefreshing(false)
		return true
	}

	task := &refreshTask{
		sources:    snapshot,
		collectors: o.collectors,
		flag:       o.cancelRefresh,
		events:     &o.events,
		logger:     o.logger.With("component", "refresh"),
		workers:    boundedWorkers(len(snapshot), o.maxWorkers),
		release:    func() { o.setRefreshing(false) },
	}
	go task.run(ctx)
	return true
}

// CancelRefresh requests cooperative cancellation of the in-flight refresh
// round. No-op when nothing is running.
func (o *Orchestrator) CancelRefresh() {
	o.refreshMu.Lock()
	active := o.refreshing
	o.refreshMu.Unlock()

	if !active {
		o.logger.Info("no refresh in progress to cancel")
		return
	}
	o.logger.Info("cancelling current refresh round")
	o.cancelRefresh.Set()
}

// CheckAllStatuses starts one health-check round over all enabled sources.
// Returns false without queueing when a status round is already in flight.
func (o *Orchestrator) CheckAllStatuses(ctx context.Context) bool {
	o.statusMu.Lock()
	if o.checking {
		o.statusMu.Unlock()
		o.logger.Info("status check already in progress, ignoring request")
		return false
	}
	o.checking = true
	o.statusMu.Unlock()

	o.cancelStatus.Clear()
	o.events.statusCheckStarted()

	snapshot := o.snapshotSources(nil)
	o.logger.Info("starting status check round", "sources", len(snapshot))

	if len(snapshot) == 0 {
		o.events.allStatusesChecked(nil)
		o.events.statusCheckFinished()
		o.setChecking(false)
		return true
	}

	task := &statusTask{
		sources:    snapshot,
		collectors: o.collectors,
		stores:     o.stores,
		flag:       o.cancelStatus,
		events:     &o.events,
		logger:     o.logger.With("component", "statuscheck"),
		workers:    boundedWorkers(len(snapshot), o.maxWorkers),
		release:    func() { o.setChecking(false) },
	}
	go task.run(ctx)
	return true
}

// CancelStatusCheck requests cooperative cancellation of the in-flight
// status round. No-op when nothing is running.
func (o *Orchestrator) CancelStatusCheck() {
	o.statusMu.Lock()
	active := o.checking
	o.statusMu.Unlock()

	if !active {
		o.logger.Info("no status check in progress to cancel")
		return
	}
	o.logger.Info("cancelling current status check round")
	o.cancelStatus.Set()
}

// snapshotSources builds the read-only per-round snapshot: explicit list or
// the provider's enabled set, disabled entries dropped, every entry cloned so
// workers never touch caller-owned Source objects.
func (o *Orchestrator) snapshotSources(explicit []domain.Source) []domain.Source {
	list := explicit
	if list == nil && o.sources != nil {
		list = o.sources.EnabledSources()
	}
	enabled := lo.Filter(list, func(s domain.Source, _ int) bool { return s.Enabled })
	return lo.Map(enabled, func(s domain.Source, _ int) domain.Source { return s.Clone() })
}

func (o *Orchestrator) setRefreshing(v bool) {
	o.refreshMu.Lock()
	o.refreshing = v
	o.refreshMu.Unlock()
}

func (o *Orchestrator) setChecking(v bool) {
	o.statusMu.Lock()
	o.checking = v
	o.statusMu.Unlock()
}

func boundedWorkers(sources, configured int) int {
	ceiling := configured
	if ceiling <= 0 || ceiling > maxWorkerCeiling {
		ceiling = maxWorkerCeiling
	}
	workers := sources
	if workers < 1 {
		workers = 1
	}
	if workers > ceiling {
		workers = ceiling
	}
	return workers
}
