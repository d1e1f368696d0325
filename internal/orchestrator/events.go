package orchestrator

import (
	"sync"

	"NewsOrchestrator/internal/domain"
)

// Listener receives lifecycle events for refresh and status-check rounds.
// Callbacks are invoked from background goroutines; implementations that talk
// to a UI must marshal onto their own thread. Per-source events arrive in
// completion order, and each round ends with exactly one terminal event
// (RefreshCompleted or StatusCheckFinished).
type Listener interface {
	RefreshStarted()
	SourceRefreshed(sourceName string, articles []domain.RawArticle)
	SourceRefreshProgress(sourceName string, percent, total, processed int)
	RefreshCompleted(success bool, message string)
	SourceError(sourceName, message string)

	StatusCheckStarted()
	SourceStatusChecked(result domain.StatusResult)
	AllStatusesChecked(results []domain.StatusResult)
	StatusCheckFinished()
}

// NoopListener implements Listener with empty methods so consumers embed it
// and override only the events they care about.
type NoopListener struct{}

var _ Listener = NoopListener{}

func (NoopListener) RefreshStarted()                                      {}
func (NoopListener) SourceRefreshed(string, []domain.RawArticle)          {}
func (NoopListener) SourceRefreshProgress(string, int, int, int)          {}
func (NoopListener) RefreshCompleted(bool, string)                        {}
func (NoopListener) SourceError(string, string)                           {}
func (NoopListener) StatusCheckStarted()                                  {}
func (NoopListener) SourceStatusChecked(domain.StatusResult)              {}
func (NoopListener) AllStatusesChecked([]domain.StatusResult)             {}
func (NoopListener) StatusCheckFinished()                                 {}

// listenerSet fans events out to every registered listener. Emission holds a
// read lock so Subscribe is safe while rounds are running.
type listenerSet struct {
	mu        sync.RWMutex
	listeners []Listener
}

func (s *listenerSet) subscribe(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *listenerSet) each(fn func(Listener)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.listeners {
		fn(l)
	}
}

func (s *listenerSet) refreshStarted() {
	s.each(func(l Listener) { l.RefreshStarted() })
}

func (s *listenerSet) sourceRefreshed(name string, articles []domain.RawArticle) {
	s.each(func(l Listener) { l.SourceRefreshed(name, articles) })
}

func (s *listenerSet) sourceRefreshProgress(name string, percent, total, processed int) {
	s.each(func(l Listener) { l.SourceRefreshProgress(name, percent, total, processed) })
}

func (s *listenerSet) refreshCompleted(success bool, message string) {
	s.each(func(l Listener) { l.RefreshCompleted(success, message) })
}

func (s *listenerSet) sourceError(name, message string) {
	s.each(func(l Listener) { l.SourceError(name, message) })
}

func (s *listenerSet) statusCheckStarted() {
	s.each(func(l Listener) { l.StatusCheckStarted() })
}

func (s *listenerSet) sourceStatusChecked(result domain.StatusResult) {
	s.each(func(l Listener) { l.SourceStatusChecked(result) })
}

func (s *listenerSet) allStatusesChecked(results []domain.StatusResult) {
	s.each(func(l Listener) { l.AllStatusesChecked(results) })
}

func (s *listenerSet) statusCheckFinished() {
	s.each(func(l Listener) { l.StatusCheckFinished() })
}
