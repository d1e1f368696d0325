package orchestrator

import "sync"

// CancellationFlag is a thread-safe boolean used to signal cooperative
// cancellation to in-flight work. Setting it never interrupts a running
// collector call; workers poll it between units of work.
type CancellationFlag struct {
	mu  sync.Mutex
	set bool
}

// NewCancellationFlag returns a cleared flag.
func NewCancellationFlag() *CancellationFlag {
	return &CancellationFlag{}
}

// Set marks the flag. Idempotent.
func (f *CancellationFlag) Set() {
	f.mu.Lock()
	f.set = true
	f.mu.Unlock()
}

// Clear resets the flag. Idempotent.
func (f *CancellationFlag) Clear() {
	f.mu.Lock()
	f.set = false
	f.mu.Unlock()
}

// IsSet reports whether the flag is currently set.
func (f *CancellationFlag) IsSet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set
}
