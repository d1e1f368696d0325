package domain

import "time"

// SourceStatus enumerates health states a source can be in.
type SourceStatus string

const (
	StatusUnchecked SourceStatus = "unchecked"
	StatusOK        SourceStatus = "ok"
	StatusError     SourceStatus = "error"
)

// Source is a configured news origin with its health bookkeeping.
// ID is assigned by storage on first insert and stays nil until then.
type Source struct {
	ID           *int64
	Name         string
	Type         string
	URL          string
	Category     string
	Enabled      bool
	CustomConfig map[string]string

	// Health fields are mutated only via refresh/status-check rounds.
	Status            SourceStatus
	LastError         *string
	LastCheckedAt     *time.Time
	ConsecutiveErrors int
}

// Clone returns a deep copy so rounds operate on read-only snapshots.
func (s Source) Clone() Source {
	out := s
	if s.ID != nil {
		id := *s.ID
		out.ID = &id
	}
	if s.LastError != nil {
		msg := *s.LastError
		out.LastError = &msg
	}
	if s.LastCheckedAt != nil {
		at := *s.LastCheckedAt
		out.LastCheckedAt = &at
	}
	if s.CustomConfig != nil {
		out.CustomConfig = make(map[string]string, len(s.CustomConfig))
		for k, v := range s.CustomConfig {
			out.CustomConfig[k] = v
		}
	}
	return out
}

// StatusResult captures the outcome of one health probe of one source.
type StatusResult struct {
	SourceName        string
	Success           bool
	Message           string
	ErrorDetails      *string
	CheckedAt         time.Time
	ConsecutiveErrors int
}

// Status maps the probe outcome to the stored source status.
func (r StatusResult) Status() SourceStatus {
	if r.Success {
		return StatusOK
	}
	return StatusError
}
