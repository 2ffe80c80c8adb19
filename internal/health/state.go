package health

import "sync"

// Status is the database health indicator reported on the wire.
type Status string

// Health statuses.
const (
	StatusOK      Status = "😇"
	StatusUnknown Status = "🤔"
	StatusError   Status = "😱"
)

// statusText labels, plus the label reported before any status was set.
const (
	textNotAvailable = "N/A"
	textOK           = "OK"
	textUnknown      = "UNKNOWN"
	textError        = "ERROR"
)

// DBHealth is a snapshot of the database health.
type DBHealth struct {
	Status     Status `json:"status"`
	StatusText string `json:"statusText"`
}

// State holds the current database health. It starts unknown and is safe
// for concurrent use.
type State struct {
	mu     sync.RWMutex
	health DBHealth
}

// NewState returns a State reporting unknown / N/A.
func NewState() *State {
	return &State{health: DBHealth{Status: StatusUnknown, StatusText: textNotAvailable}}
}

// Set records status and its label. Unrecognised statuses are ignored.
func (s *State) Set(status Status) {
	var text string
	switch status {
	case StatusOK:
		text = textOK
	case StatusUnknown:
		text = textUnknown
	case StatusError:
		text = textError
	default:
		return
	}

	s.mu.Lock()
	s.health = DBHealth{Status: status, StatusText: text}
	s.mu.Unlock()
}

// Snapshot returns the current health.
func (s *State) Snapshot() DBHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}
