package repos

import (
	"time"

	"github.com/google/uuid"
)

const (
	defaultConcurrency = 8
	notRefreshed       = "not refreshed"
)

type Config struct {
	// Concurrency caps the per-entry tasks a bulk operation runs at once.
	Concurrency int
	// RefreshInterval triggers a background refresh of every entry. Zero disables it.
	RefreshInterval time.Duration
	// Marker identifies repository roots during directory scans.
	Marker string
}

func (c Config) concurrency() int {
	if c.Concurrency <= 0 {
		return defaultConcurrency
	}
	return c.Concurrency
}

// Status is an immutable snapshot of an entry. When Available is false the
// counters are zero and Message explains why.
type Status struct {
	Branch    string
	Ahead     int
	Behind    int
	Unstaged  int
	Staged    int
	LastSync  time.Time // Last successful fetch, zero if never
	Available bool
	Message   string
	CheckedAt time.Time
}

// Busy describes the bulk operation in flight.
type Busy struct {
	ID          uuid.UUID
	Description string
	StartedAt   time.Time
}
