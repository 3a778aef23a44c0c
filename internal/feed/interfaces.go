package feed

import (
	"context"
	"time"
)

// Fetcher downloads and parses one calendar source into events in
// document order.
type Fetcher interface {
	Fetch(ctx context.Context, source CalendarSource) ([]Event, error)
}

// Publisher performs a single external write per event.
type Publisher interface {
	Publish(ctx context.Context, post Post) error
}

// LastRunStore persists the source→last-successful-poll mapping. Load
// reads the full mapping; Save replaces it in one atomic overwrite.
type LastRunStore interface {
	Load() (map[string]time.Time, error)
	Save(runs map[string]time.Time) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
