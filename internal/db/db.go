package db

import (
	"context"
	"time"
)

// Store is the database facade used by event sources.
type Store interface {
	Pinger
	ListReader
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ListReader reads whole lists.
type ListReader interface {
	// LRangeAll returns every element of the list at key. A missing key yields an empty slice.
	LRangeAll(ctx context.Context, key string) ([]string, error)
}
