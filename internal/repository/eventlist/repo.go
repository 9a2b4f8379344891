package eventlist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/mindseye/internal/domain"
	"github.com/kailas-cloud/mindseye/internal/domain/event"
)

// DefaultKey is the list read when no key is configured.
const DefaultKey = "mindseye:events"

// listStore is the consumer interface for reading a Redis list.
type listStore interface {
	LRangeAll(ctx context.Context, key string) ([]string, error)
}

// Repo reads a collection stored as a Redis list of JSON events.
type Repo[T any] struct {
	store listStore
	key   string
}

// New creates a Repo. An empty key uses DefaultKey.
func New[T any](store listStore, key string) *Repo[T] {
	if key == "" {
		key = DefaultKey
	}
	return &Repo[T]{store: store, key: key}
}

// Key returns the list key.
func (r *Repo[T]) Key() string { return r.key }

// LoadEvents reads the whole list in order.
func (r *Repo[T]) LoadEvents(ctx context.Context) ([]event.Event[T], error) {
	raw, err := r.store.LRangeAll(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("load events from %s: %w", r.key, err)
	}

	events := make([]event.Event[T], 0, len(raw))
	for i, item := range raw {
		var e event.Event[T]
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", domain.ErrMalformedInput, r.key, i, err)
		}
		events = append(events, e)
	}
	return events, nil
}
