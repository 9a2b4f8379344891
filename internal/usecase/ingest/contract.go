package ingest

import (
	"context"

	"github.com/kailas-cloud/mindseye/internal/domain/event"
	"github.com/kailas-cloud/mindseye/internal/usecase/search"
)

// Loader reads a whole collection from an external source.
type Loader[T any] interface {
	LoadEvents(ctx context.Context) ([]event.Event[T], error)
}

// Target receives validated collections.
type Target[T any] interface {
	Load(events []event.Event[T]) search.Info
}
