package health

import (
	"context"

	"github.com/kailas-cloud/mindseye/internal/usecase/search"
)

// SourcePinger checks event source availability.
type SourcePinger interface {
	Ping(ctx context.Context) error
}

// IndexInfo exposes the state of the held snapshot.
type IndexInfo interface {
	Info() search.Info
}
