package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mindseye/internal/domain"
	"github.com/kailas-cloud/mindseye/internal/domain/event"
	"github.com/kailas-cloud/mindseye/internal/usecase/search"
)

// ValidateBatch checks that every id is non-empty and unique.
func ValidateBatch[T any](events []event.Event[T]) error {
	seen := make(map[string]int, len(events))
	for i, e := range events {
		if e.ID() == "" {
			return fmt.Errorf("%w: event at index %d has empty id", domain.ErrMalformedInput, i)
		}
		if first, dup := seen[e.ID()]; dup {
			return fmt.Errorf("%w: duplicate id %q at index %d (first at %d)",
				domain.ErrMalformedInput, e.ID(), i, first)
		}
		seen[e.ID()] = i
	}
	return nil
}

// Service moves collections from a Loader into the search store.
type Service[T any] struct {
	loader Loader[T]
	target Target[T]
	logger *zap.Logger
}

// New creates an ingest Service.
func New[T any](loader Loader[T], target Target[T], logger *zap.Logger) *Service[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service[T]{loader: loader, target: target, logger: logger}
}

// Refresh pulls the whole collection and replaces the held one.
// On any error the previously loaded collection stays in place.
func (s *Service[T]) Refresh(ctx context.Context) (search.Info, error) {
	events, err := s.loader.LoadEvents(ctx)
	if err != nil {
		return search.Info{}, fmt.Errorf("refresh: %w", err)
	}
	if err := ValidateBatch(events); err != nil {
		return search.Info{}, fmt.Errorf("refresh: %w", err)
	}
	return s.target.Load(events), nil
}

// Run refreshes every interval until ctx is done. Failed refreshes are logged.
func (s *Service[T]) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			info, err := s.Refresh(ctx)
			if err != nil {
				s.logger.Error("Periodic refresh failed", zap.Error(err))
				continue
			}
			s.logger.Debug("Periodic refresh done",
				zap.String("generation", info.Generation),
				zap.Int("events", info.Events),
			)
		}
	}
}
