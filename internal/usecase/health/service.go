package health

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/mindseye/internal/domain"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckEmpty indicates the index holds no loaded collection yet.
	CheckEmpty CheckResult = "empty"
)

// Report aggregates health check results.
type Report struct {
	Status     Status
	Checks     map[string]CheckResult
	Events     int
	Generation string
}

// Service coordinates health checks.
type Service struct {
	index  IndexInfo
	source SourcePinger
}

// New creates a Service. source can be nil when events are only pushed over HTTP.
func New(index IndexInfo, source SourcePinger) *Service {
	return &Service{index: index, source: source}
}

// Check reports index state and, when configured, event source reachability.
// An empty index is not a failure: the service answers searches with no results.
func (s *Service) Check(ctx context.Context) Report {
	info := s.index.Info()
	checks := make(map[string]CheckResult)

	if info.Generation == "" {
		checks["index"] = CheckEmpty
	} else {
		checks["index"] = CheckOK
	}

	status := Healthy
	if s.source != nil {
		if err := s.source.Ping(ctx); err != nil {
			checks["source"] = CheckError
			status = Degraded
		} else {
			checks["source"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks, Events: info.Events, Generation: info.Generation}
}

// Ready returns domain.ErrNotLoaded until the first collection has been loaded.
func (s *Service) Ready(_ context.Context) error {
	if s.index.Info().Generation == "" {
		return fmt.Errorf("ready: %w", domain.ErrNotLoaded)
	}
	return nil
}
