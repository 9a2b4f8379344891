package mindseye

import (
	"context"

	healthuc "github.com/kailas-cloud/mindseye/internal/usecase/health"
)

// HealthStatus represents the aggregated client health.
type HealthStatus struct {
	Status string            // "ok", "degraded"
	Checks map[string]string // component → "ok"/"error"/"empty"
	Events int
}

// Health checks the held index and, for Redis, source connectivity.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
		Events: report.Events,
	}
}

// Ready returns ErrNotLoaded until a collection has been loaded.
func (c *Client) Ready(ctx context.Context) error {
	return c.healthSvc.Ready(ctx)
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
	Ready(ctx context.Context) error
}
