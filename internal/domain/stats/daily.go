package stats

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/mindseye/internal/domain/event"
)

// DailyCount is the number of events created on one UTC calendar day.
type DailyCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// CountEventsPerDay groups events by the UTC date of CreatedAt.
// Only observed days appear, sorted ascending. An unparsable timestamp
// fails the whole count with domain.ErrInvalidTimestamp.
func CountEventsPerDay[T any](events []event.Event[T]) ([]DailyCount, error) {
	counts := make(map[string]int)
	for _, e := range events {
		ts, err := e.Instant()
		if err != nil {
			return nil, fmt.Errorf("count event %s: %w", e.ID(), err)
		}
		counts[ts.UTC().Format("2006-01-02")]++
	}

	out := make([]DailyCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, DailyCount{Day: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}
