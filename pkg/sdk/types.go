package mindseye

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/mindseye/internal/domain/event"
	"github.com/kailas-cloud/mindseye/internal/domain/stats"
	searchuc "github.com/kailas-cloud/mindseye/internal/usecase/search"
)

// Event is one activity record.
// CreatedAt is an RFC 3339 timestamp; Payload is any JSON-encodable value.
type Event struct {
	ID        string
	Source    string
	Kind      string
	CreatedAt string
	Payload   any
}

// DailyCount is the number of events created on one UTC day (YYYY-MM-DD).
type DailyCount struct {
	Day   string
	Count int
}

// LoadInfo describes the collection currently held by the client.
type LoadInfo struct {
	Generation string // changes on every load, empty before the first one
	LoadedAt   time.Time
	Events     int
	Shingles   int
}

// DecodePayload re-encodes an event payload into T.
func DecodePayload[T any](e Event) (T, error) {
	var out T
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return out, fmt.Errorf("encode payload of %s: %w", e.ID, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode payload of %s: %w", e.ID, err)
	}
	return out, nil
}

func toDomainEvents(events []Event) []event.Event[any] {
	out := make([]event.Event[any], len(events))
	for i, e := range events {
		out[i] = event.Reconstruct[any](e.ID, event.Source(e.Source), e.Kind, e.CreatedAt, e.Payload)
	}
	return out
}

func fromDomainEvents(events []event.Event[any]) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = Event{
			ID:        e.ID(),
			Source:    string(e.Source()),
			Kind:      e.Kind(),
			CreatedAt: e.CreatedAt(),
			Payload:   e.Payload(),
		}
	}
	return out
}

func fromDailyCounts(counts []stats.DailyCount) []DailyCount {
	out := make([]DailyCount, len(counts))
	for i, c := range counts {
		out[i] = DailyCount{Day: c.Day, Count: c.Count}
	}
	return out
}

func fromInfo(info searchuc.Info) LoadInfo {
	return LoadInfo{
		Generation: info.Generation,
		LoadedAt:   info.LoadedAt,
		Events:     info.Events,
		Shingles:   info.Shingles,
	}
}
