package filter

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/mindseye/internal/domain/event"
)

// TimeRange is an inclusive ISO-8601 time window. Empty bounds impose no constraint.
type TimeRange struct {
	From string
	To   string
}

// IsEmpty reports whether neither bound is set.
func (r TimeRange) IsEmpty() bool { return r.From == "" && r.To == "" }

// Filters is a search configuration. Every field is optional; absent fields
// impose no constraint and present fields are combined with AND.
// Sources and Kinds are OR-matched sets.
type Filters struct {
	Sources   []event.Source
	Kinds     []string
	TimeRange *TimeRange
	// Text is a free-text query. It is not evaluated by the structured
	// predicate; an empty (non-nil) string is a present query that matches everything.
	Text *string
}

// HasText reports whether a text query is present.
func (f Filters) HasText() bool { return f.Text != nil }

// TextQuery returns the text query, or "" if absent.
func (f Filters) TextQuery() string {
	if f.Text == nil {
		return ""
	}
	return *f.Text
}

// WithText returns a copy of f with the text query set.
func (f Filters) WithText(q string) Filters {
	f.Text = &q
	return f
}

// IsStructuredEmpty reports whether no source, kind, or time constraint is set.
func (f Filters) IsStructuredEmpty() bool {
	return len(f.Sources) == 0 && len(f.Kinds) == 0 && (f.TimeRange == nil || f.TimeRange.IsEmpty())
}

// Predicate is a compiled structured filter with parsed time bounds.
type Predicate struct {
	sources map[event.Source]struct{}
	kinds   map[string]struct{}
	from    *time.Time
	to      *time.Time
}

// Compile parses the time bounds of f once for repeated matching.
// An unparsable bound fails with domain.ErrInvalidTimestamp.
func Compile(f Filters) (Predicate, error) {
	var p Predicate
	if len(f.Sources) > 0 {
		p.sources = make(map[event.Source]struct{}, len(f.Sources))
		for _, s := range f.Sources {
			p.sources[s] = struct{}{}
		}
	}
	if len(f.Kinds) > 0 {
		p.kinds = make(map[string]struct{}, len(f.Kinds))
		for _, k := range f.Kinds {
			p.kinds[k] = struct{}{}
		}
	}
	if f.TimeRange != nil {
		if f.TimeRange.From != "" {
			t, err := event.ParseBound("timeRange.from", f.TimeRange.From)
			if err != nil {
				return Predicate{}, fmt.Errorf("compile filter: %w", err)
			}
			p.from = &t
		}
		if f.TimeRange.To != "" {
			t, err := event.ParseBound("timeRange.to", f.TimeRange.To)
			if err != nil {
				return Predicate{}, fmt.Errorf("compile filter: %w", err)
			}
			p.to = &t
		}
	}
	return p, nil
}

// Match reports whether e satisfies every configured predicate.
// The event timestamp is parsed only when a time bound is active.
func Match[T any](p Predicate, e event.Event[T]) (bool, error) {
	if p.sources != nil {
		if _, ok := p.sources[e.Source()]; !ok {
			return false, nil
		}
	}
	if p.kinds != nil {
		if _, ok := p.kinds[e.Kind()]; !ok {
			return false, nil
		}
	}
	if p.from == nil && p.to == nil {
		return true, nil
	}

	ts, err := e.Instant()
	if err != nil {
		return false, fmt.Errorf("event %s: %w", e.ID(), err)
	}
	if p.from != nil && ts.Before(*p.from) {
		return false, nil
	}
	if p.to != nil && ts.After(*p.to) {
		return false, nil
	}
	return true, nil
}

// Matches compiles f and evaluates it against a single event.
func Matches[T any](f Filters, e event.Event[T]) (bool, error) {
	p, err := Compile(f)
	if err != nil {
		return false, err
	}
	return Match(p, e)
}

// Apply returns the events satisfying f, preserving their relative order.
// The input slice is not modified.
func Apply[T any](events []event.Event[T], f Filters) ([]event.Event[T], error) {
	p, err := Compile(f)
	if err != nil {
		return nil, err
	}
	out := make([]event.Event[T], 0, len(events))
	for _, e := range events {
		ok, err := Match(p, e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}
