package mindseye

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/mindseye/internal/domain/event"
	"github.com/kailas-cloud/mindseye/internal/domain/search/filter"
	"github.com/kailas-cloud/mindseye/internal/domain/search/request"
	"github.com/kailas-cloud/mindseye/internal/domain/stats"
	searchuc "github.com/kailas-cloud/mindseye/internal/usecase/search"
)

// SearchBuilder is a fluent builder for event queries.
// Every condition is ANDed; an unset condition matches everything.
type SearchBuilder struct {
	client     *Client
	filters    filter.Filters
	useTrigram bool
}

// Text requires the payload to contain q, ignoring case.
// An empty q is still a text condition and matches every event.
func (b *SearchBuilder) Text(q string) *SearchBuilder {
	b.filters = b.filters.WithText(q)
	return b
}

// Sources restricts results to events from any of the given sources.
func (b *SearchBuilder) Sources(sources ...string) *SearchBuilder {
	for _, s := range sources {
		b.filters.Sources = append(b.filters.Sources, event.Source(s))
	}
	return b
}

// Kinds restricts results to events of any of the given kinds.
func (b *SearchBuilder) Kinds(kinds ...string) *SearchBuilder {
	b.filters.Kinds = append(b.filters.Kinds, kinds...)
	return b
}

// From sets the inclusive lower bound on createdAt (RFC 3339).
func (b *SearchBuilder) From(ts string) *SearchBuilder {
	b.timeRange().From = ts
	return b
}

// To sets the inclusive upper bound on createdAt (RFC 3339).
func (b *SearchBuilder) To(ts string) *SearchBuilder {
	b.timeRange().To = ts
	return b
}

// Between sets both bounds from time values.
func (b *SearchBuilder) Between(from, to time.Time) *SearchBuilder {
	return b.From(from.Format(time.RFC3339Nano)).To(to.Format(time.RFC3339Nano))
}

// Trigram overrides the client's trigram narrowing setting for this query.
func (b *SearchBuilder) Trigram(on bool) *SearchBuilder {
	b.useTrigram = on
	return b
}

func (b *SearchBuilder) timeRange() *filter.TimeRange {
	if b.filters.TimeRange == nil {
		b.filters.TimeRange = &filter.TimeRange{}
	}
	return b.filters.TimeRange
}

// Do runs the query. Results keep the order of the loaded collection.
func (b *SearchBuilder) Do(ctx context.Context) (events []Event, err error) {
	start := time.Now()
	defer func() { b.client.obs.observe("search", start, err) }()

	found, err := b.run(ctx)
	if err != nil {
		return nil, err
	}
	return fromDomainEvents(found), nil
}

// DailyCounts runs the query and counts the matches per UTC day.
func (b *SearchBuilder) DailyCounts(ctx context.Context) (daily []DailyCount, err error) {
	start := time.Now()
	defer func() { b.client.obs.observe("stats", start, err) }()

	found, err := b.run(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := stats.CountEventsPerDay(found)
	if err != nil {
		return nil, fmt.Errorf("mindseye: %w", err)
	}
	return fromDailyCounts(counts), nil
}

func (b *SearchBuilder) run(ctx context.Context) ([]event.Event[any], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req, err := request.New(b.filters, b.useTrigram)
	if err != nil {
		return nil, fmt.Errorf("mindseye: %w", err)
	}
	found, err := b.client.store.Search(req.Filters(), searchuc.Options{UseTrigram: req.UseTrigram()})
	if err != nil {
		return nil, fmt.Errorf("mindseye: %w", err)
	}
	return found, nil
}
