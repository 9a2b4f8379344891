package search

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mindseye/internal/domain/event"
	"github.com/kailas-cloud/mindseye/internal/domain/search/filter"
	"github.com/kailas-cloud/mindseye/internal/domain/search/trigram"
)

// Options selects optional pipeline stages.
type Options struct {
	// UseTrigram narrows candidates through the trigram index before filtering.
	UseTrigram bool
}

// Info describes the currently held snapshot.
type Info struct {
	Generation string
	LoadedAt   time.Time
	Events     int
	Shingles   int
}

// snapshot pairs a collection with the index derived from it. Never mutated after publish.
type snapshot[T any] struct {
	info   Info
	events []event.Event[T]
	texts  []string // canonical text per event, same order as events
	index  *trigram.Index
}

// Store owns one event collection and its trigram index.
// Load swaps in a new (collection, index) pair atomically; concurrent
// Searches always see a matching pair.
type Store[T any] struct {
	loadMu   sync.Mutex
	current  atomic.Pointer[snapshot[T]]
	logger   *zap.Logger
	recorder Recorder
}

// NewStore creates an empty store.
func NewStore[T any](logger *zap.Logger) *Store[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store[T]{logger: logger, recorder: nopRecorder{}}
	s.current.Store(&snapshot[T]{index: trigram.Build(nil)})
	return s
}

// WithRecorder attaches a metrics recorder.
func (s *Store[T]) WithRecorder(r Recorder) *Store[T] {
	if r != nil {
		s.recorder = r
	}
	return s
}

// Load replaces the held collection and rebuilds the index wholesale.
// The slice is copied; ids are assumed unique.
func (s *Store[T]) Load(events []event.Event[T]) Info {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	start := time.Now()

	held := make([]event.Event[T], len(events))
	copy(held, events)

	texts := make([]string, len(held))
	docs := make([]trigram.Doc, len(held))
	for i, e := range held {
		texts[i] = e.CanonicalText()
		docs[i] = trigram.Doc{ID: e.ID(), Text: texts[i]}
	}
	idx := trigram.Build(docs)

	snap := &snapshot[T]{
		info: Info{
			Generation: uuid.NewString(),
			LoadedAt:   time.Now().UTC(),
			Events:     len(held),
			Shingles:   idx.Len(),
		},
		events: held,
		texts:  texts,
		index:  idx,
	}
	s.current.Store(snap)

	d := time.Since(start)
	s.recorder.ObserveLoad(snap.info.Events, snap.info.Shingles, d)
	s.logger.Info("Events loaded",
		zap.String("generation", snap.info.Generation),
		zap.Int("events", snap.info.Events),
		zap.Int("shingles", snap.info.Shingles),
		zap.Duration("duration", d),
	)

	return snap.info
}

// Search runs the query pipeline against the current snapshot:
// trigram narrowing (optional), structured filtering, then exact
// case-insensitive substring confirmation whenever a text query is present.
// Results keep the relative order of the loaded collection.
func (s *Store[T]) Search(filters filter.Filters, opts Options) ([]event.Event[T], error) {
	start := time.Now()
	snap := s.current.Load()

	results, candidates, err := s.search(snap, filters, opts)

	s.recorder.ObserveSearch(opts.UseTrigram, candidates, len(results), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Search completed",
		zap.String("generation", snap.info.Generation),
		zap.Bool("trigram", opts.UseTrigram),
		zap.Bool("text", filters.HasText()),
		zap.Int("candidates", candidates),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)),
	)
	return results, nil
}

func (s *Store[T]) search(
	snap *snapshot[T], filters filter.Filters, opts Options,
) ([]event.Event[T], int, error) {
	pred, err := filter.Compile(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}

	var hits trigram.IDSet
	if opts.UseTrigram && filters.HasText() {
		hits = snap.index.Query(filters.TextQuery())
	}
	query := strings.ToLower(filters.TextQuery())

	candidates := 0
	results := make([]event.Event[T], 0)
	for i, e := range snap.events {
		if hits != nil && !hits.Has(e.ID()) {
			continue
		}
		candidates++

		ok, err := filter.Match(pred, e)
		if err != nil {
			return nil, candidates, fmt.Errorf("search: %w", err)
		}
		if !ok {
			continue
		}

		// Exact confirmation removes trigram false positives and covers
		// the case where narrowing was skipped.
		if filters.HasText() && !strings.Contains(snap.texts[i], query) {
			continue
		}
		results = append(results, e)
	}
	return results, candidates, nil
}

// Events returns a copy of the held collection in load order.
func (s *Store[T]) Events() []event.Event[T] {
	snap := s.current.Load()
	out := make([]event.Event[T], len(snap.events))
	copy(out, snap.events)
	return out
}

// Info describes the held snapshot. Generation is empty before the first Load.
func (s *Store[T]) Info() Info {
	return s.current.Load().info
}
