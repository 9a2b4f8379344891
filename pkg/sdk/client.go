package mindseye

import (
	"context"
	"errors"
	"fmt"
	"time"

	dbRedis "github.com/kailas-cloud/mindseye/internal/db/redis"
	"github.com/kailas-cloud/mindseye/internal/domain/stats"
	"github.com/kailas-cloud/mindseye/internal/repository/eventfile"
	"github.com/kailas-cloud/mindseye/internal/repository/eventlist"
	healthuc "github.com/kailas-cloud/mindseye/internal/usecase/health"
	"github.com/kailas-cloud/mindseye/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/mindseye/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the mindseye SDK entry point. It is safe for concurrent use:
// searches run against a consistent snapshot while loads replace it.
type Client struct {
	store      *searchuc.Store[any]
	ingestSvc  *ingest.Service[any] // nil without a source
	healthSvc  healthUseCase
	useTrigram bool
	closeFn    func()
	obs        *observer
}

// source is an opened event source.
type source struct {
	loader ingest.Loader[any]
	pinger healthuc.SourcePinger
	close  func()
}

// New creates a Client. With WithFile or WithRedis the collection is loaded
// before New returns; otherwise the client starts empty.
// The provided context bounds the initial connection and load.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{useTrigram: true}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.path != "" && len(cfg.addrs) > 0 {
		return nil, errors.New("mindseye: WithFile and WithRedis are mutually exclusive")
	}

	src, err := openSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		src.close()
		return nil, err
	}

	c := wireClient(cfg, src, obs)
	if c.ingestSvc != nil {
		if _, err := c.Refresh(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

func openSource(ctx context.Context, cfg *clientConfig) (source, error) {
	switch {
	case cfg.path != "":
		return source{loader: eventfile.NewSource[any](cfg.path), close: func() {}}, nil

	case len(cfg.addrs) > 0:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return source{}, fmt.Errorf("mindseye: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return source{}, fmt.Errorf("mindseye: redis not ready: %w", err)
		}
		return source{loader: eventlist.New[any](s, cfg.key), pinger: s, close: s.Close}, nil

	default:
		return source{close: func() {}}, nil
	}
}

func wireClient(cfg *clientConfig, src source, obs *observer) *Client {
	store := searchuc.NewStore[any](nil)

	var ingestSvc *ingest.Service[any]
	if src.loader != nil {
		ingestSvc = ingest.New(src.loader, store, nil)
	}

	return &Client{
		store:      store,
		ingestSvc:  ingestSvc,
		healthSvc:  healthuc.New(store, src.pinger),
		useTrigram: cfg.useTrigram,
		closeFn:    src.close,
		obs:        obs,
	}
}

// Close releases the source connection, if any.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// Refresh re-reads the configured source and replaces the held collection.
// On error the previous collection stays in place.
func (c *Client) Refresh(ctx context.Context) (info LoadInfo, err error) {
	start := time.Now()
	defer func() { c.obs.observe("refresh", start, err) }()

	if c.ingestSvc == nil {
		return LoadInfo{}, ErrNoSource
	}
	got, err := c.ingestSvc.Refresh(ctx)
	if err != nil {
		return LoadInfo{}, fmt.Errorf("mindseye: %w", err)
	}
	return fromInfo(got), nil
}

// Load replaces the held collection with events.
// Ids must be non-empty and unique, otherwise ErrMalformedInput is returned
// and the previous collection stays in place.
func (c *Client) Load(ctx context.Context, events []Event) (info LoadInfo, err error) {
	start := time.Now()
	defer func() { c.obs.observe("load", start, err) }()

	if err := ctx.Err(); err != nil {
		return LoadInfo{}, err
	}
	batch := toDomainEvents(events)
	if err := ingest.ValidateBatch(batch); err != nil {
		return LoadInfo{}, fmt.Errorf("mindseye: %w", err)
	}
	return fromInfo(c.store.Load(batch)), nil
}

// Info describes the held collection.
func (c *Client) Info() LoadInfo {
	return fromInfo(c.store.Info())
}

// Events returns the held collection in load order.
func (c *Client) Events() []Event {
	return fromDomainEvents(c.store.Events())
}

// Stats counts the held events per UTC day, ascending.
func (c *Client) Stats(ctx context.Context) (daily []DailyCount, err error) {
	start := time.Now()
	defer func() { c.obs.observe("stats", start, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts, err := stats.CountEventsPerDay(c.store.Events())
	if err != nil {
		return nil, fmt.Errorf("mindseye: %w", err)
	}
	return fromDailyCounts(counts), nil
}

// Search starts a query over the held collection.
func (c *Client) Search() *SearchBuilder {
	return &SearchBuilder{client: c, useTrigram: c.useTrigram}
}
