package spot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/orinocoz/energymeter/hours"
	"github.com/orinocoz/energymeter/metrics"
	"github.com/orinocoz/energymeter/types"
)

var ErrUpstreamUnavailable = errors.New("upstream price provider unavailable")

// Snapshot is an immutable view of the last successfully fetched series.
type Snapshot struct {
	Prices   []types.EnergyPrice `json:"prices"`
	Updated  time.Time           `json:"updated"`
	Provider string              `json:"provider"`
	Stale    bool                `json:"stale"`
}

// Window returns the time range to request from providers at now.
type Window func(now time.Time) (from, to time.Time)

// DayWindow requests from local midnight daysBack days ago to the end of
// the day daysAhead days from now.
func DayWindow(loc *time.Location, daysBack, daysAhead int) Window {
	return func(now time.Time) (time.Time, time.Time) {
		start := hours.StartOfDay(now, loc)
		return start.AddDate(0, 0, -daysBack), start.AddDate(0, 0, daysAhead+1)
	}
}

// Cache serves the most recent price snapshot and refreshes it from the
// providers, in order, once it is older than the TTL. A failed refresh
// keeps serving the previous snapshot.
type Cache struct {
	logger    *slog.Logger
	providers []types.EnergyPriceProvider
	ttl       time.Duration
	timeout   time.Duration
	now       func() time.Time
	window    Window

	group singleflight.Group

	mu        sync.RWMutex
	current   *Snapshot
	fetchedAt time.Time
	listeners []chan Snapshot
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Cache) { c.timeout = timeout }
}

func WithWindow(w Window) Option {
	return func(c *Cache) { c.window = w }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

func NewCache(providers []types.EnergyPriceProvider, opts ...Option) *Cache {
	if len(providers) == 0 {
		panic("no energy price providers")
	}
	c := &Cache{
		logger:    slog.Default().With(slog.String("module", "spot")),
		providers: providers,
		ttl:       5 * time.Minute,
		timeout:   10 * time.Second,
		now:       time.Now,
		window:    DayWindow(hours.Tallinn(), 1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnRefresh registers fn to be called after every successful refresh.
// Each listener runs on its own goroutine and never delays a fetch. A
// listener that falls behind only sees the latest snapshot.
func (c *Cache) OnRefresh(fn func(Snapshot)) {
	ch := make(chan Snapshot, 1)
	c.mu.Lock()
	c.listeners = append(c.listeners, ch)
	c.mu.Unlock()

	go func() {
		for s := range ch {
			c.call(fn, s)
		}
	}()
}

// Close stops the listener goroutines.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.listeners {
		close(ch)
	}
	c.listeners = nil
}

func (c *Cache) call(fn func(Snapshot), s Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("refresh listener panicked", slog.Any("panic", r))
		}
	}()
	fn(s)
}

// notify hands s to every listener, replacing a snapshot that has not
// been picked up yet. Callers hold c.mu.
func (c *Cache) notify(s Snapshot) {
	for _, ch := range c.listeners {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// Seed installs a snapshot, e.g. price history loaded at startup, without
// marking it fresh.
func (c *Cache) Seed(s Snapshot) {
	if len(s.Prices) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		c.current = &s
	}
}

// Current returns the cached snapshot without fetching.
func (c *Cache) Current() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return Snapshot{}, false
	}
	return *c.current, true
}

// Get returns the cached snapshot while it is fresh, and refreshes it otherwise.
func (c *Cache) Get(ctx context.Context) (Snapshot, error) {
	c.mu.RLock()
	fresh := c.current != nil && !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.ttl
	var s Snapshot
	if fresh {
		s = *c.current
	}
	c.mu.RUnlock()
	if fresh {
		return s, nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches a new series. Concurrent callers share one fetch.
func (c *Cache) Refresh(ctx context.Context) (Snapshot, error) {
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		return c.fetch(ctx)
	})
	if err == nil {
		return v.(Snapshot), nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return Snapshot{}, err
	}
	c.logger.Warn("serving stale energy prices", slog.Time("updated", c.current.Updated), slog.Any("error", err))
	metrics.RecordStaleServed()
	s := *c.current
	s.Stale = true
	return s, nil
}

func (c *Cache) fetch(ctx context.Context) (Snapshot, error) {
	from, to := c.window(c.now())

	var errs []error
	for _, p := range c.providers {
		start := time.Now()
		pctx, cancel := context.WithTimeout(ctx, c.timeout)
		prices, err := p.GetEnergyPrices(pctx, from, to)
		cancel()
		if err == nil && len(prices) == 0 {
			err = fmt.Errorf("no prices between %s and %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
		}
		metrics.RecordProviderFetch(p.Name(), err, time.Since(start))
		if err != nil {
			c.logger.Error("error fetching energy prices", slog.String("provider", p.Name()), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}

		s := Snapshot{
			Prices:   prices,
			Updated:  c.now(),
			Provider: p.Name(),
		}
		c.mu.Lock()
		c.current = &s
		c.fetchedAt = s.Updated
		c.notify(s)
		c.mu.Unlock()

		metrics.RecordSnapshot(s.Updated, len(prices))
		c.logger.Debug("energy prices refreshed", slog.String("provider", p.Name()), slog.Int("slots", len(prices)))
		return s, nil
	}

	return Snapshot{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, errors.Join(errs...))
}
