// Package ingest turns raw exports into normalized tables and serves them
// through a TTL cache.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cardmarket-bi/internal/cache"
	"cardmarket-bi/internal/core"
	"cardmarket-bi/internal/log"
	"cardmarket-bi/internal/sources"

	"golang.org/x/sync/errgroup"
)

// DefaultTTL is how long a loaded table is served without refetching.
const DefaultTTL = time.Hour

// TableSource fetches and parses one resource.
type TableSource interface {
	FetchTable(ctx context.Context, res sources.Resource) (*sources.RawTable, error)
}

// Options tunes a Store. Zero values pick the defaults.
type Options struct {
	Schema            *Schema
	OrdersDateOrder   core.DateOrder
	ExpensesDateOrder core.DateOrder
	TTL               time.Duration
	Clock             cache.Clock
	Logger            *log.Logger
}

// ResourceStatus is what the settings page shows for one resource.
type ResourceStatus struct {
	Key       core.ResourceKey
	URL       string
	State     cache.State
	LoadedAt  time.Time
	Age       time.Duration
	LastError string
}

// Store owns the resource cache. Cached tables are never mutated, so the
// same pointer is handed to every caller until it expires or Refresh runs.
type Store struct {
	src       TableSource
	resources map[core.ResourceKey]sources.Resource
	schema    Schema
	orders    core.DateOrder
	expenses  core.DateOrder
	cache     *cache.TTLCache[any]
	now       cache.Clock
	logger    *log.Logger
	sl        *log.StructuredLogger

	errMu   sync.Mutex
	lastErr map[core.ResourceKey]string
}

func NewStore(src TableSource, resources []sources.Resource, opts Options) (*Store, error) {
	if src == nil {
		return nil, fmt.Errorf("nil table source")
	}
	byKey := make(map[core.ResourceKey]sources.Resource, len(resources))
	for _, r := range resources {
		if !r.Key.IsValid() {
			return nil, fmt.Errorf("unknown resource key %q", r.Key)
		}
		if r.URL == "" {
			return nil, fmt.Errorf("resource %s: empty url", r.Key)
		}
		byKey[r.Key] = r
	}
	for _, k := range core.Keys() {
		if _, ok := byKey[k]; !ok {
			return nil, fmt.Errorf("resource %s not configured", k)
		}
	}

	schema := DefaultSchema()
	if opts.Schema != nil {
		schema = *opts.Schema
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentIngest)

	return &Store{
		src:       src,
		resources: byKey,
		schema:    schema,
		orders:    opts.OrdersDateOrder,
		expenses:  opts.ExpensesDateOrder,
		cache:     cache.NewTTLCacheWithClock[any](ttl, now),
		now:       now,
		logger:    logger,
		sl:        log.NewStructuredLogger(logger),
		lastErr:   make(map[core.ResourceKey]string),
	}, nil
}

// Resource returns the configured location of key.
func (s *Store) Resource(key core.ResourceKey) (sources.Resource, bool) {
	r, ok := s.resources[key]
	return r, ok
}

func (s *Store) Orders(ctx context.Context) (*core.OrderTable, error) {
	return load(ctx, s, core.ResourceOrders, func(raw *sources.RawTable, res sources.Resource, at time.Time) (*core.OrderTable, error) {
		t, err := NormalizeOrders(raw, s.schema, s.orders)
		if err != nil {
			return nil, err
		}
		t.Source, t.LoadedAt = res.URL, at
		return t, nil
	})
}

func (s *Store) Articles(ctx context.Context) (*core.ArticleTable, error) {
	return load(ctx, s, core.ResourceArticles, func(raw *sources.RawTable, res sources.Resource, at time.Time) (*core.ArticleTable, error) {
		t, err := NormalizeArticles(raw, s.schema)
		if err != nil {
			return nil, err
		}
		t.Source, t.LoadedAt = res.URL, at
		return t, nil
	})
}

func (s *Store) Expenses(ctx context.Context) (*core.ExpenseTable, error) {
	return load(ctx, s, core.ResourceExpenses, func(raw *sources.RawTable, res sources.Resource, at time.Time) (*core.ExpenseTable, error) {
		t, err := NormalizeExpenses(raw, s.schema, s.expenses)
		if err != nil {
			return nil, err
		}
		t.Source, t.LoadedAt = res.URL, at
		return t, nil
	})
}

// Get loads any resource by key. The result is *core.OrderTable,
// *core.ArticleTable or *core.ExpenseTable.
func (s *Store) Get(ctx context.Context, key core.ResourceKey) (any, error) {
	switch key {
	case core.ResourceOrders:
		return s.Orders(ctx)
	case core.ResourceArticles:
		return s.Articles(ctx)
	case core.ResourceExpenses:
		return s.Expenses(ctx)
	}
	return nil, fmt.Errorf("unknown resource key %q", key)
}

// Refresh drops every cached table. The next access of each resource
// fetches it again.
func (s *Store) Refresh() {
	s.cache.Clear()
	s.logger.Info("Resource cache cleared", log.FieldOperation, log.OpRefresh)
}

// Warm loads all resources concurrently and returns the first failure.
func (s *Store) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, k := range core.Keys() {
		g.Go(func() error {
			_, err := s.Get(ctx, k)
			return err
		})
	}
	return g.Wait()
}

// Status reports the cache state of every resource, in display order.
func (s *Store) Status() []ResourceStatus {
	now := s.now()
	s.errMu.Lock()
	defer s.errMu.Unlock()

	out := make([]ResourceStatus, 0, len(s.resources))
	for _, k := range core.Keys() {
		st, at := s.cache.Peek(string(k))
		rs := ResourceStatus{
			Key:       k,
			URL:       s.resources[k].URL,
			State:     st,
			LoadedAt:  at,
			LastError: s.lastErr[k],
		}
		if st != cache.Empty {
			rs.Age = now.Sub(at)
		}
		out = append(out, rs)
	}
	return out
}

// load serves key from the cache or fetches, normalizes and stores it. A
// failed load leaves the previous entry untouched and returns the error.
func load[T any](ctx context.Context, s *Store, key core.ResourceKey, build func(*sources.RawTable, sources.Resource, time.Time) (T, error)) (T, error) {
	var zero T
	if v, ok := s.cache.Get(string(key)); ok {
		if t, ok := v.(T); ok {
			s.logger.DebugContext(ctx, "Cache hit", log.FieldResource, key)
			return t, nil
		}
	}

	res := s.resources[key]
	gen := s.cache.Generation()
	start := s.now()
	raw, err := s.src.FetchTable(ctx, res)
	if err != nil {
		return zero, s.fail(ctx, res, err)
	}
	t, err := build(raw, res, s.now())
	if err != nil {
		return zero, s.fail(ctx, res, err)
	}

	// A Refresh during the fetch wins: the result goes to this caller only.
	if !s.cache.SetIfGeneration(string(key), t, gen) {
		s.logger.DebugContext(ctx, "Discarding table fetched before refresh", log.FieldResource, key)
	}
	s.errMu.Lock()
	delete(s.lastErr, key)
	s.errMu.Unlock()
	s.sl.LogResourceLoaded(ctx, string(key), res.URL, raw.Len(), s.now().Sub(start))
	return t, nil
}

// fail completes a LoadError with the resource location and records it.
func (s *Store) fail(ctx context.Context, res sources.Resource, err error) error {
	le, ok := core.AsLoadError(err)
	if !ok {
		le = &core.LoadError{Resource: res.Key, URL: res.URL, Kind: core.KindFetch, Err: err}
	}
	if le.URL == "" {
		le.URL = res.URL
	}
	if le.Resource == "" {
		le.Resource = res.Key
	}

	s.errMu.Lock()
	s.lastErr[res.Key] = le.Error()
	s.errMu.Unlock()

	s.sl.LogError(ctx, "Resource load failed", le, log.ComponentIngest, log.OpFetch,
		log.NewFields().WithResource(string(res.Key), res.URL).With(log.FieldErrorKind, string(le.Kind)))
	return le
}
