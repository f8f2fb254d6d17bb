package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cardmarket-bi/internal/cache"
	"cardmarket-bi/internal/core"
	"cardmarket-bi/internal/log"
	"cardmarket-bi/internal/sources"
	"cardmarket-bi/internal/sources/memory"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

const (
	ordersCSV   = "Date of Purchase,Total Value,Commission\n2024-01-02,\"10,00\",\"1,00\"\n2024-01-01,\"20,00\",\"2,00\"\n"
	articlesCSV = "card_prices,name\n\"0,50\",Bolt\n"
	expensesCSV = "Order_Date,Item_Price,Cost_Category,Store_Country\n03/04/2024,12.5,Sealed,Germany\n"
)

func testResources() []sources.Resource {
	return []sources.Resource{
		{Key: core.ResourceOrders, URL: "mem://orders.csv", Format: sources.FormatCSV},
		{Key: core.ResourceArticles, URL: "mem://articles.csv", Format: sources.FormatCSV},
		{Key: core.ResourceExpenses, URL: "mem://expenses.csv", Format: sources.FormatCSV},
	}
}

func newTestStore(t *testing.T) (*Store, *memory.Store, *clock) {
	t.Helper()
	mem := memory.New(map[string][]byte{
		"orders.csv":   []byte(ordersCSV),
		"articles.csv": []byte(articlesCSV),
		"expenses.csv": []byte(expensesCSV),
	})
	clk := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	s, err := NewStore(sources.NewTableFetcher(mem, 0), testResources(), Options{
		OrdersDateOrder:   core.MonthFirst,
		ExpensesDateOrder: core.DayFirst,
		Clock:             clk.Now,
		Logger:            log.Discard(),
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s, mem, clk
}

func TestStoreHitWithinTTLReturnsSameInstance(t *testing.T) {
	s, mem, clk := newTestStore(t)
	ctx := context.Background()

	first, err := s.Orders(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clk.Advance(30 * time.Minute)
	second, err := s.Orders(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatal("expected the cached instance")
	}
	if mem.Hits("orders.csv") != 1 {
		t.Fatalf("want 1 fetch, got %d", mem.Hits("orders.csv"))
	}
	if first.Source != "mem://orders.csv" || !first.LoadedAt.Equal(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected metadata %q %v", first.Source, first.LoadedAt)
	}
}

func TestStoreRefetchesAfterTTL(t *testing.T) {
	s, mem, clk := newTestStore(t)
	ctx := context.Background()

	first, _ := s.Articles(ctx)
	clk.Advance(time.Hour)
	second, err := s.Articles(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second || mem.Hits("articles.csv") != 2 {
		t.Fatalf("expected a refetch after expiry")
	}
}

func TestStoreRefreshForcesRefetch(t *testing.T) {
	s, mem, _ := newTestStore(t)
	ctx := context.Background()

	first, _ := s.Orders(ctx)
	s.Refresh()
	for _, st := range s.Status() {
		if st.State != cache.Empty {
			t.Fatalf("%s: want empty after refresh, got %v", st.Key, st.State)
		}
	}
	second, err := s.Orders(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second || mem.Hits("orders.csv") != 2 {
		t.Fatal("expected a new instance after refresh")
	}
}

// gatedSource holds the first fetch until release is closed.
type gatedSource struct {
	inner   TableSource
	started chan struct{}
	release chan struct{}

	mu      sync.Mutex
	fetches int
}

func (g *gatedSource) FetchTable(ctx context.Context, res sources.Resource) (*sources.RawTable, error) {
	g.mu.Lock()
	g.fetches++
	n := g.fetches
	g.mu.Unlock()
	if n == 1 {
		close(g.started)
		<-g.release
	}
	return g.inner.FetchTable(ctx, res)
}

func (g *gatedSource) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetches
}

func TestStoreRefreshDuringFetchIsNotUndone(t *testing.T) {
	mem := memory.New(map[string][]byte{"orders.csv": []byte(ordersCSV)})
	src := &gatedSource{
		inner:   sources.NewTableFetcher(mem, 0),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s, err := NewStore(src, testResources(), Options{Logger: log.Discard()})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	done := make(chan *core.OrderTable)
	go func() {
		tbl, err := s.Orders(ctx)
		if err != nil {
			t.Errorf("first load: %v", err)
		}
		done <- tbl
	}()

	<-src.started
	s.Refresh()
	close(src.release)
	first := <-done

	second, err := s.Orders(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.count() != 2 {
		t.Fatalf("want a new fetch after refresh, got %d fetches", src.count())
	}
	if first == second {
		t.Fatal("table fetched before refresh was served after it")
	}
}

func TestStoreFailureNeverServesStaleValue(t *testing.T) {
	s, mem, clk := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Expenses(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clk.Advance(2 * time.Hour)
	mem.Put("expenses.csv", []byte("Order_Date,Item_Price\n03/04/2024,1\n"))

	tbl, err := s.Expenses(ctx)
	if tbl != nil {
		t.Fatal("stale table must not be returned on failure")
	}
	le, ok := core.AsLoadError(err)
	if !ok || le.URL != "mem://expenses.csv" || le.Kind != core.KindSchema {
		t.Fatalf("unexpected error %v", err)
	}

	status := s.Status()[2]
	if status.State != cache.Stale || status.LastError == "" || status.Age != 2*time.Hour {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestStoreFetchError(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.resources[core.ResourceArticles] = sources.Resource{Key: core.ResourceArticles, URL: "mem://gone.csv"}

	_, err := s.Articles(context.Background())
	le, ok := core.AsLoadError(err)
	if !ok || le.Kind != core.KindFetch || !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestStoreGetAndWarm(t *testing.T) {
	s, mem, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Warm(ctx); err != nil {
		t.Fatalf("warm: %v", err)
	}
	for _, name := range []string{"orders.csv", "articles.csv", "expenses.csv"} {
		if mem.Hits(name) != 1 {
			t.Fatalf("%s: want 1 fetch, got %d", name, mem.Hits(name))
		}
	}

	v, err := s.Get(ctx, core.ResourceExpenses)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := v.(*core.ExpenseTable); !ok {
		t.Fatalf("unexpected type %T", v)
	}
	if _, err := s.Get(ctx, "inventory"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				s.Refresh()
			}
			if _, err := s.Orders(ctx); err != nil {
				t.Errorf("orders: %v", err)
			}
		}(i)
	}
	wg.Wait()
}

func TestNewStoreRequiresAllResources(t *testing.T) {
	_, err := NewStore(sources.NewTableFetcher(memory.New(nil), 0), testResources()[:2], Options{})
	if err == nil {
		t.Fatal("expected error for missing resource")
	}
}
