package http

import (
	"context"
	"net/http"
	"time"

	"cardmarket-bi/internal/core"
	"cardmarket-bi/internal/ingest"
	"cardmarket-bi/internal/log"
	"cardmarket-bi/internal/report"

	"golang.org/x/sync/errgroup"
)

const (
	pageTimeout   = 60 * time.Second
	recentOrders  = 100
	topCountries  = 5
	histogramBins = 20
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home_page", s.newPage(r, "CardMarket BI", "home"))
}

// orderRow is one line of the orders table with its running net total.
type orderRow struct {
	core.Order
	Cumulative float64
}

type ordersView struct {
	page
	KPIs        report.OrderKPIs
	MonthlyNet  []Bar
	MonthlyCnt  []Bar
	Cumulative  []Bar
	Countries   []report.CountryStat
	Brackets    []Bar
	Recent      []orderRow
	TotalOrders int
	Source      string
	LoadedAt    time.Time
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Orders Overview", "orders")
	ctx, cancel := context.WithTimeout(r.Context(), pageTimeout)
	defer cancel()

	orders, err := s.tables.Orders(ctx)
	if err != nil {
		s.renderLoadError(w, r, p, err)
		return
	}

	monthly := report.Monthly(orders)
	cum := report.CumulativeNet(orders)

	view := ordersView{
		page: p,
		KPIs: report.OrderSummary(orders),
		MonthlyNet: barsOf(monthly,
			func(m report.MonthlyOrders) string { return m.Label },
			func(m report.MonthlyOrders) float64 { return m.Net },
			report.EUR),
		MonthlyCnt: barsOf(monthly,
			func(m report.MonthlyOrders) string { return m.Label },
			func(m report.MonthlyOrders) float64 { return float64(m.Orders) },
			countText),
		Cumulative:  monthEnds(cum),
		Countries:   report.CountryStats(orders),
		Brackets:    bucketBars(report.OrderValueBrackets(orders)),
		Recent:      newestOrders(orders, cum, recentOrders),
		TotalOrders: orders.Len(),
		Source:      orders.Source,
		LoadedAt:    orders.LoadedAt,
	}
	s.render(w, r, http.StatusOK, "orders_page", view)
}

// monthEnds keeps the last point of every month so a per-order running
// total can be drawn as one bar per month.
func monthEnds(points []report.Point) []Bar {
	type monthPoint struct {
		label string
		value float64
	}
	var ends []monthPoint
	for i, pt := range points {
		last := i == len(points)-1 || !core.MonthStart(points[i+1].Date).Equal(core.MonthStart(pt.Date))
		if last {
			ends = append(ends, monthPoint{core.MonthLabel(pt.Date), pt.Value})
		}
	}
	return barsOf(ends,
		func(m monthPoint) string { return m.label },
		func(m monthPoint) float64 { return m.value },
		report.EUR)
}

func newestOrders(t *core.OrderTable, cum []report.Point, limit int) []orderRow {
	n := min(limit, t.Len())
	out := make([]orderRow, 0, n)
	for i := t.Len() - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, orderRow{Order: t.Rows[i], Cumulative: cum[i].Value})
	}
	return out
}

func bucketBars(buckets []report.Bucket) []Bar {
	return barsOf(buckets,
		func(b report.Bucket) string { return b.Label },
		func(b report.Bucket) float64 { return float64(b.Count) },
		countText)
}

func groupBars(stats []report.GroupStat, value func(report.GroupStat) float64, text func(float64) string) []Bar {
	return barsOf(stats, func(g report.GroupStat) string { return g.Name }, value, text)
}

// seriesTable lays several series out as rows sharing the same columns.
type seriesTable struct {
	Columns []string
	Rows    []seriesRow
	Money   bool
}

type seriesRow struct {
	Label  string
	Values []float64
}

// countryOrdersByMonth samples cumulative country series at month ends.
func countryOrdersByMonth(series []report.CountrySeries) seriesTable {
	var st seriesTable
	if len(series) == 0 {
		return st
	}
	for _, cs := range series {
		st.Columns = append(st.Columns, cs.Country)
	}
	points := series[0].Points
	for i, pt := range points {
		if i < len(points)-1 && core.MonthStart(points[i+1].Date).Equal(core.MonthStart(pt.Date)) {
			continue
		}
		row := seriesRow{Label: core.MonthLabel(pt.Date)}
		for _, cs := range series {
			row.Values = append(row.Values, cs.Points[i].Value)
		}
		st.Rows = append(st.Rows, row)
	}
	return st
}

// countryRevenueByMonth pivots month×country rows into a table.
func countryRevenueByMonth(rows []report.CountryMonth, countries []string) seriesTable {
	st := seriesTable{Columns: countries, Money: true}
	col := make(map[string]int, len(countries))
	for i, c := range countries {
		col[c] = i
	}
	for _, cm := range rows {
		if len(st.Rows) == 0 || st.Rows[len(st.Rows)-1].Label != cm.Label {
			st.Rows = append(st.Rows, seriesRow{Label: cm.Label, Values: make([]float64, len(countries))})
		}
		st.Rows[len(st.Rows)-1].Values[col[cm.Country]] = cm.Net
	}
	return st
}

type analyticsView struct {
	page
	Countries      []report.CountryStat
	CountryShare   []Bar
	TopCountries   []string
	CountryOrders  seriesTable
	CountryRevenue seriesTable
	Weekdays       []Bar
	PriceBuckets   []Bar
	Histogram      []report.HistBin
	HistogramBars  []Bar
	HasRarity      bool
	RarityCount    []Bar
	RarityRevenue  []Bar
	RarityAvg      []Bar
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Analytics", "analytics")
	ctx, cancel := context.WithTimeout(r.Context(), pageTimeout)
	defer cancel()

	var (
		orders   *core.OrderTable
		articles *core.ArticleTable
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.tables.Orders(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		articles, err = s.tables.Articles(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.renderLoadError(w, r, p, err)
		return
	}

	countries := report.CountryStats(orders)
	top := report.TopCountries(orders, topCountries)
	weekdays := report.WeekdayCounts(orders)
	hist := report.PriceHistogram(articles, histogramBins)
	rarity := report.RarityStats(articles)

	view := analyticsView{
		page:      p,
		Countries: countries,
		CountryShare: barsOf(countries,
			func(c report.CountryStat) string { return c.Country },
			func(c report.CountryStat) float64 { return c.Share },
			report.Pct),
		TopCountries:   top,
		CountryOrders:  countryOrdersByMonth(report.CumulativeOrdersByCountry(orders, top)),
		CountryRevenue: countryRevenueByMonth(report.MonthlyRevenueByCountry(orders, top), top),
		Weekdays: barsOf(weekdays,
			func(d report.WeekdayCount) string { return d.Day },
			func(d report.WeekdayCount) float64 { return float64(d.Orders) },
			countText),
		PriceBuckets: bucketBars(report.PriceBuckets(articles)),
		Histogram:    hist,
		HistogramBars: barsOf(hist,
			func(b report.HistBin) string { return report.EUR(b.Lo) + " – " + report.EUR(b.Hi) },
			func(b report.HistBin) float64 { return float64(b.Count) },
			countText),
		HasRarity:     articles.HasRarity,
		RarityCount:   groupBars(rarity, func(g report.GroupStat) float64 { return float64(g.Count) }, countText),
		RarityRevenue: groupBars(rarity, func(g report.GroupStat) float64 { return g.Total }, report.EUR),
		RarityAvg:     groupBars(rarity, func(g report.GroupStat) float64 { return g.Avg }, report.EUR),
	}
	s.render(w, r, http.StatusOK, "analytics_page", view)
}

type articlesView struct {
	page
	KPIs    report.ArticleKPIs
	Table   *core.ArticleTable
	Rarity  []report.GroupStat
	Sets    []report.GroupStat
	SetBars []Bar
	Buckets []Bar
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Sold Articles", "articles")
	ctx, cancel := context.WithTimeout(r.Context(), pageTimeout)
	defer cancel()

	articles, err := s.tables.Articles(ctx)
	if err != nil {
		s.renderLoadError(w, r, p, err)
		return
	}
	sets := report.SetStats(articles)
	view := articlesView{
		page:    p,
		KPIs:    report.ArticleSummary(articles),
		Table:   articles,
		Rarity:  report.RarityStats(articles),
		Sets:    sets,
		SetBars: groupBars(sets, func(g report.GroupStat) float64 { return g.Total }, report.EUR),
		Buckets: bucketBars(report.PriceBuckets(articles)),
	}
	s.render(w, r, http.StatusOK, "articles_page", view)
}

type costsView struct {
	page
	Disabled bool
	Locked   bool
	Error    string

	Categories         []string
	Countries          []string
	SelectedCategories []string
	SelectedCountries  []string

	KPIs          report.ExpenseKPIs
	ByCategory    []Bar
	Monthly       []report.MonthCategory
	CountryTotals []report.CountryCategory
	Heatmap       report.Matrix
	Recent        []core.Expense
}

func (s *Server) renderCostsDisabled(w http.ResponseWriter, r *http.Request) {
	view := costsView{page: s.newPage(r, "Costs", "costs"), Disabled: true}
	s.render(w, r, http.StatusForbidden, "costs_page", view)
}

func (s *Server) renderLocked(w http.ResponseWriter, r *http.Request, status int, msg string) {
	view := costsView{page: s.newPage(r, "Costs", "costs"), Locked: true, Error: msg}
	s.render(w, r, status, "costs_page", view)
}

func (s *Server) handleUnlockLimited(w http.ResponseWriter, r *http.Request) {
	s.requestLogger(r).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Unlock rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r))
	s.renderLocked(w, r, http.StatusTooManyRequests, "Too many attempts. Try again in a minute.")
}

func (s *Server) handleCosts(w http.ResponseWriter, r *http.Request) {
	if s.gate == nil {
		s.renderCostsDisabled(w, r)
		return
	}
	if !s.unlocked(r) {
		s.renderLocked(w, r, http.StatusOK, "")
		return
	}

	p := s.newPage(r, "Costs", "costs")
	ctx, cancel := context.WithTimeout(r.Context(), pageTimeout)
	defer cancel()

	expenses, err := s.tables.Expenses(ctx)
	if err != nil {
		s.renderLoadError(w, r, p, err)
		return
	}

	cats, countries := report.Distinct(expenses)
	selCats := queryList(r, "category")
	selCountries := queryList(r, "country")
	rows := report.FilterExpenses(expenses, selCats, selCountries)

	view := costsView{
		page:               p,
		Categories:         cats,
		Countries:          countries,
		SelectedCategories: selCats,
		SelectedCountries:  selCountries,
		KPIs:               report.ExpenseSummary(rows),
		ByCategory:         groupBars(report.CategoryTotals(rows), func(g report.GroupStat) float64 { return g.Total }, report.EUR),
		Monthly:            report.MonthlyByCategory(rows),
		CountryTotals:      report.CountryCategoryTotals(rows),
		Heatmap:            report.MonthCategoryMatrix(rows),
		Recent:             report.Recent(rows),
	}
	s.render(w, r, http.StatusOK, "costs_page", view)
}

type settingsView struct {
	page
	Resources  []ingest.ResourceStatus
	CacheTTL   time.Duration
	InstanceID string
	Broadcast  bool
	Refreshed  bool
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	view := settingsView{
		page:       s.newPage(r, "Settings", "settings"),
		Resources:  s.tables.Status(),
		CacheTTL:   s.cacheTTL,
		InstanceID: s.instanceID,
		Broadcast:  s.broadcaster != nil,
		Refreshed:  r.URL.Query().Get("refreshed") == "1",
	}
	s.render(w, r, http.StatusOK, "settings_page", view)
}

// handleRefresh clears the local cache and asks other instances to do
// the same. A failed broadcast is logged; the local refresh still counts.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)
	s.tables.Refresh()
	logger.InfoContext(r.Context(), "Cache refreshed from settings", log.FieldOperation, log.OpRefresh)

	if s.broadcaster != nil {
		if err := s.broadcaster.PublishRefresh(r.Context(), "settings"); err != nil {
			logger.WarnContext(r.Context(), "Refresh broadcast failed",
				log.FieldOperation, log.OpBroadcast, log.FieldError, err)
		}
	}
	http.Redirect(w, r, "/settings?refreshed=1", http.StatusSeeOther)
}
