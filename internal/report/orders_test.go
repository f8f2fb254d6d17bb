package report

import (
	"math"
	"testing"
	"time"

	"cardmarket-bi/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func order(date time.Time, total, commission float64, country string) core.Order {
	return core.Order{PurchaseDate: date, TotalValue: total, Commission: commission, NetValue: total - commission, Country: country}
}

func TestCumulativeNetExample(t *testing.T) {
	tbl := &core.OrderTable{Rows: []core.Order{
		order(day(2024, 1, 1), 20, 2, "Germany"),
		order(day(2024, 1, 2), 10, 1, "France"),
	}}
	got := CumulativeNet(tbl)
	if len(got) != 2 || got[0].Value != 18 || got[1].Value != 27 {
		t.Fatalf("want [18 27], got %+v", got)
	}
}

func TestCumulativeNetIsPrefixSum(t *testing.T) {
	nets := []float64{1.1, 2.2, -0.3, 10.45, 0.01}
	tbl := &core.OrderTable{}
	for i, n := range nets {
		tbl.Rows = append(tbl.Rows, order(day(2024, 1, i+1), n, 0, "X"))
	}
	got := CumulativeNet(tbl)
	for i := range nets {
		want := sum(nets[:i+1])
		if got[i].Value != want {
			t.Fatalf("index %d: want %v got %v", i, want, got[i].Value)
		}
	}
	if got[2].Value != 3 {
		t.Fatalf("decimal accumulation expected 3, got %v", got[2].Value)
	}
}

func TestOrderSummary(t *testing.T) {
	tbl := &core.OrderTable{Rows: []core.Order{
		order(day(2024, 1, 5), 10, 1, "DE"),
		order(day(2024, 1, 20), 20, 2, "FR"),
		order(day(2024, 2, 2), 50, 5, "DE"),
	}}
	k := OrderSummary(tbl)
	if k.TotalOrders != 3 || k.Gross != 80 || k.Commission != 8 || k.Net != 72 {
		t.Fatalf("unexpected totals %+v", k)
	}
	if k.CommissionPct != 10 || k.AvgNet != 24 || k.AvgOrdersPerMonth != 1.5 {
		t.Fatalf("unexpected ratios %+v", k)
	}
	if !k.HasBestMonth || k.BestMonth.Label != "Feb 2024" {
		t.Fatalf("unexpected best month %+v", k.BestMonth)
	}
	if !k.HasMonthDelta || k.MonthDelta != 18 || math.Abs(k.MonthDeltaPct-200.0/3) > 1e-9 {
		t.Fatalf("unexpected delta %v %v", k.MonthDelta, k.MonthDeltaPct)
	}
}

func TestOrderSummaryEmpty(t *testing.T) {
	k := OrderSummary(&core.OrderTable{})
	if k.TotalOrders != 0 || k.HasBestMonth || k.HasMonthDelta {
		t.Fatalf("unexpected summary %+v", k)
	}
}

func TestMonthly(t *testing.T) {
	tbl := &core.OrderTable{Rows: []core.Order{
		order(day(2023, 12, 31), 5, 0, "A"),
		order(day(2024, 1, 1), 7, 1, "A"),
		order(day(2024, 1, 31), 3, 0, "B"),
	}}
	got := Monthly(tbl)
	if len(got) != 2 || got[0].Label != "Dec 2023" || got[1].Orders != 2 || got[1].Net != 9 {
		t.Fatalf("unexpected months %+v", got)
	}
}

func TestMonthlyMixedOffsets(t *testing.T) {
	var rows []core.Order
	for _, text := range []string{"2024-03-01T10:00:00+01:00", "2024-03-15T10:00:00+01:00", "2024-03-31T12:00:00+02:00"} {
		d, err := core.ParseDate(text, core.MonthFirst)
		if err != nil {
			t.Fatalf("parse %q: %v", text, err)
		}
		rows = append(rows, order(d, 10, 1, "A"))
	}
	tbl := &core.OrderTable{Rows: rows}

	got := Monthly(tbl)
	if len(got) != 1 || got[0].Label != "Mar 2024" || got[0].Orders != 3 {
		t.Fatalf("want one March bucket with 3 orders, got %+v", got)
	}
	if k := OrderSummary(tbl); k.AvgOrdersPerMonth != 3 {
		t.Fatalf("want 3 orders per month, got %v", k.AvgOrdersPerMonth)
	}
	if rev := MonthlyRevenueByCountry(tbl, []string{"A"}); len(rev) != 1 || rev[0].Orders != 3 {
		t.Fatalf("unexpected country months %+v", rev)
	}
}

func TestOrderValueBrackets(t *testing.T) {
	tbl := &core.OrderTable{}
	for _, n := range []float64{-1, 5, 5.01, 20, 199.99, 200, 200.01, 1000} {
		tbl.Rows = append(tbl.Rows, order(day(2024, 1, 1), n, 0, "A"))
	}
	got := OrderValueBrackets(tbl)
	want := map[string]int{"<€5": 2, "€5–10": 1, "€10–20": 1, "€100–200": 2, "€200+": 2}
	total := 0
	for _, b := range got {
		total += b.Count
		if b.Count != want[b.Label] {
			t.Fatalf("%s: want %d got %d", b.Label, want[b.Label], b.Count)
		}
	}
	if total != tbl.Len() {
		t.Fatalf("brackets must partition all orders")
	}
}

func TestWeekdayCounts(t *testing.T) {
	tbl := &core.OrderTable{Rows: []core.Order{
		order(day(2024, 4, 1), 1, 0, "A"), // Monday
		order(day(2024, 4, 7), 1, 0, "A"), // Sunday
		order(day(2024, 4, 8), 1, 0, "A"), // Monday
	}}
	got := WeekdayCounts(tbl)
	if got[0].Day != "Monday" || got[0].Orders != 2 || got[6].Day != "Sunday" || got[6].Orders != 1 {
		t.Fatalf("unexpected counts %+v", got)
	}
}

func TestCountryStatsAndTop(t *testing.T) {
	tbl := &core.OrderTable{Rows: []core.Order{
		order(day(2024, 1, 1), 10, 0, "France"),
		order(day(2024, 1, 2), 10, 0, "Germany"),
		order(day(2024, 1, 3), 10, 0, "Germany"),
		order(day(2024, 1, 4), 10, 0, "Austria"),
		order(day(2024, 1, 5), 10, 0, ""),
	}}
	stats := CountryStats(tbl)
	if len(stats) != 3 || stats[0].Country != "Germany" || stats[0].Orders != 2 || stats[0].Share != 40 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	top := TopCountries(tbl, 2)
	if len(top) != 2 || top[0] != "Germany" || top[1] != "Austria" {
		t.Fatalf("unexpected top %v", top)
	}
}

func TestCumulativeOrdersByCountry(t *testing.T) {
	tbl := &core.OrderTable{Rows: []core.Order{
		order(day(2024, 1, 1), 1, 0, "A"),
		order(day(2024, 1, 1), 1, 0, "B"),
		order(day(2024, 1, 2), 1, 0, "A"),
		order(day(2024, 1, 3), 1, 0, "B"),
	}}
	got := CumulativeOrdersByCountry(tbl, []string{"A", "B"})
	a, b := got[0].Points, got[1].Points
	if len(a) != 3 || a[0].Value != 1 || a[1].Value != 2 || a[2].Value != 2 {
		t.Fatalf("unexpected A series %+v", a)
	}
	if b[0].Value != 1 || b[1].Value != 1 || b[2].Value != 2 {
		t.Fatalf("unexpected B series %+v", b)
	}
}

func TestMonthlyRevenueByCountry(t *testing.T) {
	tbl := &core.OrderTable{Rows: []core.Order{
		order(day(2024, 1, 1), 10, 1, "A"),
		order(day(2024, 1, 9), 5, 0, "B"),
		order(day(2024, 1, 9), 5, 0, "C"),
		order(day(2024, 2, 1), 3, 0, "A"),
	}}
	got := MonthlyRevenueByCountry(tbl, []string{"B", "A"})
	if len(got) != 3 {
		t.Fatalf("want 3 rows, got %+v", got)
	}
	if got[0].Country != "B" || got[1].Country != "A" || got[1].Net != 9 || got[2].Label != "Feb 2024" {
		t.Fatalf("unexpected rows %+v", got)
	}
}
