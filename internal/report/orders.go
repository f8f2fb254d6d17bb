package report

import (
	"sort"
	"time"

	"cardmarket-bi/internal/core"

	"github.com/shopspring/decimal"
)

// MonthlyOrders is one calendar month of orders.
type MonthlyOrders struct {
	Month  time.Time
	Label  string
	Orders int
	Net    float64
}

type OrderKPIs struct {
	TotalOrders       int
	Gross             float64
	Commission        float64
	CommissionPct     float64
	Net               float64
	AvgNet            float64
	AvgOrdersPerMonth float64

	BestMonth    MonthlyOrders
	HasBestMonth bool

	// Net revenue of the last month minus the one before it.
	MonthDelta    float64
	MonthDeltaPct float64
	HasMonthDelta bool
}

// Order value brackets on net value, right-closed.
var (
	orderValueEdges  = []float64{5, 10, 20, 50, 100, 200}
	orderValueLabels = []string{"<€5", "€5–10", "€10–20", "€20–50", "€50–100", "€100–200", "€200+"}
)

func netValues(t *core.OrderTable) []float64 {
	out := make([]float64, t.Len())
	for i, o := range t.Rows {
		out[i] = o.NetValue
	}
	return out
}

// OrderSummary computes the headline order metrics.
func OrderSummary(t *core.OrderTable) OrderKPIs {
	k := OrderKPIs{TotalOrders: t.Len()}
	if k.TotalOrders == 0 {
		return k
	}
	gross, comm := decimal.Zero, decimal.Zero
	for _, o := range t.Rows {
		gross = gross.Add(decimal.NewFromFloat(o.TotalValue))
		comm = comm.Add(decimal.NewFromFloat(o.Commission))
	}
	k.Gross = gross.InexactFloat64()
	k.Commission = comm.InexactFloat64()
	if !gross.IsZero() {
		k.CommissionPct = comm.Div(gross).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	nets := netValues(t)
	k.Net = sum(nets)
	k.AvgNet = mean(nets)

	months := Monthly(t)
	k.AvgOrdersPerMonth = float64(k.TotalOrders) / float64(len(months))
	for i, m := range months {
		if i == 0 || m.Net > k.BestMonth.Net {
			k.BestMonth = m
		}
	}
	k.HasBestMonth = true
	if n := len(months); n >= 2 {
		last, prev := months[n-1].Net, months[n-2].Net
		k.MonthDelta = Round2(last - prev)
		if prev != 0 {
			k.MonthDeltaPct = (last - prev) / prev * 100
		}
		k.HasMonthDelta = true
	}
	return k
}

// Monthly groups orders by calendar month, oldest first.
func Monthly(t *core.OrderTable) []MonthlyOrders {
	type acc struct {
		orders int
		net    decimal.Decimal
	}
	by := map[time.Time]*acc{}
	for _, o := range t.Rows {
		m := monthKey(o.PurchaseDate)
		a, ok := by[m]
		if !ok {
			a = &acc{net: decimal.Zero}
			by[m] = a
		}
		a.orders++
		a.net = a.net.Add(decimal.NewFromFloat(o.NetValue))
	}
	out := make([]MonthlyOrders, 0, len(by))
	for m, a := range by {
		out = append(out, MonthlyOrders{Month: m, Label: core.MonthLabel(m), Orders: a.orders, Net: a.net.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// CumulativeNet returns the running sum of NetValue in table order, one
// point per order.
func CumulativeNet(t *core.OrderTable) []Point {
	out := make([]Point, t.Len())
	running := decimal.Zero
	for i, o := range t.Rows {
		running = running.Add(decimal.NewFromFloat(o.NetValue))
		out[i] = Point{Date: o.PurchaseDate, Value: running.InexactFloat64()}
	}
	return out
}

// OrderValueBrackets counts orders by net value.
func OrderValueBrackets(t *core.OrderTable) []Bucket {
	return bucketize(netValues(t), orderValueEdges, orderValueLabels)
}

// WeekdayCount is the number of orders placed on one weekday.
type WeekdayCount struct {
	Day    string
	Orders int
}

// WeekdayCounts returns Monday through Sunday.
func WeekdayCounts(t *core.OrderTable) []WeekdayCount {
	var counts [7]int
	for _, o := range t.Rows {
		counts[o.PurchaseDate.Weekday()]++
	}
	out := make([]WeekdayCount, 0, 7)
	for i := 1; i <= 7; i++ {
		d := time.Weekday(i % 7)
		out = append(out, WeekdayCount{Day: d.String(), Orders: counts[d]})
	}
	return out
}

type CountryStat struct {
	Country string
	Orders  int
	Net     float64
	// Share of all orders, in percent.
	Share float64
}

// CountryStats sorts countries by order count descending, then name.
// Orders without a country are left out.
func CountryStats(t *core.OrderTable) []CountryStat {
	names := make([]string, t.Len())
	for i, o := range t.Rows {
		names[i] = o.Country
	}
	groups := groupStats(names, netValues(t))
	out := make([]CountryStat, len(groups))
	for i, g := range groups {
		out[i] = CountryStat{Country: g.Name, Orders: g.Count, Net: g.Total}
		if t.Len() > 0 {
			out[i].Share = float64(g.Count) * 100 / float64(t.Len())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Orders != out[j].Orders {
			return out[i].Orders > out[j].Orders
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// TopCountries returns up to n countries with the most orders.
func TopCountries(t *core.OrderTable, n int) []string {
	stats := CountryStats(t)
	if n < len(stats) {
		stats = stats[:n]
	}
	out := make([]string, len(stats))
	for i, s := range stats {
		out[i] = s.Country
	}
	return out
}

// CountrySeries is a running order count for one country.
type CountrySeries struct {
	Country string
	Points  []Point
}

// CumulativeOrdersByCountry evaluates every country's running order count
// at each distinct purchase date, so all series share the same x axis.
func CumulativeOrdersByCountry(t *core.OrderTable, countries []string) []CountrySeries {
	var dates []time.Time
	for i, o := range t.Rows {
		if i == 0 || !o.PurchaseDate.Equal(t.Rows[i-1].PurchaseDate) {
			dates = append(dates, o.PurchaseDate)
		}
	}

	out := make([]CountrySeries, len(countries))
	for ci, c := range countries {
		out[ci] = CountrySeries{Country: c, Points: make([]Point, len(dates))}
		count, di := 0, 0
		for _, o := range t.Rows {
			for !o.PurchaseDate.Equal(dates[di]) {
				out[ci].Points[di] = Point{Date: dates[di], Value: float64(count)}
				di++
			}
			if o.Country == c {
				count++
			}
		}
		for ; di < len(dates); di++ {
			out[ci].Points[di] = Point{Date: dates[di], Value: float64(count)}
		}
	}
	return out
}

// CountryMonth is the activity of one country in one month.
type CountryMonth struct {
	Month   time.Time
	Label   string
	Country string
	Orders  int
	Net     float64
}

// MonthlyRevenueByCountry returns month×country rows for the given
// countries, ordered by month then by the order of countries.
func MonthlyRevenueByCountry(t *core.OrderTable, countries []string) []CountryMonth {
	rank := make(map[string]int, len(countries))
	for i, c := range countries {
		rank[c] = i
	}
	type key struct {
		month   time.Time
		country string
	}
	type acc struct {
		orders int
		net    decimal.Decimal
	}
	by := map[key]*acc{}
	for _, o := range t.Rows {
		if _, ok := rank[o.Country]; !ok {
			continue
		}
		k := key{monthKey(o.PurchaseDate), o.Country}
		a, ok := by[k]
		if !ok {
			a = &acc{net: decimal.Zero}
			by[k] = a
		}
		a.orders++
		a.net = a.net.Add(decimal.NewFromFloat(o.NetValue))
	}
	out := make([]CountryMonth, 0, len(by))
	for k, a := range by {
		out = append(out, CountryMonth{
			Month:   k.month,
			Label:   core.MonthLabel(k.month),
			Country: k.country,
			Orders:  a.orders,
			Net:     a.net.Round(2).InexactFloat64(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Month.Equal(out[j].Month) {
			return out[i].Month.Before(out[j].Month)
		}
		return rank[out[i].Country] < rank[out[j].Country]
	})
	return out
}
