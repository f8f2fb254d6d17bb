// Package report computes the read-only aggregates shown by the dashboard
// pages. Every function is pure over the normalized tables; money is
// accumulated with decimal arithmetic and returned as float64.
package report

import (
	"math"
	"sort"
	"time"

	"cardmarket-bi/internal/core"

	"github.com/shopspring/decimal"
)

// Bucket counts the values that fall into one labelled range.
type Bucket struct {
	Label string
	Count int
	Total float64
}

// GroupStat summarizes the values sharing one label.
type GroupStat struct {
	Name  string
	Count int
	Total float64
	Avg   float64
}

// HistBin is one equal-width histogram bin [Lo, Hi).
type HistBin struct {
	Lo    float64
	Hi    float64
	Count int
}

// Point is one sample of a time series.
type Point struct {
	Date  time.Time
	Value float64
}

func sum(values []float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return decimal.NewFromFloat(sum(values)).
		Div(decimal.NewFromInt(int64(len(values)))).
		InexactFloat64()
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// Round2 rounds half away from zero to cents.
func Round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// bucketize assigns each value to the first range whose upper edge is >= the
// value. The first range is open below and the last open above, so every
// value lands in exactly one bucket.
func bucketize(values []float64, edges []float64, labels []string) []Bucket {
	out := make([]Bucket, len(labels))
	totals := make([]decimal.Decimal, len(labels))
	for i, l := range labels {
		out[i].Label = l
		totals[i] = decimal.Zero
	}
	for _, v := range values {
		i := sort.SearchFloat64s(edges, v)
		out[i].Count++
		totals[i] = totals[i].Add(decimal.NewFromFloat(v))
	}
	for i := range out {
		out[i].Total = totals[i].InexactFloat64()
	}
	return out
}

// histogram splits [min, max] into n equal-width bins; the last bin also
// holds max.
func histogram(values []float64, n int) []HistBin {
	if len(values) == 0 || n <= 0 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []HistBin{{Lo: lo, Hi: hi, Count: len(values)}}
	}
	width := (hi - lo) / float64(n)
	bins := make([]HistBin, n)
	for i := range bins {
		bins[i].Lo = lo + float64(i)*width
		bins[i].Hi = lo + float64(i+1)*width
	}
	bins[n-1].Hi = hi
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		bins[i].Count++
	}
	return bins
}

// groupStats groups values by name, skipping empty names, and sorts by
// total descending then name.
func groupStats(names []string, values []float64) []GroupStat {
	type acc struct {
		count int
		total decimal.Decimal
	}
	by := map[string]*acc{}
	for i, n := range names {
		if n == "" {
			continue
		}
		a, ok := by[n]
		if !ok {
			a = &acc{total: decimal.Zero}
			by[n] = a
		}
		a.count++
		a.total = a.total.Add(decimal.NewFromFloat(values[i]))
	}
	out := make([]GroupStat, 0, len(by))
	for n, a := range by {
		out = append(out, GroupStat{
			Name:  n,
			Count: a.count,
			Total: a.total.InexactFloat64(),
			Avg:   a.total.Div(decimal.NewFromInt(int64(a.count))).InexactFloat64(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// monthKey returns the month start used to group rows. It is comparable
// with == whatever offset the row date carried.
func monthKey(t time.Time) time.Time {
	return core.MonthStart(t)
}
