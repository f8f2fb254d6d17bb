package report

import (
	"sort"
	"time"

	"cardmarket-bi/internal/core"

	"github.com/shopspring/decimal"
)

// Distinct returns the sorted distinct categories and store countries.
func Distinct(t *core.ExpenseTable) (categories, countries []string) {
	cs, ks := map[string]struct{}{}, map[string]struct{}{}
	for _, e := range t.Rows {
		if e.CostCategory != "" {
			cs[e.CostCategory] = struct{}{}
		}
		if e.StoreCountry != "" {
			ks[e.StoreCountry] = struct{}{}
		}
	}
	return sortedKeys(cs), sortedKeys(ks)
}

// FilterExpenses keeps rows whose category and country are selected. An
// empty selection does not filter on that field.
func FilterExpenses(t *core.ExpenseTable, categories, countries []string) []core.Expense {
	cs, ks := set(categories), set(countries)
	out := make([]core.Expense, 0, t.Len())
	for _, e := range t.Rows {
		if len(cs) > 0 {
			if _, ok := cs[e.CostCategory]; !ok {
				continue
			}
		}
		if len(ks) > 0 {
			if _, ok := ks[e.StoreCountry]; !ok {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

type ExpenseKPIs struct {
	Total        float64
	Avg          float64
	Count        int
	TopCategory  string
	TopSpend     float64
	ActiveMonths int
}

func itemPrices(rows []core.Expense) []float64 {
	out := make([]float64, len(rows))
	for i, e := range rows {
		out[i] = e.ItemPrice
	}
	return out
}

func ExpenseSummary(rows []core.Expense) ExpenseKPIs {
	ps := itemPrices(rows)
	k := ExpenseKPIs{Total: sum(ps), Avg: mean(ps), Count: len(rows)}
	if cats := CategoryTotals(rows); len(cats) > 0 {
		k.TopCategory, k.TopSpend = cats[0].Name, cats[0].Total
	}
	months := map[time.Time]struct{}{}
	for _, e := range rows {
		months[monthKey(e.OrderDate)] = struct{}{}
	}
	k.ActiveMonths = len(months)
	return k
}

// CategoryTotals sorts categories by spend descending.
func CategoryTotals(rows []core.Expense) []GroupStat {
	names := make([]string, len(rows))
	for i, e := range rows {
		names[i] = e.CostCategory
	}
	return groupStats(names, itemPrices(rows))
}

// MonthCategory is the spend of one category in one month.
type MonthCategory struct {
	Month    time.Time
	Label    string
	Category string
	Spend    float64
}

// MonthlyByCategory orders by month, then category name.
func MonthlyByCategory(rows []core.Expense) []MonthCategory {
	type key struct {
		month    time.Time
		category string
	}
	by := map[key]decimal.Decimal{}
	for _, e := range rows {
		k := key{monthKey(e.OrderDate), e.CostCategory}
		by[k] = by[k].Add(decimal.NewFromFloat(e.ItemPrice))
	}
	out := make([]MonthCategory, 0, len(by))
	for k, v := range by {
		out = append(out, MonthCategory{Month: k.month, Label: core.MonthLabel(k.month), Category: k.category, Spend: v.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Month.Equal(out[j].Month) {
			return out[i].Month.Before(out[j].Month)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// CountryCategory is the spend of one category in one store country.
type CountryCategory struct {
	Country  string
	Category string
	Spend    float64
}

// CountryCategoryTotals orders by country, then category name.
func CountryCategoryTotals(rows []core.Expense) []CountryCategory {
	type key struct{ country, category string }
	by := map[key]decimal.Decimal{}
	for _, e := range rows {
		k := key{e.StoreCountry, e.CostCategory}
		by[k] = by[k].Add(decimal.NewFromFloat(e.ItemPrice))
	}
	out := make([]CountryCategory, 0, len(by))
	for k, v := range by {
		out = append(out, CountryCategory{Country: k.country, Category: k.category, Spend: v.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Country != out[j].Country {
			return out[i].Country < out[j].Country
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Matrix is a month×category heatmap. Values[i][j] is the spend of
// Categories[j] in Months[i].
type Matrix struct {
	Months     []string
	Categories []string
	Values     [][]float64
	Max        float64
}

func MonthCategoryMatrix(rows []core.Expense) Matrix {
	cells := MonthlyByCategory(rows)
	var m Matrix
	monthIdx := map[time.Time]int{}
	catSet := map[string]struct{}{}
	for _, c := range cells {
		if _, ok := monthIdx[c.Month]; !ok {
			monthIdx[c.Month] = len(m.Months)
			m.Months = append(m.Months, c.Label)
		}
		catSet[c.Category] = struct{}{}
	}
	m.Categories = sortedKeys(catSet)
	catIdx := make(map[string]int, len(m.Categories))
	for i, c := range m.Categories {
		catIdx[c] = i
	}
	m.Values = make([][]float64, len(m.Months))
	for i := range m.Values {
		m.Values[i] = make([]float64, len(m.Categories))
	}
	for _, c := range cells {
		v := Round2(c.Spend)
		m.Values[monthIdx[c.Month]][catIdx[c.Category]] = v
		if v > m.Max {
			m.Max = v
		}
	}
	return m
}

// Recent returns the rows newest first without touching the input.
func Recent(rows []core.Expense) []core.Expense {
	out := append([]core.Expense(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	return out
}

func set(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			out[v] = struct{}{}
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
