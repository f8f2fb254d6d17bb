package report

import (
	"testing"
	"time"

	"cardmarket-bi/internal/core"
)

func expenseTable() *core.ExpenseTable {
	e := func(d time.Time, p float64, cat, country string) core.Expense {
		return core.Expense{OrderDate: d, ItemPrice: p, CostCategory: cat, StoreCountry: country}
	}
	return &core.ExpenseTable{Rows: []core.Expense{
		e(day(2024, 1, 3), 89.9, "Sealed", "Germany"),
		e(day(2024, 1, 15), 12, "Supplies", "Italy"),
		e(day(2024, 2, 7), 150, "Singles", "Germany"),
		e(day(2024, 3, 4), 9.5, "Supplies", "Italy"),
	}}
}

func TestDistinct(t *testing.T) {
	cats, countries := Distinct(expenseTable())
	if len(cats) != 3 || cats[0] != "Sealed" || len(countries) != 2 || countries[1] != "Italy" {
		t.Fatalf("unexpected distinct values %v %v", cats, countries)
	}
}

func TestFilterExpenses(t *testing.T) {
	tbl := expenseTable()
	if got := FilterExpenses(tbl, nil, nil); len(got) != 4 {
		t.Fatalf("empty selection keeps everything, got %d", len(got))
	}
	if got := FilterExpenses(tbl, []string{"Supplies"}, nil); len(got) != 2 {
		t.Fatalf("want 2 supplies, got %d", len(got))
	}
	if got := FilterExpenses(tbl, []string{"Supplies", "Singles"}, []string{"Germany"}); len(got) != 1 || got[0].ItemPrice != 150 {
		t.Fatalf("unexpected filter result %+v", got)
	}
}

func TestExpenseSummary(t *testing.T) {
	k := ExpenseSummary(expenseTable().Rows)
	if k.Count != 4 || k.Total != 261.4 || k.Avg != 65.35 {
		t.Fatalf("unexpected totals %+v", k)
	}
	if k.TopCategory != "Singles" || k.TopSpend != 150 || k.ActiveMonths != 3 {
		t.Fatalf("unexpected summary %+v", k)
	}
	if empty := ExpenseSummary(nil); empty.Count != 0 || empty.TopCategory != "" {
		t.Fatalf("unexpected empty summary %+v", empty)
	}
}

func TestExpenseMonthsMixedOffsets(t *testing.T) {
	plus1 := time.FixedZone("", 3600)
	plus2 := time.FixedZone("", 7200)
	rows := []core.Expense{
		{OrderDate: time.Date(2024, 3, 2, 9, 0, 0, 0, plus1), ItemPrice: 10, CostCategory: "Sealed"},
		{OrderDate: time.Date(2024, 3, 30, 9, 0, 0, 0, plus2), ItemPrice: 5, CostCategory: "Sealed"},
	}
	if k := ExpenseSummary(rows); k.ActiveMonths != 1 {
		t.Fatalf("want 1 active month, got %d", k.ActiveMonths)
	}
	if monthly := MonthlyByCategory(rows); len(monthly) != 1 || monthly[0].Spend != 15 {
		t.Fatalf("unexpected monthly %+v", monthly)
	}
	if m := MonthCategoryMatrix(rows); len(m.Months) != 1 {
		t.Fatalf("want one heatmap row, got %v", m.Months)
	}
}

func TestMonthlyByCategoryAndMatrix(t *testing.T) {
	rows := expenseTable().Rows
	monthly := MonthlyByCategory(rows)
	if len(monthly) != 4 || monthly[0].Category != "Sealed" || monthly[1].Category != "Supplies" {
		t.Fatalf("unexpected monthly %+v", monthly)
	}

	m := MonthCategoryMatrix(rows)
	if len(m.Months) != 3 || m.Months[0] != "Jan 2024" || m.Months[2] != "Mar 2024" {
		t.Fatalf("unexpected months %v", m.Months)
	}
	if len(m.Categories) != 3 || m.Categories[2] != "Supplies" {
		t.Fatalf("unexpected categories %v", m.Categories)
	}
	if m.Values[0][2] != 12 || m.Values[1][0] != 0 || m.Values[1][1] != 150 || m.Max != 150 {
		t.Fatalf("unexpected values %v", m.Values)
	}
}

func TestCountryCategoryTotals(t *testing.T) {
	got := CountryCategoryTotals(expenseTable().Rows)
	if len(got) != 3 || got[2].Country != "Italy" || got[2].Spend != 21.5 {
		t.Fatalf("unexpected totals %+v", got)
	}
}

func TestRecent(t *testing.T) {
	rows := expenseTable().Rows
	got := Recent(rows)
	if got[0].ItemPrice != 9.5 || rows[0].ItemPrice != 89.9 {
		t.Fatal("expected newest first without mutating input")
	}
}
