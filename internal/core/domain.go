package core

import (
	"time"
)

// Resource keys identify the three upstream exports.
const (
	ResourceOrders   ResourceKey = "orders"
	ResourceArticles ResourceKey = "articles"
	ResourceExpenses ResourceKey = "expenses"
)

type (
	ResourceKey string

	// Order is one completed marketplace transaction.
	Order struct {
		PurchaseDate     time.Time
		MerchandiseValue float64
		ShipmentCosts    float64
		TotalValue       float64
		Commission       float64
		NetValue         float64 // TotalValue - Commission, always derived
		Country          string
	}

	// SoldArticle is one individual card sold. Name, SetName and Rarity are
	// empty when the export does not carry the column.
	SoldArticle struct {
		Price   float64
		Name    string
		SetName string
		Rarity  string
	}

	// Expense is one purchasing or operational cost entry.
	Expense struct {
		OrderDate    time.Time
		ItemPrice    float64
		CostCategory string
		StoreCountry string
		StoreName    string
		Description  string
	}

	// OrderTable holds orders sorted ascending by PurchaseDate.
	OrderTable struct {
		Rows     []Order
		Source   string
		LoadedAt time.Time
	}

	// ArticleTable keeps the export order of its rows.
	ArticleTable struct {
		Rows      []SoldArticle
		HasName   bool
		HasSet    bool
		HasRarity bool
		Source    string
		LoadedAt  time.Time
	}

	// ExpenseTable holds expenses sorted ascending by OrderDate.
	ExpenseTable struct {
		Rows     []Expense
		Source   string
		LoadedAt time.Time
	}
)

// Keys returns all resource keys in display order.
func Keys() []ResourceKey {
	return []ResourceKey{ResourceOrders, ResourceArticles, ResourceExpenses}
}

func (k ResourceKey) String() string {
	return string(k)
}

// IsValid reports whether k names one of the known exports.
func (k ResourceKey) IsValid() bool {
	switch k {
	case ResourceOrders, ResourceArticles, ResourceExpenses:
		return true
	}
	return false
}

// Len returns the number of rows; a nil table has none.
func (t *OrderTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *ArticleTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *ExpenseTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// MonthStart returns the first day of the calendar month t falls in, as
// written in t's own offset, expressed in UTC. Dates parsed with different
// offsets in the same month share one MonthStart, so it can key a map.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthLabel formats t the way the dashboard labels months, e.g. "Jan 2024".
func MonthLabel(t time.Time) string {
	return t.Format("Jan 2006")
}
