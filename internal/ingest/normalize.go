package ingest

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"cardmarket-bi/internal/core"
	"cardmarket-bi/internal/sources"

	"github.com/xuri/excelize/v2"
)

// NormalizeOrders coerces the orders export, derives NetValue and sorts by
// purchase date. Merchandise, shipment and country are optional.
func NormalizeOrders(raw *sources.RawTable, s Schema, order core.DateOrder) (*core.OrderTable, error) {
	c := s.Orders
	b := columns{raw: raw, key: core.ResourceOrders}
	if err := b.require(c.Date, c.Total, c.Commission); err != nil {
		return nil, err
	}

	dates, err := b.dates(c.Date, order)
	if err != nil {
		return nil, err
	}
	total, err := b.numbers(c.Total, true)
	if err != nil {
		return nil, err
	}
	commission, err := b.numbers(c.Commission, true)
	if err != nil {
		return nil, err
	}
	merchandise, err := b.numbers(c.Merchandise, false)
	if err != nil {
		return nil, err
	}
	shipment, err := b.numbers(c.Shipment, false)
	if err != nil {
		return nil, err
	}
	country := b.text(c.Country)

	rows := make([]core.Order, raw.Len())
	for i := range rows {
		rows[i] = core.Order{
			PurchaseDate:     dates[i],
			MerchandiseValue: merchandise[i],
			ShipmentCosts:    shipment[i],
			TotalValue:       total[i],
			Commission:       commission[i],
			NetValue:         total[i] - commission[i],
			Country:          country[i],
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].PurchaseDate.Before(rows[j].PurchaseDate)
	})
	return &core.OrderTable{Rows: rows}, nil
}

// NormalizeArticles coerces sold card prices. Name, set and rarity are
// carried only when present; row order is kept.
func NormalizeArticles(raw *sources.RawTable, s Schema) (*core.ArticleTable, error) {
	c := s.Articles
	b := columns{raw: raw, key: core.ResourceArticles}
	if err := b.require(c.Price); err != nil {
		return nil, err
	}
	prices, err := b.numbers(c.Price, true)
	if err != nil {
		return nil, err
	}
	names, sets, rarities := b.text(c.Name), b.text(c.Set), b.text(c.Rarity)

	rows := make([]core.SoldArticle, raw.Len())
	for i := range rows {
		rows[i] = core.SoldArticle{
			Price:   prices[i],
			Name:    names[i],
			SetName: sets[i],
			Rarity:  rarities[i],
		}
	}
	return &core.ArticleTable{
		Rows:      rows,
		HasName:   b.has(c.Name),
		HasSet:    b.has(c.Set),
		HasRarity: b.has(c.Rarity),
	}, nil
}

// NormalizeExpenses parses the expenses workbook and sorts by order date.
func NormalizeExpenses(raw *sources.RawTable, s Schema, order core.DateOrder) (*core.ExpenseTable, error) {
	c := s.Expenses
	b := columns{raw: raw, key: core.ResourceExpenses}
	if err := b.require(c.Date, c.Price, c.Category, c.Country); err != nil {
		return nil, err
	}
	dates, err := b.dates(c.Date, order)
	if err != nil {
		return nil, err
	}
	prices, err := b.numbers(c.Price, true)
	if err != nil {
		return nil, err
	}
	category, country := b.text(c.Category), b.text(c.Country)
	store, desc := b.text(c.Store), b.text(c.Description)

	rows := make([]core.Expense, raw.Len())
	for i := range rows {
		rows[i] = core.Expense{
			OrderDate:    dates[i],
			ItemPrice:    prices[i],
			CostCategory: category[i],
			StoreCountry: country[i],
			StoreName:    store[i],
			Description:  desc[i],
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].OrderDate.Before(rows[j].OrderDate)
	})
	return &core.ExpenseTable{Rows: rows}, nil
}

// columns reads typed columns out of a raw table and reports failures as
// schema errors for one resource.
type columns struct {
	raw *sources.RawTable
	key core.ResourceKey
}

func (b columns) has(name string) bool {
	return name != "" && b.raw.Index(name) >= 0
}

func (b columns) require(names ...string) error {
	for _, n := range names {
		if !b.has(n) {
			return core.MissingColumn(b.key, "", n)
		}
	}
	return nil
}

// numbers coerces a monetary column. Absent optional columns and empty
// optional cells read as zero.
func (b columns) numbers(name string, required bool) ([]float64, error) {
	if !b.has(name) {
		return make([]float64, b.raw.Len()), nil
	}
	idx := b.raw.Index(name)
	values := b.raw.Column(idx)
	if !required {
		for i, v := range values {
			if strings.TrimSpace(v) == "" {
				values[i] = "0"
			}
		}
	}
	out, err := core.CoerceColumn(values, b.raw.IsNumeric(idx))
	if err != nil {
		return nil, b.invalid(name, err)
	}
	return out, nil
}

// dates parses a date column. Workbook cells holding a plain number are
// Excel serial dates.
func (b columns) dates(name string, order core.DateOrder) ([]time.Time, error) {
	idx := b.raw.Index(name)
	values := b.raw.Column(idx)
	out := make([]time.Time, len(values))
	for i, v := range values {
		t, err := b.parseDate(v, order)
		if err != nil {
			return nil, b.invalid(name, &core.CellError{Row: i, Value: v, Err: err})
		}
		out[i] = t
	}
	return out, nil
}

// invalid reports a coercion failure against the row number the user sees
// in the source file.
func (b columns) invalid(name string, err error) *core.LoadError {
	le := core.InvalidCell(b.key, "", name, err)
	if le.Row > 0 {
		le.Row = b.raw.SourceRow(le.Row - 1)
	}
	return le
}

func (b columns) parseDate(v string, order core.DateOrder) (time.Time, error) {
	if b.raw.Format == sources.FormatXLSX {
		if serial, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			t, err := excelize.ExcelDateToTime(serial, b.raw.Date1904)
			if err != nil {
				return time.Time{}, core.ErrInvalidDate
			}
			return t.UTC(), nil
		}
	}
	t, err := core.ParseDate(v, order)
	if err != nil {
		return time.Time{}, core.ErrInvalidDate
	}
	return t, nil
}

// text returns the trimmed cells of a column, or empty strings when the
// column is absent.
func (b columns) text(name string) []string {
	out := make([]string, b.raw.Len())
	if !b.has(name) {
		return out
	}
	idx := b.raw.Index(name)
	for i, row := range b.raw.Rows {
		out[i] = strings.TrimSpace(row[idx])
	}
	return out
}
