package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMissingColumnError(t *testing.T) {
	err := fmt.Errorf("orders: %w", MissingColumn(ResourceOrders, "https://example.test/o.csv", "Total Value"))

	le, ok := AsLoadError(err)
	if !ok {
		t.Fatalf("expected LoadError in chain")
	}
	if le.Kind != KindSchema || le.Column != "Total Value" {
		t.Fatalf("unexpected load error %+v", le)
	}
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn")
	}
	if !strings.Contains(err.Error(), `"Total Value"`) {
		t.Fatalf("message should name the column: %s", err)
	}
}

func TestInvalidCellCarriesRow(t *testing.T) {
	_, cerr := CoerceColumn([]string{"1", "2", "oops"}, false)
	le := InvalidCell(ResourceArticles, "u", "card_prices", cerr)
	if le.Row != 3 {
		t.Fatalf("want row 3, got %d", le.Row)
	}
	if !errors.Is(le, ErrInvalidNumber) {
		t.Fatalf("expected ErrInvalidNumber")
	}
	want := `load articles from u: schema: column "card_prices" row 3: "oops": invalid number`
	if le.Error() != want {
		t.Fatalf("want %q\ngot  %q", want, le.Error())
	}
}

func TestLoadErrorFetchMessage(t *testing.T) {
	le := &LoadError{Resource: ResourceExpenses, URL: "gs://b/x.xlsx", Kind: KindFetch, Err: errors.New("status 404")}
	want := "load expenses from gs://b/x.xlsx: fetch: status 404"
	if le.Error() != want {
		t.Fatalf("want %q got %q", want, le.Error())
	}
}
