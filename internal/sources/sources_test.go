package sources

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"cardmarket-bi/internal/core"

	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	data := []byte("\ufeffDate of Purchase , Total Value,Commission\n" +
		"2024-01-01,\"20,00\",\"2,00\"\n" +
		"\n" +
		"2024-01-02,10.5\n")

	raw, err := ParseCSV(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Index("Date of Purchase") != 0 || raw.Index("Total Value") != 1 {
		t.Fatalf("headers not normalized: %q", raw.Headers)
	}
	if raw.Len() != 2 {
		t.Fatalf("want 2 rows, got %d", raw.Len())
	}
	if got := raw.Rows[1][2]; got != "" {
		t.Fatalf("short row not padded, got %q", got)
	}
	if raw.IsNumeric(1) {
		t.Fatal("comma-decimal column must not be numeric")
	}
	if raw.IsNumeric(2) {
		t.Fatal("commission column holds text")
	}
}

func TestRawTableSourceRow(t *testing.T) {
	raw := NewRawTable(FormatXLSX, []string{"a"}, [][]string{{"1"}, {""}, {}, {"2"}})
	if raw.Len() != 2 {
		t.Fatalf("want 2 rows, got %d", raw.Len())
	}
	if raw.SourceRow(0) != 1 || raw.SourceRow(1) != 4 {
		t.Fatalf("want rows 1 and 4, got %d and %d", raw.SourceRow(0), raw.SourceRow(1))
	}

	csvRaw, err := ParseCSV([]byte("a,b\n1,2\n\n\n3,4\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if csvRaw.SourceRow(1) != 4 {
		t.Fatalf("want csv row 4, got %d", csvRaw.SourceRow(1))
	}
}

func TestRawTableNumericInference(t *testing.T) {
	raw := NewRawTable(FormatCSV, []string{"a", "b", "c"}, [][]string{
		{"1.5", "1,5", ""},
		{"2", "x", ""},
		{"", "3", ""},
	})
	if !raw.IsNumeric(0) {
		t.Fatal("column a is numeric")
	}
	if raw.IsNumeric(1) {
		t.Fatal("column b is text")
	}
	if !raw.IsNumeric(2) {
		t.Fatal("an empty column has no text cells")
	}
}

func TestParseCSVEmpty(t *testing.T) {
	if _, err := ParseCSV(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func buildWorkbook(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := r
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	data := buildWorkbook(t, "Sheet1", [][]any{
		{"Order_Date", "Item_Price", "Cost_Category"},
		{"03/04/2024", 12.5, "Sealed"},
		{"04/04/2024", 7, "Supplies"},
	})

	raw, err := ParseXLSX(data, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Format != FormatXLSX || raw.Len() != 2 {
		t.Fatalf("unexpected table: format=%s rows=%d", raw.Format, raw.Len())
	}
	col := raw.Index("Item_Price")
	if !raw.IsNumeric(col) || raw.Rows[0][col] != "12.5" {
		t.Fatalf("expected raw numeric cell, got %q", raw.Rows[0][col])
	}
}

func TestParseXLSXDateSystem(t *testing.T) {
	if raw, err := ParseXLSX(buildWorkbook(t, "Sheet1", [][]any{{"h"}, {"v"}}), ""); err != nil || raw.Date1904 {
		t.Fatalf("default workbook should use the 1900 system, err=%v", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	on := true
	if err := f.SetWorkbookProps(&excelize.WorkbookPropsOptions{Date1904: &on}); err != nil {
		t.Fatalf("set props: %v", err)
	}
	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"Order_Date"}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "A2", 43923); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := ParseXLSX(buf.Bytes(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !raw.Date1904 {
		t.Fatal("expected the 1904 date system")
	}
}

func TestParseXLSXNamedSheet(t *testing.T) {
	data := buildWorkbook(t, "Costs", [][]any{{"h"}, {"v"}})
	if _, err := ParseXLSX(data, "Costs"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseXLSX(data, "Missing"); err == nil {
		t.Fatal("expected error for missing sheet")
	}
}

func TestFormatFromURL(t *testing.T) {
	cases := map[string]Format{
		"https://h/x/orders.csv":          FormatCSV,
		"https://h/monthly_expenses.xlsx": FormatXLSX,
		"gs://b/e.XLSX?generation=1":      FormatXLSX,
		"mem://noext":                     FormatCSV,
		"gsheets://id/expenses.xlsx":      FormatCSV,
	}
	for in, want := range cases {
		if got := FormatFromURL(in); got != want {
			t.Fatalf("%q: want %s got %s", in, want, got)
		}
	}
}

func TestRouterDispatchesByScheme(t *testing.T) {
	var got string
	r := NewRouter().
		Handle(FetcherFunc(func(_ context.Context, u string) ([]byte, error) {
			got = "http:" + u
			return nil, nil
		}), "http", "https").
		Handle(FetcherFunc(func(_ context.Context, u string) ([]byte, error) {
			got = "gs:" + u
			return nil, nil
		}), "gs")

	if _, err := r.Fetch(context.Background(), "gs://b/o"); err != nil || got != "gs:gs://b/o" {
		t.Fatalf("unexpected dispatch %q err=%v", got, err)
	}
	if _, err := r.Fetch(context.Background(), "HTTPS://h/o"); err != nil || got != "http:HTTPS://h/o" {
		t.Fatalf("unexpected dispatch %q err=%v", got, err)
	}
	if _, err := r.Fetch(context.Background(), "ftp://h/o"); err == nil {
		t.Fatal("expected error for unknown scheme")
	}
}

func TestFetchTableErrors(t *testing.T) {
	failing := FetcherFunc(func(context.Context, string) ([]byte, error) {
		return nil, errors.New("connection refused")
	})
	res := Resource{Key: core.ResourceOrders, URL: "https://h/o.csv", Format: FormatCSV}

	_, err := NewTableFetcher(failing, 0).FetchTable(context.Background(), res)
	le, ok := core.AsLoadError(err)
	if !ok || le.Kind != core.KindFetch || le.Resource != core.ResourceOrders {
		t.Fatalf("expected fetch LoadError, got %v", err)
	}

	garbage := FetcherFunc(func(context.Context, string) ([]byte, error) {
		return []byte("not a zip"), nil
	})
	res = Resource{Key: core.ResourceExpenses, URL: "https://h/e.xlsx", Format: FormatXLSX}
	_, err = NewTableFetcher(garbage, 0).FetchTable(context.Background(), res)
	le, ok = core.AsLoadError(err)
	if !ok || le.Kind != core.KindParse {
		t.Fatalf("expected parse LoadError, got %v", err)
	}
}

func TestFetchTableInfersFormat(t *testing.T) {
	f := FetcherFunc(func(context.Context, string) ([]byte, error) {
		return []byte("card_prices\n\"1,5\"\n"), nil
	})
	raw, err := NewTableFetcher(f, 0).FetchTable(context.Background(),
		Resource{Key: core.ResourceArticles, URL: "https://h/a.csv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Format != FormatCSV || raw.Rows[0][0] != "1,5" {
		t.Fatalf("unexpected table %+v", raw)
	}
}
