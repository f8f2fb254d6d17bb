package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"cardmarket-bi/internal/core"
	"cardmarket-bi/internal/log"

	"github.com/xuri/excelize/v2"
)

const exportTimestamp = "2006-01-02 15:04:05"

var (
	orderExportHeader   = []string{"Date of Purchase", "Merchandise Value", "Shipment Costs", "Total Value", "Commission", "Net Value", "Country"}
	articleExportHeader = []string{"card_prices", "name", "set_names", "card_rarities"}
	expenseExportHeader = []string{"Order_Date", "Item_Price", "Cost_Category", "Store_Country", "Store_Name", "Description"}
)

func money(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func orderRecords(t *core.OrderTable) [][]string {
	out := make([][]string, 0, t.Len())
	for _, o := range t.Rows {
		out = append(out, []string{
			o.PurchaseDate.Format(exportTimestamp),
			money(o.MerchandiseValue),
			money(o.ShipmentCosts),
			money(o.TotalValue),
			money(o.Commission),
			money(o.NetValue),
			o.Country,
		})
	}
	return out
}

func articleRecords(t *core.ArticleTable) [][]string {
	out := make([][]string, 0, t.Len())
	for _, a := range t.Rows {
		out = append(out, []string{money(a.Price), a.Name, a.SetName, a.Rarity})
	}
	return out
}

func expenseRecords(t *core.ExpenseTable) [][]string {
	out := make([][]string, 0, t.Len())
	for _, e := range t.Rows {
		out = append(out, []string{
			e.OrderDate.Format("2006-01-02"),
			money(e.ItemPrice),
			e.CostCategory,
			e.StoreCountry,
			e.StoreName,
			e.Description,
		})
	}
	return out
}

// writeCSV buffers the whole file so a failure can still become an error
// response.
func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, filename string, header []string, records [][]string) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	err := cw.Write(header)
	if err == nil {
		err = cw.WriteAll(records)
	}
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "CSV export failed",
			log.FieldOperation, log.OpExport, log.FieldError, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = buf.WriteTo(w)
}

func (s *Server) exportContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), pageTimeout)
}

func (s *Server) handleExportOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.exportContext(r)
	defer cancel()
	t, err := s.tables.Orders(ctx)
	if err != nil {
		s.renderLoadError(w, r, s.newPage(r, "Export", "orders"), err)
		return
	}
	s.writeCSV(w, r, "orders.csv", orderExportHeader, orderRecords(t))
}

func (s *Server) handleExportArticles(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.exportContext(r)
	defer cancel()
	t, err := s.tables.Articles(ctx)
	if err != nil {
		s.renderLoadError(w, r, s.newPage(r, "Export", "articles"), err)
		return
	}
	s.writeCSV(w, r, "articles.csv", articleExportHeader, articleRecords(t))
}

func (s *Server) handleExportExpensesCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.exportContext(r)
	defer cancel()
	t, err := s.tables.Expenses(ctx)
	if err != nil {
		s.renderLoadError(w, r, s.newPage(r, "Export", "costs"), err)
		return
	}
	s.writeCSV(w, r, "expenses.csv", expenseExportHeader, expenseRecords(t))
}

// handleExportExpensesXLSX writes the normalized expenses as a workbook
// with real date and number cells.
func (s *Server) handleExportExpensesXLSX(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.exportContext(r)
	defer cancel()
	t, err := s.tables.Expenses(ctx)
	if err != nil {
		s.renderLoadError(w, r, s.newPage(r, "Export", "costs"), err)
		return
	}

	data, err := expensesWorkbook(t)
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "XLSX export failed",
			log.FieldOperation, log.OpExport, log.FieldError, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.xlsx"`)
	_, _ = w.Write(data)
}

func expensesWorkbook(t *core.ExpenseTable) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Expenses"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]any, len(expenseExportHeader))
	for i, h := range expenseExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return nil, fmt.Errorf("date style: %w", err)
	}
	for i, e := range t.Rows {
		cell := fmt.Sprintf("A%d", i+2)
		row := []any{e.OrderDate, e.ItemPrice, e.CostCategory, e.StoreCountry, e.StoreName, e.Description}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, dateStyle); err != nil {
			return nil, fmt.Errorf("style row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
