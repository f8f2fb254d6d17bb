// Package sources fetches the remote exports and turns them into raw
// header+rows tables. It knows nothing about the meaning of the columns.
package sources

import (
	"context"
	"fmt"
	"path"
	"strings"

	"cardmarket-bi/internal/core"
)

// Format is the on-the-wire layout of a resource.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, "xls", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// FormatFromURL guesses the format from the URL extension, defaulting to csv.
// Spreadsheet sources are always served as csv.
func FormatFromURL(u string) Format {
	if strings.HasPrefix(strings.ToLower(u), "gsheets://") {
		return FormatCSV
	}
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	switch strings.ToLower(path.Ext(u)) {
	case ".xlsx", ".xlsm", ".xls":
		return FormatXLSX
	}
	return FormatCSV
}

// Resource describes one remote tabular file.
type Resource struct {
	Key    core.ResourceKey
	URL    string
	Format Format
	// Sheet selects a workbook sheet; empty means the first one.
	Sheet string
}

// Fetcher retrieves the raw bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}
