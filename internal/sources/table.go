package sources

import (
	"context"
	"fmt"
	"time"

	"cardmarket-bi/internal/core"
)

// TableFetcher fetches a resource and parses it according to its format.
type TableFetcher struct {
	fetcher Fetcher
	timeout time.Duration
}

// NewTableFetcher wraps f. A positive timeout bounds each fetch.
func NewTableFetcher(f Fetcher, timeout time.Duration) *TableFetcher {
	return &TableFetcher{fetcher: f, timeout: timeout}
}

// FetchTable makes exactly one attempt. Failures are *core.LoadError of
// kind fetch or parse.
func (t *TableFetcher) FetchTable(ctx context.Context, res Resource) (*RawTable, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	data, err := t.fetcher.Fetch(ctx, res.URL)
	if err != nil {
		return nil, &core.LoadError{Resource: res.Key, URL: res.URL, Kind: core.KindFetch, Err: err}
	}

	format := res.Format
	if format == "" {
		format = FormatFromURL(res.URL)
	}

	var raw *RawTable
	switch format {
	case FormatCSV:
		raw, err = ParseCSV(data)
	case FormatXLSX:
		raw, err = ParseXLSX(data, res.Sheet)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, &core.LoadError{Resource: res.Key, URL: res.URL, Kind: core.KindParse, Err: err}
	}
	return raw, nil
}
