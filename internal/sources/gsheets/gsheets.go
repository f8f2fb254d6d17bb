// Package gsheets reads one worksheet of a Google spreadsheet through the
// Sheets API and serves it as CSV. Resources are addressed as
// gsheets://<spreadsheet-id>/<sheet name>.
package gsheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var ErrEmptySheet = errors.New("sheet has no values")

type Client struct {
	svc *sheets.Service
}

// New creates a read-only Sheets client. An empty credentialsFile falls
// back to application default credentials.
func New(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*Client, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsReadonlyScope))

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Fetch reads the formatted values of the sheet named by a gsheets:// URL
// and returns them encoded as CSV. Cells keep the text the sheet shows, so
// locale decimals such as "12,34" reach the parser unchanged.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	id, sheet, err := SplitURL(rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := c.svc.Spreadsheets.Values.Get(id, quoteSheet(sheet)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(resp.Values) == 0 {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, ErrEmptySheet)
	}
	return encodeCSV(resp.Values)
}

// SplitURL returns the spreadsheet id and sheet name of a gsheets:// URL.
func SplitURL(rawURL string) (spreadsheetID, sheet string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "gsheets" {
		return "", "", fmt.Errorf("not a gsheets:// url: %q", rawURL)
	}
	sheet = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || sheet == "" {
		return "", "", errors.New("gsheets url needs a spreadsheet id and a sheet name")
	}
	return u.Host, sheet, nil
}

// quoteSheet turns a sheet name into an A1 range covering the whole sheet.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func encodeCSV(values [][]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range values {
		if err := w.Write(toStrings(row)); err != nil {
			return nil, fmt.Errorf("encode csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case nil:
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}
