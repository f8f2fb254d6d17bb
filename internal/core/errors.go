package core

import (
	"errors"
	"fmt"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrInvalidDate   = errors.New("invalid date")
)

// ErrorKind classifies where loading a resource failed.
type ErrorKind string

const (
	KindFetch  ErrorKind = "fetch"
	KindParse  ErrorKind = "parse"
	KindSchema ErrorKind = "schema"
)

// LoadError is returned by every accessor when a resource cannot be
// produced. Column is set for schema errors; Row is 1-based and zero when
// the failure is not tied to a single row.
type LoadError struct {
	Resource ResourceKey
	URL      string
	Kind     ErrorKind
	Column   string
	Row      int
	Err      error
}

func (e *LoadError) Error() string {
	detail := ""
	if e.Err != nil {
		detail = e.Err.Error()
	}
	switch {
	case e.Column != "" && e.Row > 0:
		detail = fmt.Sprintf("column %q row %d: %s", e.Column, e.Row, detail)
	case e.Column != "":
		detail = fmt.Sprintf("column %q: %s", e.Column, detail)
	}
	return fmt.Sprintf("load %s from %s: %s: %s", e.Resource, e.URL, e.Kind, detail)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// AsLoadError extracts a *LoadError from err's chain.
func AsLoadError(err error) (*LoadError, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// MissingColumn builds the schema error for an absent required column.
func MissingColumn(resource ResourceKey, url, column string) *LoadError {
	return &LoadError{
		Resource: resource,
		URL:      url,
		Kind:     KindSchema,
		Column:   column,
		Err:      ErrMissingColumn,
	}
}

// InvalidCell builds the schema error for a value that failed coercion.
// If err is a *CellError its zero-based row is converted to 1-based.
func InvalidCell(resource ResourceKey, url, column string, err error) *LoadError {
	le := &LoadError{
		Resource: resource,
		URL:      url,
		Kind:     KindSchema,
		Column:   column,
		Err:      err,
	}
	var ce *CellError
	if errors.As(err, &ce) {
		le.Row = ce.Row + 1
		le.Err = fmt.Errorf("%q: %w", ce.Value, ce.Err)
	}
	return le
}
