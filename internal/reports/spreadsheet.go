package reports

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrInvalidDelimiter is returned for delimiters encoding/csv cannot use.
var ErrInvalidDelimiter = errors.New("invalid delimiter")

// SpreadsheetGenerator writes rows of T as a spreadsheet.
type SpreadsheetGenerator[T any] interface {
	Generate(w io.Writer, rows []T) error
	Format() string
}

// CSVGenerator writes delimited text with a header line.
type CSVGenerator[T Row] struct {
	delimiter rune
}

// NewCSVGenerator returns a comma separated generator.
func NewCSVGenerator[T Row]() *CSVGenerator[T] {
	return &CSVGenerator[T]{delimiter: ','}
}

// NewDelimitedGenerator returns a generator using the single character delimiter.
func NewDelimitedGenerator[T Row](delimiter string) (*CSVGenerator[T], error) {
	r, size := utf8.DecodeRuneInString(delimiter)
	if size == 0 || size != len(delimiter) {
		return nil, fmt.Errorf("%w: %q must be a single character", ErrInvalidDelimiter, delimiter)
	}
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDelimiter, delimiter)
	}
	return &CSVGenerator[T]{delimiter: r}, nil
}

// Delimiter returns the field separator.
func (g *CSVGenerator[T]) Delimiter() rune {
	return g.delimiter
}

// Format implements SpreadsheetGenerator.
func (g *CSVGenerator[T]) Format() string {
	switch g.delimiter {
	case ',':
		return "csv"
	case '\t':
		return "tsv"
	default:
		return "dsv"
	}
}

// Generate implements SpreadsheetGenerator.
func (g *CSVGenerator[T]) Generate(w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	cw.Comma = g.delimiter

	var zero T
	if err := cw.Write(zero.Columns()); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// TSVGenerator is a CSVGenerator fixed to tab separation.
type TSVGenerator[T Row] struct {
	CSVGenerator[T]
}

// NewTSVGenerator returns a tab separated generator.
func NewTSVGenerator[T Row]() *TSVGenerator[T] {
	return &TSVGenerator[T]{CSVGenerator[T]{delimiter: '\t'}}
}

var (
	_ SpreadsheetGenerator[ExecutionReport] = (*CSVGenerator[ExecutionReport])(nil)
	_ SpreadsheetGenerator[ExecutionReport] = (*TSVGenerator[ExecutionReport])(nil)
)
