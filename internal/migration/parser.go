package migration

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
)

// Row is one logical record from the source file: an ordered mapping of
// column name to string value, tagged with its zero-based position in the
// stream.
type Row struct {
	Index   int
	Columns []string
	Values  map[string]string
}

// Value returns the trimmed cell under the given column.
func (r Row) Value(column string) string {
	return strings.TrimSpace(r.Values[column])
}

// RowReader is a lazy, finite, non-restartable sequence of rows.
// Next returns io.EOF when the stream ends, a *RowError when a single row
// cannot be decoded, and any other error when the stream itself is broken.
type RowReader interface {
	Next() (Row, error)
	// Remaining reports how many rows are left, when the format knows.
	Remaining() (int, bool)
}

// NewRowReader builds the reader matching the declared input format.
// For JSON the whole payload is decoded up front: a JSON array carries no
// incremental row boundary in the general case, so buffering is the price
// of detecting top-level corruption before any row is imported. CSV streams
// line by line and never holds the full file.
func NewRowReader(format api.InputFormat, r io.Reader) (RowReader, error) {
	switch format {
	case api.InputFormatCSV:
		return newCSVRowReader(r)
	case api.InputFormatJSON:
		return newJSONRowReader(r)
	default:
		return nil, fmt.Errorf("unsupported input format %q", format)
	}
}

type csvRowReader struct {
	reader *csv.Reader
	header []string
	index  int
}

func newCSVRowReader(r io.Reader) (*csvRowReader, error) {
	cr := csv.NewReader(wrapCSVStream(r))
	cr.FieldsPerRecord = -1 // field-count mismatches are per-row errors, not stream errors
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return &csvRowReader{reader: cr}, nil
		}
		return nil, NewFatalStreamError(fmt.Errorf("reading csv header: %w", err))
	}
	if len(header) == 0 {
		return nil, NewFatalStreamError(fmt.Errorf("empty csv header"))
	}

	return &csvRowReader{reader: cr, header: header}, nil
}

func (c *csvRowReader) Next() (Row, error) {
	if c.header == nil {
		return Row{}, io.EOF
	}

	record, err := c.reader.Read()
	if err != nil {
		if err == io.EOF {
			return Row{}, io.EOF
		}
		index := c.index
		c.index++
		if _, ok := err.(*csv.ParseError); ok {
			return Row{}, NewRowParseError(index, "malformed csv line: %v", err)
		}
		return Row{}, NewFatalStreamError(err)
	}

	index := c.index
	c.index++

	if len(record) != len(c.header) {
		return Row{}, NewRowParseError(index, "expected %d fields, got %d", len(c.header), len(record))
	}

	values := make(map[string]string, len(c.header))
	for i, col := range c.header {
		values[col] = record[i]
	}

	return Row{Index: index, Columns: c.header, Values: values}, nil
}

func (c *csvRowReader) Remaining() (int, bool) {
	return 0, false
}

type jsonRowReader struct {
	rows  []map[string]any
	index int
}

func newJSONRowReader(r io.Reader) (*jsonRowReader, error) {
	var rows []map[string]any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&rows); err != nil {
		// no row boundary is recoverable once the top-level decode fails
		return nil, NewFatalStreamError(fmt.Errorf("decoding json payload: %w", err))
	}
	// the payload is exactly one array; Decode stops at its closing bracket
	if _, err := dec.Token(); err != io.EOF {
		return nil, NewFatalStreamError(fmt.Errorf("decoding json payload: trailing data after the row array"))
	}
	return &jsonRowReader{rows: rows}, nil
}

func (j *jsonRowReader) Next() (Row, error) {
	if j.index >= len(j.rows) {
		return Row{}, io.EOF
	}

	raw := j.rows[j.index]
	index := j.index
	j.index++

	columns := make([]string, 0, len(raw))
	for k := range raw {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	values := make(map[string]string, len(raw))
	for _, col := range columns {
		s, err := stringifyScalar(raw[col])
		if err != nil {
			return Row{}, NewRowParseError(index, "column %q: %v", col, err)
		}
		values[col] = s
	}

	return Row{Index: index, Columns: columns, Values: values}, nil
}

func (j *jsonRowReader) Remaining() (int, bool) {
	return len(j.rows) - j.index, true
}

func stringifyScalar(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case json.Number:
		return val.String(), nil
	default:
		return "", fmt.Errorf("expected a scalar value, got %T", v)
	}
}
