/*
Package report serializes analytics output into the shapes clients consume.

PURPOSE:
  The formatter never recomputes a number. It only changes representation:
  the dashboard shape passes values through untouched, the csv_rows shape
  turns a struct (or slice of structs) into string rows.

CSV ROW RULES:
  - Columns follow struct field declaration order
  - Column names come from the json tag, falling back to the field name
  - Fields tagged report:"currency" or report:"percent" print with exactly
    two decimals; other decimals print as-is
  - No thousands separators, ever
  - Dates print as YYYY-MM-DD; a nil date is an empty cell
  - Nested structs and slices are skipped: they are separate tables
  - report:"-" hides a field

SEE ALSO:
  - ../api/handlers.go: Report endpoint
*/
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rental-analytics/ledger"
)

// =============================================================================
// SHAPES
// =============================================================================

type Shape string

const (
	ShapeDashboard Shape = "dashboard"
	ShapeCSVRows   Shape = "csv_rows"
)

func (s Shape) Valid() bool {
	return s == ShapeDashboard || s == ShapeCSVRows
}

var (
	// ErrUnknownShape is returned for a shape other than dashboard or csv_rows.
	ErrUnknownShape = errors.New("unknown report shape")

	// ErrUnsupportedValue is returned when csv_rows gets something that is not
	// a struct or a slice of structs.
	ErrUnsupportedValue = errors.New("value cannot be rendered as rows")
)

// DashboardPayload wraps a value for the dashboard shape. Kind names the Go
// type so clients can dispatch without sniffing fields.
type DashboardPayload struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

// Format renders value in the requested shape. csv_rows returns [][]string
// with the header first; dashboard returns a DashboardPayload.
func Format(value any, shape Shape) (any, error) {
	switch shape {
	case ShapeDashboard:
		return DashboardPayload{Kind: kindOf(value), Data: value}, nil
	case ShapeCSVRows:
		return Rows(value)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, shape)
	}
}

// WriteCSV writes rows as RFC 4180 CSV.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func kindOf(value any) string {
	t := reflect.TypeOf(value)
	for t != nil && (t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice) {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}

// =============================================================================
// ROWS
// =============================================================================

var (
	decimalType     = reflect.TypeOf(decimal.Decimal{})
	nullDecimalType = reflect.TypeOf(decimal.NullDecimal{})
	timeType        = reflect.TypeOf(time.Time{})
)

type column struct {
	index  int
	name   string
	format string // "", "currency" or "percent"
}

// Rows flattens a struct or a slice of structs into a header and one row per
// element. An empty slice yields just the header.
func Rows(value any) ([][]string, error) {
	v := reflect.ValueOf(value)
	for v.IsValid() && v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, ErrUnsupportedValue
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, ErrUnsupportedValue
	}

	switch v.Kind() {
	case reflect.Struct:
		cols := columns(v.Type())
		return [][]string{header(cols), row(v, cols)}, nil

	case reflect.Slice, reflect.Array:
		elem := v.Type().Elem()
		if elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: slice of %s", ErrUnsupportedValue, elem.Kind())
		}
		cols := columns(elem)
		out := make([][]string, 0, v.Len()+1)
		out = append(out, header(cols))
		for i := 0; i < v.Len(); i++ {
			item := v.Index(i)
			if item.Kind() == reflect.Pointer {
				if item.IsNil() {
					continue
				}
				item = item.Elem()
			}
			out = append(out, row(item, cols))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedValue, v.Kind())
}

func columns(t reflect.Type) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		format := f.Tag.Get("report")
		if format == "-" || !flat(f.Type) {
			continue
		}
		cols = append(cols, column{index: i, name: columnName(f), format: format})
	}
	return cols
}

// flat reports whether a field renders as a single cell.
func flat(t reflect.Type) bool {
	if t == decimalType || t == nullDecimalType || t == timeType {
		return true
	}
	if t.Kind() == reflect.Pointer {
		return t.Elem() == timeType || t.Elem() == decimalType
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func columnName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

func header(cols []column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out
}

func row(v reflect.Value, cols []column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = cell(v.Field(c.index), c.format)
	}
	return out
}

func cell(v reflect.Value, format string) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}

	switch v.Type() {
	case decimalType:
		return money(v.Interface().(decimal.Decimal), format)
	case nullDecimalType:
		nd := v.Interface().(decimal.NullDecimal)
		if !nd.Valid {
			return ""
		}
		return money(nd.Decimal, format)
	case timeType:
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(ledger.DateLayout)
	}

	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	default:
		return strconv.FormatUint(v.Uint(), 10)
	}
}

func money(d decimal.Decimal, format string) string {
	switch format {
	case "currency", "percent":
		return d.StringFixed(2)
	default:
		return d.String()
	}
}
