// Package trip provides the in-memory snapshot of taxi trip records.
package trip

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Column names used by the trip statistics.
const (
	ColumnTotalAmount  = "total_amount"
	ColumnTripDistance = "trip_distance"
	ColumnTipAmount    = "tip_amount"
	ColumnExtra        = "extra"
	ColumnPaymentType  = "payment_type"
)

// ErrSchema is matched by every SchemaError.
var ErrSchema = errors.New("schema error")

// ErrColumnLength is returned when a column does not match the batch row count.
var ErrColumnLength = errors.New("column length mismatch")

// SchemaError reports required columns missing from a batch.
type SchemaError struct {
	Op      string
	Missing []string
}

// Error implements error.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required column(s) %s", e.Op, strings.Join(e.Missing, ", "))
}

// Is matches ErrSchema.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// Batch is an immutable, column-oriented set of trip records.
type Batch struct {
	columns map[string][]Value
	names   []string
	rows    int
}

// Builder assembles a Batch column by column.
type Builder struct {
	columns map[string][]Value
	names   []string
	rows    int
	err     error
}

// NewBuilder creates an empty batch builder.
func NewBuilder() *Builder {
	return &Builder{columns: make(map[string][]Value), rows: -1}
}

// Column adds or replaces a column. All columns must have the same length.
func (b *Builder) Column(name string, values []Value) *Builder {
	if b.err != nil {
		return b
	}

	if b.rows >= 0 && len(values) != b.rows {
		b.err = fmt.Errorf("%w: column %q has %d rows, want %d", ErrColumnLength, name, len(values), b.rows)

		return b
	}

	b.rows = len(values)

	if _, ok := b.columns[name]; !ok {
		b.names = append(b.names, name)
	}

	b.columns[name] = slices.Clone(values)

	return b
}

// Floats adds a numeric column from plain float64 values.
func (b *Builder) Floats(name string, values ...float64) *Builder {
	col := make([]Value, len(values))
	for i, v := range values {
		col[i] = Float(v)
	}

	return b.Column(name, col)
}

// Ints adds an integer column.
func (b *Builder) Ints(name string, values ...int64) *Builder {
	col := make([]Value, len(values))
	for i, v := range values {
		col[i] = Int(v)
	}

	return b.Column(name, col)
}

// Build returns the assembled batch.
func (b *Builder) Build() (*Batch, error) {
	if b.err != nil {
		return nil, b.err
	}

	rows := max(b.rows, 0)

	return &Batch{columns: b.columns, names: b.names, rows: rows}, nil
}

// Len returns the number of rows.
func (b *Batch) Len() int { return b.rows }

// Columns returns the column names in insertion order.
func (b *Batch) Columns() []string { return slices.Clone(b.names) }

// Has reports whether the batch holds the named column.
func (b *Batch) Has(name string) bool {
	_, ok := b.columns[name]

	return ok
}

// Column returns the values of a column. The slice must not be modified.
func (b *Batch) Column(name string) ([]Value, bool) {
	col, ok := b.columns[name]

	return col, ok
}

// Require returns a SchemaError naming every absent column, or nil.
func (b *Batch) Require(op string, names ...string) error {
	var missing []string

	for _, name := range names {
		if !b.Has(name) {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return &SchemaError{Op: op, Missing: missing}
	}

	return nil
}

// Float64s returns a numeric view of a column, with NaN for null cells.
func (b *Batch) Float64s(name string) ([]float64, error) {
	col, ok := b.columns[name]
	if !ok {
		return nil, &SchemaError{Op: "read column", Missing: []string{name}}
	}

	out := make([]float64, len(col))
	for i, v := range col {
		out[i] = v.Float64()
	}

	return out, nil
}
