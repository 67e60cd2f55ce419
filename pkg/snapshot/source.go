// Package snapshot opens the daily trip snapshot for a date as a trip.Batch.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Sumatoshi-tech/tripstat/pkg/trip"
)

// Supported snapshot formats.
const (
	FormatParquet = "parquet"
	FormatCSV     = "csv"
)

// Default file name patterns per format.
const (
	DefaultParquetPattern = "yellow_tripdata_{YYYY}-{MM}-{DD}.parquet"
	DefaultCSVPattern     = "yellow_tripdata_{YYYY}-{MM}-{DD}.csv"
)

// Sentinel errors.
var (
	// ErrSourceUnavailable is matched by every SourceUnavailableError.
	ErrSourceUnavailable = errors.New("snapshot unavailable")
	// ErrUnknownFormat is returned by NewSource for an unsupported format.
	ErrUnknownFormat = errors.New("unknown snapshot format")
)

// SourceUnavailableError reports a snapshot that could not be opened or read.
type SourceUnavailableError struct {
	Err  error
	Path string
}

// Error implements error.
func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("snapshot %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying I/O or decode error.
func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// Is matches ErrSourceUnavailable.
func (e *SourceUnavailableError) Is(target error) bool { return target == ErrSourceUnavailable }

// Source opens the snapshot of a date.
type Source interface {
	Open(ctx context.Context, date Date) (*trip.Batch, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, date Date) (*trip.Batch, error)

// Open implements Source.
func (f SourceFunc) Open(ctx context.Context, date Date) (*trip.Batch, error) { return f(ctx, date) }

// NewSource returns the source for format reading files from dir. An empty
// pattern selects the default file name of the format.
func NewSource(format, dir, pattern string) (Source, error) {
	switch format {
	case FormatParquet, "":
		return &ParquetSource{Dir: dir, Pattern: pattern}, nil
	case FormatCSV:
		return &CSVSource{Dir: dir, Pattern: pattern}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func resolvePath(dir, pattern, fallback string, date Date) string {
	if pattern == "" {
		pattern = fallback
	}

	return filepath.Join(dir, date.Expand(pattern))
}

func unavailable(path string, err error) error {
	return &SourceUnavailableError{Path: path, Err: err}
}
