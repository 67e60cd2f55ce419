package snapshot

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/tripstat/pkg/trip"
)

// ErrEmptyCSV is returned for a CSV snapshot without a header row.
var ErrEmptyCSV = errors.New("csv snapshot has no header")

// CSVSource reads snapshots stored as CSV with a header row. Empty cells are
// null, integer and float cells are numeric, anything else is a string.
type CSVSource struct {
	Dir     string
	Pattern string
}

// Path returns the file path of the snapshot for date.
func (s *CSVSource) Path(date Date) string {
	return resolvePath(s.Dir, s.Pattern, DefaultCSVPattern, date)
}

// Open implements Source.
func (s *CSVSource) Open(ctx context.Context, date Date) (*trip.Batch, error) {
	path := s.Path(date)

	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, unavailable(path, err)
	}
	defer file.Close()

	batch, err := ReadCSV(file)
	if err != nil {
		return nil, unavailable(path, err)
	}

	return batch, nil
}

// ReadCSV decodes a CSV document with a header row into a batch.
func ReadCSV(r io.Reader) (*trip.Batch, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCSV
	}

	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	columns := make([][]trip.Value, len(names))

	for {
		record, readErr := cr.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, fmt.Errorf("read csv: %w", readErr)
		}

		for i, cell := range record {
			columns[i] = append(columns[i], csvValue(cell))
		}
	}

	b := trip.NewBuilder()
	for i, name := range names {
		b.Column(name, columns[i])
	}

	batch, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("assemble batch: %w", err)
	}

	return batch, nil
}

func csvValue(cell string) trip.Value {
	s := strings.TrimSpace(cell)
	if s == "" {
		return trip.Null()
	}

	i, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return trip.Int(i)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return trip.Float(f)
	}

	return trip.String(s)
}
