package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/Sumatoshi-tech/tripstat/pkg/trip"
)

// rowBufferSize is the number of rows decoded per ReadRows call.
const rowBufferSize = 1024

// ParquetSource reads snapshots stored as parquet files. Only top-level leaf
// columns are loaded; nested columns are skipped.
type ParquetSource struct {
	Dir     string
	Pattern string
}

// Path returns the file path of the snapshot for date.
func (s *ParquetSource) Path(date Date) string {
	return resolvePath(s.Dir, s.Pattern, DefaultParquetPattern, date)
}

// Open implements Source.
func (s *ParquetSource) Open(ctx context.Context, date Date) (*trip.Batch, error) {
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

	info, err := file.Stat()
	if err != nil {
		return nil, unavailable(path, err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, unavailable(path, fmt.Errorf("open parquet: %w", err))
	}

	batch, err := readParquet(ctx, pf)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, unavailable(path, err)
	}

	return batch, nil
}

func readParquet(ctx context.Context, pf *parquet.File) (*trip.Batch, error) {
	schema := pf.Schema()

	var names []string

	byIndex := make(map[int]string)

	for _, path := range schema.Columns() {
		if len(path) != 1 {
			continue
		}

		leaf, ok := schema.Lookup(path...)
		if !ok {
			continue
		}

		byIndex[leaf.ColumnIndex] = path[0]
		names = append(names, path[0])
	}

	columns := make(map[string][]trip.Value, len(names))
	buf := make([]parquet.Row, rowBufferSize)

	for _, rg := range pf.RowGroups() {
		err := ctx.Err()
		if err != nil {
			return nil, err
		}

		err = readRowGroup(rg, buf, byIndex, columns)
		if err != nil {
			return nil, err
		}
	}

	b := trip.NewBuilder()
	for _, name := range names {
		b.Column(name, columns[name])
	}

	batch, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("assemble batch: %w", err)
	}

	return batch, nil
}

func readRowGroup(rg parquet.RowGroup, buf []parquet.Row, byIndex map[int]string, columns map[string][]trip.Value) error {
	rows := rg.Rows()
	defer rows.Close()

	for {
		n, err := rows.ReadRows(buf)

		for _, row := range buf[:n] {
			for _, v := range row {
				name, ok := byIndex[v.Column()]
				if !ok {
					continue
				}

				columns[name] = append(columns[name], parquetValue(v))
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read rows: %w", err)
		}
	}
}

// parquetValue converts a parquet cell to a trip value. Physical types
// without a numeric or textual meaning are read as null.
func parquetValue(v parquet.Value) trip.Value {
	if v.IsNull() {
		return trip.Null()
	}

	switch v.Kind() {
	case parquet.Boolean:
		if v.Boolean() {
			return trip.Int(1)
		}

		return trip.Int(0)
	case parquet.Int32:
		return trip.Int(int64(v.Int32()))
	case parquet.Int64:
		return trip.Int(v.Int64())
	case parquet.Float:
		return trip.Float(float64(v.Float()))
	case parquet.Double:
		return trip.Float(v.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return trip.String(string(v.ByteArray()))
	default:
		return trip.Null()
	}
}
