package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/Sumatoshi-tech/tripstat/pkg/aggregate"
	"github.com/Sumatoshi-tech/tripstat/pkg/persist"
)

// The custom indicator log is a sequence of JSON objects, one appended per
// run, each of the form {"<date>": {"<row>": value, ...}}. Logs written by
// older tools concatenate the objects without separators; both layouts
// decode the same way.

// seriesEntry encodes one indicator as a log entry with rows in ascending
// position order.
type seriesEntry aggregate.Indicator

// MarshalJSON implements json.Marshaler.
func (e seriesEntry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	date, err := json.Marshal(e.Date)
	if err != nil {
		return nil, err
	}

	buf.WriteByte('{')
	buf.Write(date)
	buf.WriteString(":{")

	for i, p := range e.Points {
		if i > 0 {
			buf.WriteByte(',')
		}

		value, marshalErr := json.Marshal(p.Value)
		if marshalErr != nil {
			return nil, fmt.Errorf("row %d: %w", p.Row, marshalErr)
		}

		buf.WriteString(strconv.Quote(strconv.Itoa(p.Row)))
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteString("}}")

	return buf.Bytes(), nil
}

// WriteSeriesEntry appends the log entry of in to w.
func WriteSeriesEntry(w io.Writer, codec persist.Codec, in aggregate.Indicator) error {
	return codec.Encode(w, seriesEntry(in))
}

// ReadSeries decodes every entry of a custom indicator log in file order.
// A date recorded twice is an error.
func ReadSeries(r io.Reader) ([]aggregate.Indicator, error) {
	dec := json.NewDecoder(r)
	seen := make(map[string]struct{})

	var out []aggregate.Indicator

	for {
		var raw json.RawMessage

		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return out, nil
		}

		if err != nil {
			return nil, fmt.Errorf("decode series entry %d: %w", len(out)+1, err)
		}

		entries, err := decodeSeriesObject(raw)
		if err != nil {
			return nil, err
		}

		for _, in := range entries {
			if _, dup := seen[in.Date]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateSeriesKey, in.Date)
			}

			seen[in.Date] = struct{}{}

			out = append(out, in)
		}
	}
}

// decodeSeriesObject decodes one log object. Dates inside a single object
// are returned in ascending order.
func decodeSeriesObject(raw []byte) ([]aggregate.Indicator, error) {
	err := validate(KindSeries, raw)
	if err != nil {
		return nil, err
	}

	var obj map[string]map[string]float64

	err = json.Unmarshal(raw, &obj)
	if err != nil {
		return nil, fmt.Errorf("decode series entry: %w", err)
	}

	dates := make([]string, 0, len(obj))
	for date := range obj {
		dates = append(dates, date)
	}

	slices.Sort(dates)

	out := make([]aggregate.Indicator, 0, len(dates))

	for _, date := range dates {
		rows := obj[date]
		points := make([]aggregate.Point, 0, len(rows))

		for key, value := range rows {
			row, convErr := strconv.Atoi(key)
			if convErr != nil {
				return nil, fmt.Errorf("series %s: row %q: %w", date, key, convErr)
			}

			points = append(points, aggregate.Point{Row: row, Value: value})
		}

		slices.SortFunc(points, func(a, b aggregate.Point) int { return a.Row - b.Row })

		out = append(out, aggregate.Indicator{Date: date, Points: points})
	}

	return out, nil
}

// seriesDates returns the dates recorded in a log.
func seriesDates(entries []aggregate.Indicator) []string {
	dates := make([]string, len(entries))
	for i, in := range entries {
		dates[i] = in.Date
	}

	return dates
}
