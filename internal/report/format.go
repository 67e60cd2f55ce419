package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formats lists every supported output format.
var Formats = []string{FormatTable, FormatJSON, FormatYAML}

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown report format")

const (
	percentageValue = 100
	floatPrecision  = 4
)

// Write renders rep to w in format.
func Write(w io.Writer, rep Report, format string) error {
	switch format {
	case FormatTable, "":
		return WriteTable(w, rep)
	case FormatJSON:
		return WriteJSON(w, rep)
	case FormatYAML:
		return WriteYAML(w, rep)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteJSON renders rep as indented JSON.
func WriteJSON(w io.Writer, rep Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return nil
}

// WriteYAML renders rep as YAML.
func WriteYAML(w io.Writer, rep Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return enc.Close()
}

// WriteTable renders rep as text tables.
func WriteTable(w io.Writer, rep Report) error {
	heading := color.New(color.Bold)
	warn := color.New(color.FgYellow)

	for _, msg := range rep.Warnings {
		warn.Fprintf(w, "warning: %s\n", msg)
	}

	heading.Fprintln(w, "Average price per mile")

	if rep.Price == nil {
		fmt.Fprintln(w, "  no data")
	} else {
		fmt.Fprintf(w, "  %s over %s trips (%s)\n",
			strconv.FormatFloat(rep.Price.Mean, 'f', floatPrecision, 64),
			humanize.Comma(int64(rep.Price.Count)),
			rep.Price.Object)
	}

	fmt.Fprintln(w)
	heading.Fprintln(w, "Payment distribution")

	payments := table.NewWriter()
	payments.SetOutputMirror(w)
	payments.AppendHeader(table.Row{"Type", "Trips", "Share"})

	for _, p := range rep.Payments {
		payments.AppendRow(table.Row{
			p.Type,
			humanize.Comma(int64(p.Count)),
			fmt.Sprintf("%.1f%%", p.Share*percentageValue),
		})
	}

	payments.Render()

	fmt.Fprintln(w)
	heading.Fprintln(w, "Custom indicator per day")

	days := table.NewWriter()
	days.SetOutputMirror(w)
	days.AppendHeader(table.Row{"Date", "Rows", "Mean", "StdDev", "Median", "P95", "Trend"})

	for _, d := range rep.Days {
		days.AppendRow(table.Row{
			d.Date,
			humanize.Comma(int64(d.Rows)),
			humanize.FtoaWithDigits(d.Mean, floatPrecision),
			humanize.FtoaWithDigits(d.StdDev, floatPrecision),
			humanize.FtoaWithDigits(d.Median, floatPrecision),
			humanize.FtoaWithDigits(d.P95, floatPrecision),
			humanize.FtoaWithDigits(d.Trend, floatPrecision),
		})
	}

	days.Render()

	return nil
}
