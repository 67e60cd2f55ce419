package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth  = "100%"
	chartHeight = "420px"
	lineWidth   = 2
)

// WriteHTML renders rep as a standalone page with a payment distribution bar
// chart and a per-day indicator line chart.
func WriteHTML(w io.Writer, rep Report) error {
	page := components.NewPage()
	page.PageTitle = "tripstat report"
	page.AddCharts(paymentChart(rep), indicatorChart(rep))

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render html report: %w", err)
	}

	return nil
}

func paymentChart(rep Report) *charts.Bar {
	labels := make([]string, len(rep.Payments))
	data := make([]opts.BarData, len(rep.Payments))

	for i, p := range rep.Payments {
		labels[i] = p.Type
		data[i] = opts.BarData{Value: p.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Payment distribution"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Payment type"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Trips"}),
	)
	bar.SetXAxis(labels).AddSeries("Trips", data)

	return bar
}

func indicatorChart(rep Report) *charts.Line {
	labels := make([]string, len(rep.Days))
	mean := make([]opts.LineData, len(rep.Days))
	median := make([]opts.LineData, len(rep.Days))
	trend := make([]opts.LineData, len(rep.Days))

	for i, d := range rep.Days {
		labels[i] = d.Date
		mean[i] = opts.LineData{Value: d.Mean}
		median[i] = opts.LineData{Value: d.Median}
		trend[i] = opts.LineData{Value: d.Trend}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "(tip + extra) per mile"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
	)
	line.SetXAxis(labels)
	line.AddSeries("Mean", mean, charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth}))
	line.AddSeries("Median", median, charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth}))
	line.AddSeries("Trend", trend,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth, Type: "dashed"}),
	)

	return line
}
