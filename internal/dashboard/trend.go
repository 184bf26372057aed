package dashboard

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/qepting91/postwatch/internal/domain"
)

// TrendFile is the trend chart's file name inside the output directory.
const TrendFile = "trend.html"

// CountSource reports how many entries each day's bucket holds.
type CountSource interface {
	Counts(days []domain.Day) ([]int, error)
}

// TrendDays lists the n days ending at today, oldest first.
func TrendDays(today domain.Day, n int) []domain.Day {
	days := make([]domain.Day, 0, n)
	for i := n - 1; i >= 0; i-- {
		days = append(days, today.AddDays(-i))
	}
	return days
}

// RenderTrend draws new posts per day as a bar chart.
func RenderTrend(w io.Writer, days []domain.Day, counts []int) error {
	if len(days) != len(counts) {
		return fmt.Errorf("trend: %d days but %d counts", len(days), len(counts))
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "postwatch trend",
			Theme:     types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{Title: "New posts per day"}),
	)

	x := make([]string, 0, len(days))
	y := make([]opts.BarData, 0, len(counts))
	for i, d := range days {
		x = append(x, d.String())
		y = append(y, opts.BarData{Value: counts[i]})
	}
	bar.SetXAxis(x).AddSeries("New posts", y)

	return bar.Render(w)
}

// WriteTrend renders the last n days of buckets to outputDir/trend.html.
func WriteTrend(outputDir string, src CountSource, today domain.Day, n int) error {
	days := TrendDays(today, n)
	counts, err := src.Counts(days)
	if err != nil {
		return fmt.Errorf("trend counts: %w", err)
	}

	var buf bytes.Buffer
	if err := RenderTrend(&buf, days, counts); err != nil {
		return fmt.Errorf("render trend: %w", err)
	}
	return writeOutput(outputDir, TrendFile, buf.Bytes())
}
