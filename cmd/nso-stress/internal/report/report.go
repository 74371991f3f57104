package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/metrics"
)

// PrintSummary renders the outcome of a single run as a two column
// key/value table.
func PrintSummary(w io.Writer, s metrics.Summary) {
	table := newTable(w, []string{"Result", "Value"})
	table.Append([]string{"Total time", formatDuration(s.Elapsed)})
	table.Append([]string{"Count OK", humanize.Comma(int64(s.OK))})
	table.Append([]string{"Per second", fmt.Sprintf("%.1f", s.PerSecond)})
	table.Append([]string{"Average", formatDuration(s.Average)})
	table.Append([]string{"Min", formatDuration(s.Min)})
	table.Append([]string{"Max", formatDuration(s.Max)})
	table.Append([]string{"Wrong status", humanize.Comma(int64(s.WrongCode))})
	table.Append([]string{"Exceptions", humanize.Comma(int64(s.Exceptions))})
	table.Render()
}

// PrintRamp renders one row per window size of a ramp run.
func PrintRamp(w io.Writer, summaries []metrics.Summary) {
	table := newTable(w, []string{"Window", "Count OK", "Per second", "Average", "Wrong status", "Exceptions"})
	for _, s := range summaries {
		table.Append([]string{
			humanize.Comma(int64(s.Window)),
			humanize.Comma(int64(s.OK)),
			fmt.Sprintf("%.1f", s.PerSecond),
			formatDuration(s.Average),
			humanize.Comma(int64(s.WrongCode)),
			humanize.Comma(int64(s.Exceptions)),
		})
	}
	table.Render()
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(header)
	var headerColors []tablewriter.Colors
	for range header {
		headerColors = append(headerColors, tablewriter.Colors{tablewriter.Bold})
	}
	table.SetHeaderColor(headerColors...)
	return table
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
