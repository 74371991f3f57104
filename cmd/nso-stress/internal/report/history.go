package report

import (
	"io"

	"github.com/dustin/go-humanize"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/history"
)

// PrintHistory lists recorded runs, newest first.
func PrintHistory(w io.Writer, runs []history.Run) {
	table := newTable(w, []string{"When", "Label", "Host", "Protocol", "Window", "Count OK", "Per second", "Average", "Failed"})
	for _, r := range runs {
		failed := int64(r.WrongCode + r.Exceptions)
		table.Append([]string{
			humanize.Time(r.Started),
			r.Label,
			r.Host,
			r.Protocol,
			humanize.Comma(int64(r.Window)),
			humanize.Comma(int64(r.OK)),
			formatFloat(r.PerSecond),
			r.Average,
			humanize.Comma(failed),
		})
	}
	table.Render()
}

func formatFloat(f float64) string {
	return humanize.CommafWithDigits(f, 1)
}
