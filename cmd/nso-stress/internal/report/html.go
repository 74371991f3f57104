package report

import (
	"bytes"
	"html/template"
	"os"

	"github.com/pkg/errors"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/metrics"
)

// WriteHTML renders a ramp run as a standalone page with a throughput
// and latency chart per window size. The page has no external assets
// so it can be attached to a ticket or mail as-is.
func WriteHTML(path, host string, summaries []metrics.Summary) error {
	var buf bytes.Buffer
	data := htmlData{Host: host}
	for _, s := range summaries {
		data.Rows = append(data.Rows, htmlRow{
			Window:     s.Window,
			OK:         s.OK,
			PerSecond:  s.PerSecond,
			AverageMs:  float64(s.Average.Microseconds()) / 1000,
			WrongCode:  s.WrongCode,
			Exceptions: s.Exceptions,
		})
		if s.PerSecond > data.MaxPerSecond {
			data.MaxPerSecond = s.PerSecond
		}
	}
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return errors.Wrap(err, "rendering html report")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "writing html report to %s", path)
	}
	return nil
}

type htmlRow struct {
	Window     uint
	OK         int
	PerSecond  float64
	AverageMs  float64
	WrongCode  int
	Exceptions int
}

type htmlData struct {
	Host         string
	Rows         []htmlRow
	MaxPerSecond float64
}

// BarWidth scales a throughput value into the 0..600px chart area.
func (d htmlData) BarWidth(perSecond float64) int {
	if d.MaxPerSecond == 0 {
		return 0
	}
	return int(perSecond / d.MaxPerSecond * 600)
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"mul": func(a, b int) int { return a * b },
	"add": func(a, b int) int { return a + b },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>nso-stress report for {{.Host}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th { background: #eee; }
svg text { font-size: 12px; }
</style>
</head>
<body>
<h1>nso-stress report for {{.Host}}</h1>
<h2>Throughput by window size</h2>
<svg width="720" height="{{len .Rows | mul 24 | add 10}}">
{{- $d := . -}}
{{- range $i, $r := .Rows}}
<text x="0" y="{{$i | mul 24 | add 20}}">{{$r.Window}}</text>
<rect x="50" y="{{$i | mul 24 | add 8}}" width="{{$d.BarWidth $r.PerSecond}}" height="16" fill="#4a90d9"/>
<text x="{{$d.BarWidth $r.PerSecond | add 56}}" y="{{$i | mul 24 | add 20}}">{{printf "%.1f" $r.PerSecond}} req/s</text>
{{- end}}
</svg>
<h2>Results</h2>
<table>
<tr><th>Window</th><th>Count OK</th><th>Per second</th><th>Average (ms)</th><th>Wrong status</th><th>Exceptions</th></tr>
{{- range .Rows}}
<tr><td>{{.Window}}</td><td>{{.OK}}</td><td>{{printf "%.1f" .PerSecond}}</td><td>{{printf "%.2f" .AverageMs}}</td><td>{{.WrongCode}}</td><td>{{.Exceptions}}</td></tr>
{{- end}}
</table>
</body>
</html>
`))
