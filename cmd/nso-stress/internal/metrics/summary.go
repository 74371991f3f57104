package metrics

import (
	"time"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/engine"
)

// Summary aggregates the outcome of one run. Latency figures only
// cover requests that completed with the expected status, failed
// requests would skew them toward the server's error path.
type Summary struct {
	Window     uint          `json:"window"`
	Started    time.Time     `json:"started"`
	Elapsed    time.Duration `json:"elapsed"`
	Count      int           `json:"count"`
	OK         int           `json:"ok"`
	WrongCode  int           `json:"wrong_code"`
	Exceptions int           `json:"exceptions"`
	Total      time.Duration `json:"total_latency"`
	Average    time.Duration `json:"average_latency"`
	Min        time.Duration `json:"min_latency"`
	Max        time.Duration `json:"max_latency"`
	PerSecond  float64       `json:"per_second"`
}

func Summarize(window uint, run engine.Run) Summary {
	s := Summary{
		Window:  window,
		Elapsed: run.Elapsed,
	}
	for _, r := range run.Results {
		s.Add(r)
	}
	s.Finish()
	return s
}

// Add folds a single result into the summary. Finish must be called
// once all results are in.
func (s *Summary) Add(r engine.Result) {
	s.Count++
	switch r.Class {
	case engine.ClassOK:
		s.OK++
		s.Total += r.Elapsed
		if s.Min == 0 || r.Elapsed < s.Min {
			s.Min = r.Elapsed
		}
		if r.Elapsed > s.Max {
			s.Max = r.Elapsed
		}
	case engine.ClassWrong:
		s.WrongCode++
	default:
		s.Exceptions++
	}
}

func (s *Summary) Finish() {
	if s.OK > 0 {
		s.Average = s.Total / time.Duration(s.OK)
	}
	if s.Elapsed > 0 {
		s.PerSecond = float64(s.OK) / s.Elapsed.Seconds()
	}
}

// Failed reports whether any request missed its expected status.
func (s Summary) Failed() bool {
	return s.WrongCode > 0 || s.Exceptions > 0
}

// Observe records a result into the prometheus collectors alongside
// the summary counters.
func (reg *Registry) Observe(op string, r engine.Result) {
	reg.Requests.WithLabelValues(op, string(r.Class)).Inc()
	if r.Class == engine.ClassOK {
		reg.Latency.WithLabelValues(op).Observe(r.Elapsed.Seconds())
	}
}
