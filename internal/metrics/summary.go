package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/irex-4qt/logparser/internal/signal"
)

// SignalSummary describes the numeric samples of one column.
type SignalSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// Summaries returns a summary for every column with at least one numeric
// sample, in column order. StdDev is zero for a single sample.
func Summaries(t *signal.Table) []SignalSummary {
	var out []SignalSummary
	for _, col := range t.Columns() {
		_, values := t.Column(col)
		if len(values) == 0 {
			continue
		}
		s := SignalSummary{
			Column: col,
			Count:  len(values),
			Min:    floats.Min(values),
			Max:    floats.Max(values),
		}
		if len(values) == 1 {
			s.Mean = values[0]
		} else {
			s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
		}
		if math.IsNaN(s.StdDev) {
			s.StdDev = 0
		}
		out = append(out, s)
	}
	return out
}
