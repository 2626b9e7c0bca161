package metrics

import (
	"gonum.org/v1/gonum/floats"

	"github.com/irex-4qt/logparser/internal/signal"
	"github.com/irex-4qt/logparser/internal/units"
)

// stepDurations returns offsets[i]-offsets[i-1], with 0 for the first row.
func stepDurations(offsets []float64) []float64 {
	dt := make([]float64, len(offsets))
	for i := 1; i < len(offsets); i++ {
		dt[i] = offsets[i] - offsets[i-1]
	}
	return dt
}

// Energy integrates voltage times current over time with the rectangular
// rule and returns kWh. Each row's step is the offset difference to the
// previous row of the table, zero for the first row; rows where either
// signal is absent contribute nothing.
func Energy(t *signal.Table, voltageCol, currentCol string) (Quantity, error) {
	voltageCol, currentCol, err := resolvePair(t, "energy", voltageCol, currentCol)
	if err != nil {
		return Unavailable(), err
	}

	v, vOK := t.Numeric(voltageCol)
	i, iOK := t.Numeric(currentCol)
	dt := stepDurations(t.Offsets())

	var power, steps []float64
	for row := range dt {
		if vOK[row] && iOK[row] {
			power = append(power, v[row]*i[row])
			steps = append(steps, dt[row])
		}
	}
	return Known(units.WattSecondsToKWh(floats.Dot(power, steps))), nil
}

// Distance integrates |speed| times gearRatio (km/h) over elapsed hours.
// Absent samples are dropped first, so each step spans the gap to the
// previous present sample.
func Distance(t *signal.Table, speedCol string, gearRatio float64) (Quantity, error) {
	col, ok := t.Resolve(speedCol)
	if !ok {
		return Unavailable(), &MissingSignalError{Metric: "distance", Column: speedCol}
	}

	offsets, raw := t.Column(col)
	kmph := make([]float64, len(raw))
	for k, s := range raw {
		kmph[k] = units.RawSpeedToKMPH(s, gearRatio)
	}
	hours := stepDurations(offsets)
	floats.Scale(1/units.SecondsPerHour, hours)
	return Known(floats.Dot(kmph, hours)), nil
}

// PowerPoint is one instantaneous power reading.
type PowerPoint struct {
	Offset float64
	KW     float64
}

// PowerSeries returns voltage times current in kW for every row where both
// are present.
func PowerSeries(t *signal.Table, voltageCol, currentCol string) ([]PowerPoint, error) {
	voltageCol, currentCol, err := resolvePair(t, "power", voltageCol, currentCol)
	if err != nil {
		return nil, err
	}
	v, vOK := t.Numeric(voltageCol)
	i, iOK := t.Numeric(currentCol)
	offsets := t.Offsets()

	var out []PowerPoint
	for row := range offsets {
		if vOK[row] && iOK[row] {
			out = append(out, PowerPoint{Offset: offsets[row], KW: units.WattsToKW(v[row] * i[row])})
		}
	}
	return out, nil
}

func resolvePair(t *signal.Table, metric, a, b string) (string, string, error) {
	ra, ok := t.Resolve(a)
	if !ok {
		return "", "", &MissingSignalError{Metric: metric, Column: a}
	}
	rb, ok := t.Resolve(b)
	if !ok {
		return "", "", &MissingSignalError{Metric: metric, Column: b}
	}
	return ra, rb, nil
}
