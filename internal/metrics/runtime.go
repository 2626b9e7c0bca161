package metrics

import (
	"fmt"
	"time"

	"github.com/irex-4qt/logparser/internal/signal"
	"github.com/irex-4qt/logparser/internal/units"
)

// Runtime is the span between the first and last sample.
type Runtime struct {
	Duration time.Duration
	Hours    int
	Minutes  int
	Seconds  int
	known    bool
}

// Available reports whether the table had any rows.
func (r Runtime) Available() bool { return r.known }

// String renders the runtime as "1h 2m 3s", or "Empty data".
func (r Runtime) String() string {
	if !r.known {
		return "Empty data"
	}
	return fmt.Sprintf("%dh %dm %ds", r.Hours, r.Minutes, r.Seconds)
}

// Secs returns the runtime in seconds as a Quantity.
func (r Runtime) Secs() Quantity {
	if !r.known {
		return Unavailable()
	}
	return Known(r.Duration.Seconds())
}

// ComputeRuntime returns last minus first offset, split into whole hours,
// minutes and seconds by truncation.
func ComputeRuntime(t *signal.Table) Runtime {
	if t.Len() == 0 {
		return Runtime{}
	}
	offsets := t.Offsets()
	secs := offsets[len(offsets)-1] - offsets[0]
	whole := int(secs)
	return Runtime{
		Duration: units.SecondsToDuration(secs),
		Hours:    whole / 3600,
		Minutes:  whole % 3600 / 60,
		Seconds:  whole % 60,
		known:    true,
	}
}
