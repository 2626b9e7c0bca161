package metrics

import (
	"encoding/json"
	"strconv"
)

// Sentinel is the legacy display value for a metric that could not be
// computed. It is only produced by OrSentinel.
const Sentinel = -1.0

// Quantity is a metric value that may be unavailable.
type Quantity struct {
	value float64
	known bool
}

// Known returns an available quantity.
func Known(v float64) Quantity { return Quantity{value: v, known: true} }

// Unavailable returns a quantity that could not be computed.
func Unavailable() Quantity { return Quantity{} }

// Get returns the value and whether it is available.
func (q Quantity) Get() (float64, bool) { return q.value, q.known }

// Available reports whether the quantity was computed.
func (q Quantity) Available() bool { return q.known }

// OrSentinel returns the value, or Sentinel when unavailable.
func (q Quantity) OrSentinel() float64 {
	if !q.known {
		return Sentinel
	}
	return q.value
}

// Map applies f to an available quantity and propagates unavailability.
func (q Quantity) Map(f func(float64) float64) Quantity {
	if !q.known {
		return q
	}
	return Known(f(q.value))
}

// Ptr returns a pointer to the value, or nil when unavailable.
func (q Quantity) Ptr() *float64 {
	if !q.known {
		return nil
	}
	v := q.value
	return &v
}

// Format renders the value with prec decimals, or "n/a".
func (q Quantity) Format(prec int) string {
	if !q.known {
		return "n/a"
	}
	return strconv.FormatFloat(q.value, 'f', prec, 64)
}

// MarshalJSON encodes an unavailable quantity as null.
func (q Quantity) MarshalJSON() ([]byte, error) {
	if !q.known {
		return []byte("null"), nil
	}
	return json.Marshal(q.value)
}

// UnmarshalJSON decodes null as unavailable.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	var v *float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v == nil {
		*q = Unavailable()
		return nil
	}
	*q = Known(*v)
	return nil
}
