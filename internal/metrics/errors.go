package metrics

import "fmt"

// MissingSignalError reports a metric whose input column is not in the
// table.
type MissingSignalError struct {
	Metric string
	Column string
}

func (e *MissingSignalError) Error() string {
	return fmt.Sprintf("%s: signal %q not found", e.Metric, e.Column)
}
