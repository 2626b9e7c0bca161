package signal

import (
	"errors"
	"fmt"
)

// MalformedPayloadError reports a payload cell that does not hold bytes.
type MalformedPayloadError struct {
	Row    int
	Column string
	Kind   Kind
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("row %d: column %q holds a %s value, want bytes", e.Row, e.Column, e.Kind)
}

// RawBytesView returns a copy of t in which every payload in column is
// replaced by its FormatHex text. Other columns are untouched. A cell that
// is not a payload is left absent in the view and reported as a
// *MalformedPayloadError; the errors for all such rows are joined. A table
// without the column is returned as an unchanged copy.
func RawBytesView(t *Table, column string) (*Table, error) {
	out := &Table{
		samples:    make([]Sample, len(t.samples)),
		columns:    t.Columns(),
		timeAsDate: t.timeAsDate,
	}

	var errs []error
	for i, s := range t.samples {
		c := s.clone()
		if v, ok := c.Values[column]; ok {
			if b, ok := v.Payload(); ok {
				c.Values[column] = Text(FormatHex(b))
			} else {
				delete(c.Values, column)
				errs = append(errs, &MalformedPayloadError{Row: i, Column: column, Kind: v.Kind()})
			}
		}
		out.samples[i] = c
	}
	return out, errors.Join(errs...)
}
