// Package signal turns decoded bus records into time-indexed signal tables.
//
// A Table is a sparse, immutable grid: rows are samples ordered by offset,
// columns are signal names in order of first appearance, and a cell with no
// value is absent rather than zero.
package signal

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/irex-4qt/logparser/internal/units"
)

// TimeUnit is the unit of a recording's relative offsets.
type TimeUnit = units.TimeUnit

// Offset units a recording can declare.
const (
	Seconds      = units.Seconds
	Milliseconds = units.Milliseconds
)

// RecordingMetadata describes how a recording's offsets map to wall-clock
// time. A zero Start means the absolute start is unknown.
type RecordingMetadata struct {
	Start      time.Time
	OffsetUnit TimeUnit
}

// Sample is one table row. Offset is in seconds from the recording start;
// Time is Start plus Offset, or zero when the start is unknown.
type Sample struct {
	Offset float64
	Time   time.Time
	Values map[string]Value
}

func (s Sample) clone() Sample {
	s.Values = maps.Clone(s.Values)
	if s.Values == nil {
		s.Values = map[string]Value{}
	}
	return s
}

// Table is an immutable signal table.
type Table struct {
	samples    []Sample
	columns    []string
	timeAsDate bool
}

// NewTable builds a table from samples in the given order. Columns lists the
// column order; columns present in samples but not listed are appended in
// order of first appearance. The samples are copied.
func NewTable(columns []string, samples []Sample, timeAsDate bool) *Table {
	t := &Table{
		samples:    make([]Sample, len(samples)),
		timeAsDate: timeAsDate,
	}
	seen := make(map[string]bool)
	for _, c := range columns {
		if !seen[c] {
			seen[c] = true
			t.columns = append(t.columns, c)
		}
	}
	for i, s := range samples {
		t.samples[i] = s.clone()
		for _, c := range sortedKeys(s.Values) {
			if !seen[c] {
				seen[c] = true
				t.columns = append(t.columns, c)
			}
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.samples) }

// Columns returns the column names in order.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// HasColumn reports whether the table has a column called name.
func (t *Table) HasColumn(name string) bool { return slices.Contains(t.columns, name) }

// Resolve maps a signal name onto a column: an exact match wins, otherwise
// the first column whose basename (the part after the last '.') is name.
func (t *Table) Resolve(name string) (string, bool) {
	if t.HasColumn(name) {
		return name, true
	}
	for _, c := range t.columns {
		if i := strings.LastIndexByte(c, '.'); i >= 0 && c[i+1:] == name {
			return c, true
		}
	}
	return "", false
}

// TimeAsDate reports whether the export time axis is absolute time.
func (t *Table) TimeAsDate() bool { return t.timeAsDate }

// Sample returns a copy of row i.
func (t *Table) Sample(i int) Sample { return t.samples[i].clone() }

// Samples returns a copy of all rows.
func (t *Table) Samples() []Sample {
	out := make([]Sample, len(t.samples))
	for i, s := range t.samples {
		out[i] = s.clone()
	}
	return out
}

// Offsets returns the row offsets in seconds.
func (t *Table) Offsets() []float64 {
	out := make([]float64, len(t.samples))
	for i, s := range t.samples {
		out[i] = s.Offset
	}
	return out
}

// Value returns the cell at row, col and whether it is present.
func (t *Table) Value(row int, col string) (Value, bool) {
	v, ok := t.samples[row].Values[col]
	return v, ok
}

// Numeric returns the column's numbers aligned to the rows, with present[i]
// false where the cell is absent or not a number.
func (t *Table) Numeric(col string) (values []float64, present []bool) {
	values = make([]float64, len(t.samples))
	present = make([]bool, len(t.samples))
	for i, s := range t.samples {
		if v, ok := s.Values[col]; ok {
			values[i], present[i] = v.Float()
		}
	}
	return values, present
}

// Column returns the offsets and values of the rows where col holds a
// number. Absent rows are dropped.
func (t *Table) Column(col string) (offsets, values []float64) {
	for _, s := range t.samples {
		if v, ok := s.Values[col]; ok {
			if f, ok := v.Float(); ok {
				offsets = append(offsets, s.Offset)
				values = append(values, f)
			}
		}
	}
	return offsets, values
}

// Select returns a table with only the named columns, in the given order.
// Unknown names are ignored. Row count and order are unchanged.
func (t *Table) Select(columns ...string) *Table {
	var keep []string
	for _, c := range columns {
		if t.HasColumn(c) && !slices.Contains(keep, c) {
			keep = append(keep, c)
		}
	}
	samples := make([]Sample, len(t.samples))
	for i, s := range t.samples {
		values := make(map[string]Value, len(keep))
		for _, c := range keep {
			if v, ok := s.Values[c]; ok {
				values[c] = v
			}
		}
		samples[i] = Sample{Offset: s.Offset, Time: s.Time, Values: values}
	}
	return &Table{samples: samples, columns: keep, timeAsDate: t.timeAsDate}
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
