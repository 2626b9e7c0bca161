package signal

// Record is one decoded sample as delivered by a decoder: an offset in the
// recording's declared unit, the message group it came from and the signal
// values it carries.
type Record struct {
	Offset float64
	Group  string
	Values map[string]Value
}

// Source iterates decoded records, in the style of bufio.Scanner.
type Source interface {
	// Next advances to the next record and reports whether there is one.
	Next() bool
	// Record returns the current record.
	Record() Record
	// Err returns the first error encountered, if any.
	Err() error
}

// SliceSource is a Source over records held in memory.
type SliceSource struct {
	records []Record
	pos     int
}

// NewSliceSource returns a Source yielding records in order.
func NewSliceSource(records []Record) *SliceSource {
	return &SliceSource{records: records}
}

func (s *SliceSource) Next() bool {
	if s.pos >= len(s.records) {
		return false
	}
	s.pos++
	return true
}

func (s *SliceSource) Record() Record { return s.records[s.pos-1] }

func (s *SliceSource) Err() error { return nil }
