package recording

import (
	"time"

	"github.com/irex-4qt/logparser/internal/candb"
	"github.com/irex-4qt/logparser/internal/pipeline"
	"github.com/irex-4qt/logparser/internal/signal"
)

// Frame is one CAN frame read from a recording.
type Frame struct {
	// Time is the absolute capture time, zero when the format has none.
	Time time.Time
	// Offset is the time since the first frame, in the reader's unit.
	Offset   float64
	Channel  int
	ID       uint32
	Extended bool
	Remote   bool
	FD       bool
	Data     []byte
}

// fdLengths maps CAN FD payload lengths above 8 to their DLC codes.
var fdLengths = map[int]int{12: 9, 16: 10, 20: 11, 24: 12, 32: 13, 48: 14, 64: 15}

// DLC returns the data length code for the frame's payload.
func (f Frame) DLC() int {
	if n := len(f.Data); n > 8 {
		return fdLengths[n]
	}
	return len(f.Data)
}

// rawRecord renders the frame as a pipeline.RawGroup record.
func (f Frame) rawRecord() signal.Record {
	ide := 0.0
	if f.Extended {
		ide = 1
	}
	return signal.Record{
		Offset: f.Offset,
		Group:  pipeline.RawGroup,
		Values: map[string]signal.Value{
			"BusChannel": signal.Number(float64(f.Channel)),
			"ID":         signal.Number(float64(f.ID)),
			"IDE":        signal.Number(ide),
			"DLC":        signal.Number(float64(f.DLC())),
			"DataLength": signal.Number(float64(len(f.Data))),
			"DataBytes":  signal.Bytes(f.Data),
		},
	}
}

// rawSource yields every frame as a raw record.
type rawSource struct {
	frames []Frame
	pos    int
}

func (s *rawSource) Next() bool {
	if s.pos >= len(s.frames) {
		return false
	}
	s.pos++
	return true
}

func (s *rawSource) Record() signal.Record { return s.frames[s.pos-1].rawRecord() }
func (s *rawSource) Err() error            { return nil }

// knownSource yields the decoded signals of frames the database defines.
type knownSource struct {
	frames []Frame
	db     *candb.Database
	pos    int
	cur    signal.Record
}

func (s *knownSource) Next() bool {
	for s.pos < len(s.frames) {
		f := s.frames[s.pos]
		s.pos++
		if f.Remote {
			continue
		}
		msg, ok := s.db.Lookup(f.Channel, f.ID, f.Extended)
		if !ok {
			continue
		}
		decoded := msg.Decode(f.Data)
		if len(decoded) == 0 {
			continue
		}
		values := make(map[string]signal.Value, len(decoded))
		for name, v := range decoded {
			values[name] = signal.Number(v)
		}
		s.cur = signal.Record{Offset: f.Offset, Group: msg.Name, Values: values}
		return true
	}
	return false
}

func (s *knownSource) Record() signal.Record { return s.cur }
func (s *knownSource) Err() error            { return nil }
