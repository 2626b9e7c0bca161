package candb

import (
	"fmt"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/dbc"
	"go.einride.tech/can/pkg/descriptor"
)

// independentSignals is the pseudo message DBC editors use to park signals
// that belong to no frame.
const independentSignals = "VECTOR__INDEPENDENT_SIG_MSG"

// Signal is a compiled signal definition.
type Signal struct {
	desc *descriptor.Signal

	// start and length are kept apart from desc, whose uint8 fields
	// cannot address bits of a 64 byte FD payload.
	start, length int

	isSwitch    bool
	multiplexed bool
	muxValue    uint64
}

// Name returns the signal name.
func (s *Signal) Name() string { return s.desc.Name }

// Unit returns the physical unit.
func (s *Signal) Unit() string { return s.desc.Unit }

// fits reports whether the signal's bits lie within an n byte payload.
func (s *Signal) fits(n int) bool {
	start, length := s.start, s.length
	if !s.desc.IsBigEndian {
		return start+length <= n*8
	}
	last := start / 8
	if first := start%8 + 1; length > first {
		last += (length - first + 7) / 8
	}
	return last < n
}

// bits extracts the raw unsigned value from a payload of any length.
// Motorola signals walk the DBC sawtooth bit order from their MSB.
func (s *Signal) bits(data []byte) uint64 {
	var v uint64
	if !s.desc.IsBigEndian {
		for i := s.length - 1; i >= 0; i-- {
			v = v<<1 | bitAt(data, s.start+i)
		}
		return v
	}
	pos := s.start
	for i := 0; i < s.length; i++ {
		v = v<<1 | bitAt(data, pos)
		if pos%8 == 0 {
			pos += 15
		} else {
			pos--
		}
	}
	return v
}

func bitAt(data []byte, pos int) uint64 {
	return uint64(data[pos/8]>>(pos%8)) & 1
}

// physicalFD decodes the signal from a CAN FD payload.
func (s *Signal) physicalFD(data []byte) float64 {
	raw := s.bits(data)
	if s.desc.IsSigned && s.length > 0 && s.length < 64 && raw&(1<<(s.length-1)) != 0 {
		return s.desc.Offset + float64(int64(raw)-int64(1)<<s.length)*s.desc.Scale
	}
	if s.desc.IsSigned {
		return s.desc.Offset + float64(int64(raw))*s.desc.Scale
	}
	return s.desc.Offset + float64(raw)*s.desc.Scale
}

// Message is a compiled message definition.
type Message struct {
	ID       uint32
	Extended bool
	Name     string
	Size     int
	Signals  []*Signal
}

// Decode returns the physical value of every signal carried by data.
// Signals that do not fit a short payload are skipped, and multiplexed
// signals are decoded only when the multiplexer selects them. Classic
// payloads decode through can.Data; FD payloads over 8 bytes are read
// bit by bit.
func (m *Message) Decode(data []byte) map[string]float64 {
	fd := len(data) > len(can.Data{})
	var d can.Data
	if !fd {
		copy(d[:], data)
	}

	out := make(map[string]float64, len(m.Signals))
	var (
		muxKnown bool
		mux      uint64
	)
	for _, s := range m.Signals {
		if s.isSwitch && s.fits(len(data)) {
			if fd {
				mux = s.bits(data)
			} else if s.desc.IsBigEndian {
				mux = d.UnsignedBitsBigEndian(s.desc.Start, s.desc.Length)
			} else {
				mux = d.UnsignedBitsLittleEndian(s.desc.Start, s.desc.Length)
			}
			muxKnown = true
		}
	}
	for _, s := range m.Signals {
		if !s.fits(len(data)) {
			continue
		}
		if s.multiplexed && (!muxKnown || s.muxValue != mux) {
			continue
		}
		if fd {
			out[s.desc.Name] = s.physicalFD(data)
		} else {
			out[s.desc.Name] = s.desc.UnmarshalPhysical(d)
		}
	}
	return out
}

// Parse compiles the message definitions of one DBC document.
func Parse(name string, data []byte) ([]*Message, error) {
	p := dbc.NewParser(name, data)
	if err := p.Parse(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	var msgs []*Message
	for _, def := range p.Defs() {
		md, ok := def.(*dbc.MessageDef)
		if !ok || string(md.Name) == independentSignals {
			continue
		}
		msg := &Message{
			ID:       md.MessageID.ToCAN(),
			Extended: md.MessageID.IsExtended(),
			Name:     string(md.Name),
			Size:     int(md.Size),
		}
		for _, sd := range md.Signals {
			msg.Signals = append(msg.Signals, compileSignal(sd))
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func compileSignal(sd dbc.SignalDef) *Signal {
	s := &Signal{
		desc: &descriptor.Signal{
			Name:        string(sd.Name),
			Length:      uint8(sd.Size),
			IsBigEndian: sd.IsBigEndian,
			IsSigned:    sd.IsSigned,
			Offset:      sd.Offset,
			Scale:       sd.Factor,
			Min:         sd.Minimum,
			Max:         sd.Maximum,
			Unit:        sd.Unit,
		},
		isSwitch:    sd.IsMultiplexerSwitch,
		multiplexed: sd.IsMultiplexed,
		muxValue:    sd.MultiplexerSwitch,
		start:       int(sd.StartBit),
		length:      int(sd.Size),
	}
	// Bits past 255 only occur in FD messages, which never use desc.
	if sd.StartBit <= 255 {
		s.desc.Start = uint8(sd.StartBit)
	}
	return s
}
