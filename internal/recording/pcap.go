package recording

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/irex-4qt/logparser/internal/monitoring"
	"github.com/irex-4qt/logparser/internal/signal"
)

// LinkTypeSocketCAN is LINKTYPE_CAN_SOCKETCAN.
const LinkTypeSocketCAN = layers.LinkType(227)

// SocketCAN identifier flags and masks.
const (
	canEFFFlag = 0x80000000
	canRTRFlag = 0x40000000
	canERRFlag = 0x20000000
	canEFFMask = 0x1FFFFFFF
	canSFFMask = 0x000007FF

	canFDFlagFDF = 0x04

	socketCANHeaderLen = 8
)

// readPCAP reads a libpcap capture of SocketCAN frames. All frames are on
// channel 1; offsets are seconds since the first packet.
func readPCAP(r io.Reader) ([]Frame, signal.RecordingMetadata, error) {
	meta := signal.RecordingMetadata{OffsetUnit: signal.Seconds}

	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, meta, fmt.Errorf("read pcap header: %w", err)
	}
	if lt := pr.LinkType(); lt != LinkTypeSocketCAN {
		return nil, meta, fmt.Errorf("pcap link type %d is not SocketCAN (%d)", lt, LinkTypeSocketCAN)
	}

	var frames []Frame
	errorFrames := 0
	for packet := 1; ; packet++ {
		data, ci, err := pr.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, meta, fmt.Errorf("packet %d: %w", packet, err)
		}

		f, err := parseSocketCAN(data)
		if err != nil {
			return nil, meta, fmt.Errorf("packet %d: %w", packet, err)
		}
		if f == nil {
			errorFrames++
			continue
		}
		if len(frames) == 0 {
			meta.Start = ci.Timestamp
		}
		f.Time = ci.Timestamp
		f.Offset = ci.Timestamp.Sub(meta.Start).Seconds()
		f.Channel = 1
		frames = append(frames, *f)
	}
	if errorFrames > 0 {
		monitoring.Warnf("skipped %d CAN error frames", errorFrames)
	}
	return frames, meta, nil
}

// parseSocketCAN decodes a SocketCAN pseudo-header and payload. Error
// frames return nil.
func parseSocketCAN(data []byte) (*Frame, error) {
	if len(data) < socketCANHeaderLen {
		return nil, fmt.Errorf("truncated SocketCAN header: %d bytes", len(data))
	}
	raw := binary.BigEndian.Uint32(data[0:4])
	if raw&canERRFlag != 0 {
		return nil, nil
	}
	length := int(data[4])
	if len(data) < socketCANHeaderLen+length {
		return nil, fmt.Errorf("payload length %d exceeds captured %d bytes", length, len(data)-socketCANHeaderLen)
	}

	f := &Frame{
		Extended: raw&canEFFFlag != 0,
		Remote:   raw&canRTRFlag != 0,
		FD:       length > 8 || data[5]&canFDFlagFDF != 0,
	}
	if f.Extended {
		f.ID = raw & canEFFMask
	} else {
		f.ID = raw & canSFFMask
	}
	if !f.Remote {
		f.Data = append([]byte{}, data[socketCANHeaderLen:socketCANHeaderLen+length]...)
	} else {
		f.Data = []byte{}
	}
	return f, nil
}
