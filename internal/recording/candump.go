package recording

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/irex-4qt/logparser/internal/monitoring"
	"github.com/irex-4qt/logparser/internal/signal"
)

// readCandump reads a candump -l log:
//
//	(1700000000.123456) can0 123#DEADBEEF
//	(1700000000.223456) can1 1ABCDEF0#R
//	(1700000000.323456) can0 123##1DEADBEEF
//
// Interfaces become channels 1, 2, ... in order of first appearance.
func readCandump(r io.Reader) ([]Frame, signal.RecordingMetadata, error) {
	meta := signal.RecordingMetadata{OffsetUnit: signal.Seconds}
	channels := make(map[string]int)

	var frames []Frame
	errorFrames := 0
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 3 {
			return nil, meta, fmt.Errorf("line %d: want \"(time) iface frame\", got %q", line, text)
		}

		ts, err := parseCandumpTime(fields[0])
		if err != nil {
			return nil, meta, fmt.Errorf("line %d: %w", line, err)
		}
		f, err := parseCandumpFrame(fields[2])
		if err != nil {
			return nil, meta, fmt.Errorf("line %d: %w", line, err)
		}
		if f == nil {
			errorFrames++
			continue
		}

		ch, ok := channels[fields[1]]
		if !ok {
			ch = len(channels) + 1
			channels[fields[1]] = ch
		}
		if len(frames) == 0 {
			meta.Start = ts
		}
		f.Channel = ch
		f.Time = ts
		f.Offset = ts.Sub(meta.Start).Seconds()
		frames = append(frames, *f)
	}
	if err := sc.Err(); err != nil {
		return nil, meta, err
	}
	if errorFrames > 0 {
		monitoring.Warnf("skipped %d CAN error frames", errorFrames)
	}
	return frames, meta, nil
}

// parseCandumpTime parses "(seconds.fraction)" without going through a
// float, so microsecond stamps stay exact.
func parseCandumpTime(s string) (time.Time, error) {
	if len(s) < 3 || s[0] != '(' || s[len(s)-1] != ')' {
		return time.Time{}, fmt.Errorf("bad timestamp %q", s)
	}
	secPart, fracPart, _ := strings.Cut(s[1:len(s)-1], ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	var nsec int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		fracPart += strings.Repeat("0", 9-len(fracPart))
		if nsec, err = strconv.ParseInt(fracPart, 10, 64); err != nil {
			return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
		}
	}
	return time.Unix(sec, nsec).UTC(), nil
}

// parseCandumpFrame parses "ID#DATA", "ID#R" and "ID##<flags>DATA". Error
// frames return nil.
func parseCandumpFrame(s string) (*Frame, error) {
	idStr, rest, ok := strings.Cut(s, "#")
	if !ok {
		return nil, fmt.Errorf("frame %q has no '#'", s)
	}

	id, err := strconv.ParseUint(idStr, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("frame %q: bad identifier: %w", s, err)
	}
	f := &Frame{}
	switch len(idStr) {
	case 3:
		f.ID = uint32(id) & canSFFMask
	case 8:
		if id&canERRFlag != 0 {
			return nil, nil
		}
		f.ID = uint32(id) & canEFFMask
		f.Extended = true
	default:
		return nil, fmt.Errorf("frame %q: identifier must have 3 or 8 hex digits", s)
	}

	switch {
	case strings.HasPrefix(rest, "#"):
		if len(rest) < 2 {
			return nil, fmt.Errorf("frame %q: missing FD flags", s)
		}
		f.FD = true
		rest = rest[2:]
	case strings.HasPrefix(rest, "R") || strings.HasPrefix(rest, "r"):
		f.Remote = true
		f.Data = []byte{}
		return f, nil
	}

	data, err := hex.DecodeString(strings.ReplaceAll(rest, ".", ""))
	if err != nil {
		return nil, fmt.Errorf("frame %q: bad payload: %w", s, err)
	}
	if len(data) > 64 || (!f.FD && len(data) > 8) {
		return nil, fmt.Errorf("frame %q: payload of %d bytes too long", s, len(data))
	}
	f.Data = data
	return f, nil
}
