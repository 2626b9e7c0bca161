package recording

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/irex-4qt/logparser/internal/signal"
)

// crdFields is the field count of a CRD data line: time, channel, id and
// eight payload bytes. Lines with any other count are comments.
const crdFields = 11

// readCRD reads a coprocessor CAN log:
//
//	<millis> <channel> <id> <b0> ... <b7>
//
// The format carries no wall-clock start, so metadata leaves Start zero and
// offsets are milliseconds since the first frame.
func readCRD(r io.Reader) ([]Frame, signal.RecordingMetadata, error) {
	meta := signal.RecordingMetadata{OffsetUnit: signal.Milliseconds}

	var (
		frames []Frame
		first  float64
	)
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		parts := strings.Fields(sc.Text())
		if len(parts) != crdFields {
			continue
		}

		millis, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, meta, fmt.Errorf("line %d: bad time %q: %w", line, parts[0], err)
		}
		ch, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, meta, fmt.Errorf("line %d: bad channel %q: %w", line, parts[1], err)
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(parts[2], "0x"), 16, 32)
		if err != nil {
			return nil, meta, fmt.Errorf("line %d: bad identifier %q: %w", line, parts[2], err)
		}
		data, err := hex.DecodeString(strings.Join(parts[3:], ""))
		if err != nil {
			return nil, meta, fmt.Errorf("line %d: bad payload: %w", line, err)
		}

		if len(frames) == 0 {
			first = millis
		}
		frames = append(frames, Frame{
			Offset:   millis - first,
			Channel:  ch,
			ID:       uint32(id),
			Extended: id > canSFFMask,
			Data:     data,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, meta, err
	}
	return frames, meta, nil
}
