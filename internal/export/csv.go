// Package export persists signal tables as CSV artifacts and run summaries
// as JSON, and reads artifacts back for presentation.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/irex-4qt/logparser/internal/fsutil"
	"github.com/irex-4qt/logparser/internal/signal"
)

// TimeColumn is the header of the time axis column.
const TimeColumn = "timestamps"

// Artifact prefixes.
const (
	RawPrefix      = "raw_bytes_"
	FilteredPrefix = "filtered_"
)

// Artifact describes a written table.
type Artifact struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

// BaseName returns the recording file name without directory or extension.
func BaseName(recordingPath string) string {
	base := filepath.Base(recordingPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ArtifactName returns prefix + the recording base name + ".csv".
func ArtifactName(prefix, recordingPath string) string {
	return prefix + BaseName(recordingPath) + ".csv"
}

// WriteTable writes t as CSV: a time column followed by one column per
// signal. The time column holds RFC 3339 UTC times when the table uses
// absolute time, otherwise offsets in seconds. Absent cells are empty.
func WriteTable(w io.Writer, t *signal.Table) error {
	cw := csv.NewWriter(w)
	columns := t.Columns()

	if err := cw.Write(append([]string{TimeColumn}, columns...)); err != nil {
		return err
	}
	row := make([]string, len(columns)+1)
	for i := 0; i < t.Len(); i++ {
		s := t.Sample(i)
		if t.TimeAsDate() {
			row[0] = s.Time.UTC().Format(time.RFC3339Nano)
		} else {
			row[0] = signal.FormatNumber(s.Offset)
		}
		for j, c := range columns {
			row[j+1] = ""
			if v, ok := s.Values[c]; ok {
				row[j+1] = v.String()
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteArtifact writes t to dir/name through fsys. The directory must
// exist. A failed write can leave a partial file behind.
func WriteArtifact(fsys fsutil.FileSystem, dir, name string, t *signal.Table) (Artifact, error) {
	path := filepath.Join(dir, name)
	f, err := fsys.Create(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("create %s: %w", name, err)
	}
	if err := WriteTable(f, t); err != nil {
		f.Close()
		return Artifact{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return Artifact{}, fmt.Errorf("close %s: %w", name, err)
	}
	return Artifact{Name: name, Path: path, Rows: t.Len(), Columns: len(t.Columns())}, nil
}

// ReadTable parses an artifact written by WriteTable. Cells that parse as
// numbers become numbers, other non-empty cells text. For absolute time
// axes, offsets are measured from the first row.
func ReadTable(r io.Reader) (*signal.Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("artifact is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 || header[0] != TimeColumn {
		return nil, fmt.Errorf("artifact header must start with %q", TimeColumn)
	}
	columns := header[1:]

	var (
		samples    []signal.Sample
		timeAsDate bool
		start      time.Time
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		s := signal.Sample{Values: make(map[string]signal.Value)}
		if len(samples) == 0 {
			_, perr := time.Parse(time.RFC3339Nano, rec[0])
			timeAsDate = perr == nil
		}
		if timeAsDate {
			ts, err := time.Parse(time.RFC3339Nano, rec[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: timestamp: %w", line, err)
			}
			if len(samples) == 0 {
				start = ts
			}
			s.Time = ts
			s.Offset = ts.Sub(start).Seconds()
		} else {
			off, err := strconv.ParseFloat(rec[0], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: offset: %w", line, err)
			}
			s.Offset = off
		}

		for j, c := range columns {
			cell := rec[j+1]
			if cell == "" {
				continue
			}
			if f, ok := parseNumber(cell); ok {
				s.Values[c] = signal.Number(f)
			} else {
				s.Values[c] = signal.Text(cell)
			}
		}
		samples = append(samples, s)
	}
	return signal.NewTable(columns, samples, timeAsDate), nil
}

// parseNumber accepts finite numbers only, so text cells such as "inf" or
// "NaN" stay text.
func parseNumber(cell string) (float64, bool) {
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ReadArtifact opens and parses the artifact at path.
func ReadArtifact(fsys fsutil.FileSystem, path string) (*signal.Table, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return t, nil
}
