// Package recording reads CAN recordings from disk and exposes them to the
// pipeline as decoders.
//
// Supported formats are SocketCAN libpcap captures (.pcap), candump logs
// (.log) and coprocessor CAN logs (.crd). A recording is read completely
// when opened.
package recording

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/irex-4qt/logparser/internal/candb"
	"github.com/irex-4qt/logparser/internal/fsutil"
	"github.com/irex-4qt/logparser/internal/pipeline"
	"github.com/irex-4qt/logparser/internal/signal"
)

type readFunc func(io.Reader) ([]Frame, signal.RecordingMetadata, error)

var readers = map[string]readFunc{
	".pcap": readPCAP,
	".log":  readCandump,
	".crd":  readCRD,
}

// Opener opens recordings through a FileSystem.
type Opener struct {
	fs fsutil.FileSystem
}

// NewOpener returns an Opener reading through fsys.
func NewOpener(fsys fsutil.FileSystem) *Opener {
	return &Opener{fs: fsys}
}

// Extensions returns the supported extensions, sorted.
func (o *Opener) Extensions() []string {
	exts := make([]string, 0, len(readers))
	for ext := range readers {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Open reads the recording at path.
func (o *Opener) Open(path string) (pipeline.Decoder, error) {
	rec, err := o.OpenRecording(path)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// OpenRecording is Open returning the concrete type.
func (o *Opener) OpenRecording(path string) (*Recording, error) {
	read, ok := readers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("unsupported recording format %q", filepath.Ext(path))
	}
	f, err := o.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	frames, meta, err := read(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	return &Recording{fs: o.fs, frames: frames, meta: meta}, nil
}

// Recording is an opened recording.
type Recording struct {
	fs     fsutil.FileSystem
	frames []Frame
	meta   signal.RecordingMetadata
}

// Metadata returns the recording's time base.
func (r *Recording) Metadata() signal.RecordingMetadata { return r.meta }

// Frames returns the number of frames read.
func (r *Recording) Frames() int { return len(r.frames) }

// ExtractAll yields every frame as a raw record.
func (r *Recording) ExtractAll() (signal.Source, error) {
	return &rawSource{frames: r.frames}, nil
}

// ExtractKnown loads the CAN catalogues of set and yields the decoded
// signals of the frames they define. Unknown frames are skipped.
func (r *Recording) ExtractKnown(set candb.CatalogueSet) (signal.Source, error) {
	db, err := candb.Load(r.fs, set)
	if err != nil {
		return nil, err
	}
	return &knownSource{frames: r.frames, db: db}, nil
}
