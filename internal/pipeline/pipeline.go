// Package pipeline runs a recording through decoding, table building and
// export: once unfiltered, with payloads rendered as hex, and once filtered
// to the messages known to the catalogues.
package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/irex-4qt/logparser/internal/candb"
	"github.com/irex-4qt/logparser/internal/config"
	"github.com/irex-4qt/logparser/internal/export"
	"github.com/irex-4qt/logparser/internal/fsutil"
	"github.com/irex-4qt/logparser/internal/monitoring"
	"github.com/irex-4qt/logparser/internal/signal"
)

// RawGroup is the message group of undecoded frames.
const RawGroup = "CAN_DataFrame"

// Decoder extracts records from one opened recording.
type Decoder interface {
	// Metadata describes the recording's time base.
	Metadata() signal.RecordingMetadata
	// ExtractAll yields every frame as a RawGroup record.
	ExtractAll() (signal.Source, error)
	// ExtractKnown yields the decoded signals of frames defined by set.
	ExtractKnown(set candb.CatalogueSet) (signal.Source, error)
}

// Opener opens recordings of the formats it supports.
type Opener interface {
	// Extensions lists supported file extensions, lower case with dot.
	Extensions() []string
	Open(path string) (Decoder, error)
}

// Options configures a Pipeline.
type Options struct {
	ExportDir          string
	CatalogueExtension string
	RawBytesColumn     string
	Build              signal.BuildOptions
}

// OptionsFrom maps settings onto pipeline options.
func OptionsFrom(s *config.Settings) Options {
	return Options{
		ExportDir:          s.Paths.GetExportDir(),
		CatalogueExtension: s.Export.GetCatalogueExtension(),
		RawBytesColumn:     s.Export.GetRawBytesColumn(),
		Build:              signal.BuildOptionsFrom(s.Export),
	}
}

// Pipeline exports recordings as raw and filtered artifacts.
type Pipeline struct {
	fs     fsutil.FileSystem
	opener Opener
	opts   Options
}

// New returns a Pipeline writing through fsys.
func New(fsys fsutil.FileSystem, opener Opener, opts Options) *Pipeline {
	if opts.CatalogueExtension == "" {
		opts.CatalogueExtension = ".dbc"
	}
	if opts.RawBytesColumn == "" {
		opts.RawBytesColumn = "DataBytes"
	}
	return &Pipeline{fs: fsys, opener: opener, opts: opts}
}

// Result is the outcome of RunWithTables.
type Result struct {
	Raw        export.Artifact
	Filtered   export.Artifact
	Catalogues candb.CatalogueSet
	Metadata   signal.RecordingMetadata
	Table      *signal.Table
	// PayloadErrors holds the rows whose payload could not be rendered.
	PayloadErrors error
}

// Run exports recordingPath against the catalogues under catalogueDir and
// returns the raw and filtered artifacts.
func (p *Pipeline) Run(recordingPath, catalogueDir string) (raw, filtered export.Artifact, err error) {
	res, err := p.RunWithTables(recordingPath, catalogueDir)
	return res.Raw, res.Filtered, err
}

// RunWithTables is Run, also returning the filtered table. The raw artifact
// is complete before the filtered one is started; a filtered failure leaves
// the raw artifact in place and returns it in the Result.
func (p *Pipeline) RunWithTables(recordingPath, catalogueDir string) (Result, error) {
	var res Result
	if err := p.validate(recordingPath); err != nil {
		return res, err
	}

	set, err := candb.Discover(p.fs, catalogueDir, p.opts.CatalogueExtension)
	if err != nil {
		return res, err
	}
	res.Catalogues = set

	dec, err := p.opener.Open(recordingPath)
	if err != nil {
		return res, &DecodeFailure{Stage: StageOpen, Path: recordingPath, Err: err}
	}
	res.Metadata = dec.Metadata()

	if err := p.fs.MkdirAll(p.opts.ExportDir, 0755); err != nil {
		return res, fmt.Errorf("create export directory: %w", err)
	}

	if err := p.exportRaw(dec, recordingPath, &res); err != nil {
		return res, err
	}
	if err := p.exportFiltered(dec, recordingPath, &res); err != nil {
		return res, err
	}
	return res, nil
}

func (p *Pipeline) validate(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(p.opener.Extensions(), ext) {
		return &InvalidInputError{
			Path:   path,
			Reason: fmt.Sprintf("extension %q not one of %s", ext, strings.Join(p.opener.Extensions(), ", ")),
		}
	}
	info, err := p.fs.Stat(path)
	if err != nil {
		return &InvalidInputError{Path: path, Reason: "file does not exist"}
	}
	if info.IsDir() {
		return &InvalidInputError{Path: path, Reason: "is a directory"}
	}
	return nil
}

// rawBytesColumn returns the column name the payload signal lands in.
func (p *Pipeline) rawBytesColumn() string {
	col := p.opts.RawBytesColumn
	if strings.Contains(col, ".") {
		return col
	}
	return p.opts.Build.ColumnName(RawGroup, col)
}

func (p *Pipeline) exportRaw(dec Decoder, path string, res *Result) error {
	src, err := dec.ExtractAll()
	if err != nil {
		return &DecodeFailure{Stage: StageRaw, Path: path, Err: err}
	}
	tbl, err := signal.Build(src, dec.Metadata(), p.opts.Build)
	if err != nil {
		return &DecodeFailure{Stage: StageRaw, Path: path, Err: err}
	}

	view, payloadErr := signal.RawBytesView(tbl, p.rawBytesColumn())
	if payloadErr != nil {
		var malformed *signal.MalformedPayloadError
		if errors.As(payloadErr, &malformed) {
			monitoring.Warnf("raw export: payloads not rendered, first at row %d: %v", malformed.Row, payloadErr)
		}
		res.PayloadErrors = payloadErr
	}

	art, err := export.WriteArtifact(p.fs, p.opts.ExportDir, export.ArtifactName(export.RawPrefix, path), view)
	if err != nil {
		return err
	}
	monitoring.Logf("wrote %s: %d rows, %d columns", art.Path, art.Rows, art.Columns)
	res.Raw = art
	return nil
}

func (p *Pipeline) exportFiltered(dec Decoder, path string, res *Result) error {
	src, err := dec.ExtractKnown(res.Catalogues)
	if err != nil {
		return &DecodeFailure{Stage: StageFiltered, Path: path, Err: err}
	}
	tbl, err := signal.Build(src, dec.Metadata(), p.opts.Build)
	if err != nil {
		return &DecodeFailure{Stage: StageFiltered, Path: path, Err: err}
	}

	art, err := export.WriteArtifact(p.fs, p.opts.ExportDir, export.ArtifactName(export.FilteredPrefix, path), tbl)
	if err != nil {
		return err
	}
	monitoring.Logf("wrote %s: %d rows, %d columns", art.Path, art.Rows, art.Columns)
	res.Filtered, res.Table = art, tbl
	return nil
}
