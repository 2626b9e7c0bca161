package testutil

import (
	"slices"

	"github.com/irex-4qt/logparser/internal/candb"
	"github.com/irex-4qt/logparser/internal/pipeline"
	"github.com/irex-4qt/logparser/internal/signal"
)

// FakeDecoder is an in-memory pipeline.Decoder.
type FakeDecoder struct {
	Meta signal.RecordingMetadata
	// All is returned by ExtractAll.
	All []signal.Record
	// Known is returned by ExtractKnown for a non-empty catalogue set.
	Known []signal.Record

	AllErr   error
	KnownErr error

	// Calls records the extraction order: "all" or "known".
	Calls []string
	// Sets records the catalogue sets passed to ExtractKnown.
	Sets []candb.CatalogueSet
}

func (d *FakeDecoder) Metadata() signal.RecordingMetadata { return d.Meta }

func (d *FakeDecoder) ExtractAll() (signal.Source, error) {
	d.Calls = append(d.Calls, "all")
	if d.AllErr != nil {
		return nil, d.AllErr
	}
	return signal.NewSliceSource(d.All), nil
}

func (d *FakeDecoder) ExtractKnown(set candb.CatalogueSet) (signal.Source, error) {
	d.Calls = append(d.Calls, "known")
	d.Sets = append(d.Sets, set)
	if d.KnownErr != nil {
		return nil, d.KnownErr
	}
	if set.Empty() {
		return signal.NewSliceSource(nil), nil
	}
	return signal.NewSliceSource(d.Known), nil
}

// FakeOpener hands out a FakeDecoder for the configured extensions.
type FakeOpener struct {
	Exts    []string
	Decoder *FakeDecoder
	OpenErr error
	Opened  []string
}

func (o *FakeOpener) Extensions() []string {
	if o.Exts == nil {
		return []string{".mf4"}
	}
	return slices.Clone(o.Exts)
}

func (o *FakeOpener) Open(path string) (pipeline.Decoder, error) {
	o.Opened = append(o.Opened, path)
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	return o.Decoder, nil
}
