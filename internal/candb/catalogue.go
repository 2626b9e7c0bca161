// Package candb loads DBC message catalogues and decodes CAN frames against
// them.
package candb

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/irex-4qt/logparser/internal/fsutil"
	"github.com/irex-4qt/logparser/internal/monitoring"
)

// BusType tags the bus a catalogue applies to.
type BusType string

const (
	CAN BusType = "CAN"
	LIN BusType = "LIN"
)

// CatalogueFile is one catalogue on disk. Channel 0 matches every bus
// channel; any other value matches only frames from that channel.
type CatalogueFile struct {
	Path    string
	Channel int
}

// CatalogueSet maps bus types to the catalogues that apply to them.
type CatalogueSet map[BusType][]CatalogueFile

// NewCatalogueSet returns a set with the given CAN catalogues and an empty
// LIN entry.
func NewCatalogueSet(can []CatalogueFile) CatalogueSet {
	if can == nil {
		can = []CatalogueFile{}
	}
	return CatalogueSet{CAN: can, LIN: {}}
}

// Empty reports whether the set holds no catalogue files.
func (s CatalogueSet) Empty() bool {
	for _, files := range s {
		if len(files) > 0 {
			return false
		}
	}
	return true
}

// Len returns the number of catalogue files across all bus types.
func (s CatalogueSet) Len() int {
	n := 0
	for _, files := range s {
		n += len(files)
	}
	return n
}

// Discover walks dir recursively and returns every file whose extension
// matches ext, case-insensitively, sorted by path. Each file applies to all
// channels. A missing directory yields an empty set and a warning.
func Discover(fsys fsutil.FileSystem, dir, ext string) (CatalogueSet, error) {
	var files []CatalogueFile
	if !fsys.Exists(dir) {
		monitoring.Warnf("catalogue directory %s does not exist, no messages will be decoded", dir)
		return NewCatalogueSet(nil), nil
	}
	err := fsys.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
			files = append(files, CatalogueFile{Path: path})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan catalogue directory %s: %w", dir, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	if len(files) == 0 {
		monitoring.Warnf("no %s catalogues found under %s, no messages will be decoded", ext, dir)
	}
	return NewCatalogueSet(files), nil
}
