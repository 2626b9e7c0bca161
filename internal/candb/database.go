package candb

import (
	"fmt"

	"github.com/irex-4qt/logparser/internal/fsutil"
	"github.com/irex-4qt/logparser/internal/monitoring"
)

type frameKey struct {
	id       uint32
	extended bool
}

type source struct {
	path     string
	channel  int
	messages map[frameKey]*Message
}

// Database is the compiled form of a CatalogueSet.
type Database struct {
	sources []source
}

// Load reads and compiles the CAN catalogues of set. LIN catalogues are not
// decoded and only produce a warning.
func Load(fsys fsutil.FileSystem, set CatalogueSet) (*Database, error) {
	db := &Database{}
	for _, f := range set[CAN] {
		data, err := fsys.ReadFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("read catalogue: %w", err)
		}
		msgs, err := Parse(f.Path, data)
		if err != nil {
			return nil, err
		}
		src := source{path: f.Path, channel: f.Channel, messages: make(map[frameKey]*Message, len(msgs))}
		for _, m := range msgs {
			key := frameKey{id: m.ID, extended: m.Extended}
			if _, dup := src.messages[key]; dup {
				monitoring.Warnf("catalogue %s: duplicate definition for frame 0x%X, keeping the first", f.Path, m.ID)
				continue
			}
			src.messages[key] = m
		}
		db.sources = append(db.sources, src)
	}
	if n := len(set[LIN]); n > 0 {
		monitoring.Warnf("%d LIN catalogues ignored: only CAN frames are decoded", n)
	}
	return db, nil
}

// Lookup returns the definition for a frame seen on channel, searching
// catalogues in set order.
func (db *Database) Lookup(channel int, id uint32, extended bool) (*Message, bool) {
	key := frameKey{id: id, extended: extended}
	for _, src := range db.sources {
		if src.channel != 0 && src.channel != channel {
			continue
		}
		if m, ok := src.messages[key]; ok {
			return m, true
		}
	}
	return nil, false
}

// Messages returns the number of compiled message definitions.
func (db *Database) Messages() int {
	n := 0
	for _, src := range db.sources {
		n += len(src.messages)
	}
	return n
}
