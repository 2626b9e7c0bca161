package signal

import (
	"fmt"
	"sort"
	"strings"

	"github.com/irex-4qt/logparser/internal/config"
	"github.com/irex-4qt/logparser/internal/monitoring"
	"github.com/irex-4qt/logparser/internal/units"
)

// BuildOptions controls table construction.
type BuildOptions struct {
	// TimeAsDate selects absolute time rather than relative offsets as the
	// export time axis.
	TimeAsDate bool
	// OnlyBasenames names columns by signal name alone instead of
	// Group.Signal. Signals sharing a name merge into one column.
	OnlyBasenames bool
	// UseInterpolation fills interior gaps in numeric columns linearly.
	UseInterpolation bool
}

// DefaultBuildOptions returns the options used when none are configured.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{TimeAsDate: true}
}

// BuildOptionsFrom maps export settings onto build options.
func BuildOptionsFrom(e config.ExportSettings) BuildOptions {
	return BuildOptions{
		TimeAsDate:       e.GetTimeAsDate(),
		OnlyBasenames:    e.GetOnlyBasenames(),
		UseInterpolation: e.GetUseInterpolation(),
	}
}

// ColumnName returns the column a signal lands in under opts.
func (o BuildOptions) ColumnName(group, name string) string {
	if o.OnlyBasenames {
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			return name[i+1:]
		}
		return name
	}
	if group == "" {
		return name
	}
	return group + "." + name
}

// Build drains src into a table. Each record becomes one row; rows are
// stably sorted by offset, so already ordered input keeps its order. Offsets
// are converted from meta.OffsetUnit to seconds exactly once.
func Build(src Source, meta RecordingMetadata, opts BuildOptions) (*Table, error) {
	if !units.IsValidTimeUnit(meta.OffsetUnit) {
		return nil, fmt.Errorf("recording metadata: unknown offset unit %q", meta.OffsetUnit)
	}

	timeAsDate := opts.TimeAsDate
	if timeAsDate && meta.Start.IsZero() {
		monitoring.Warnf("recording start time unknown, exporting relative offsets")
		timeAsDate = false
	}

	var samples []Sample
	collisions := 0
	for src.Next() {
		rec := src.Record()
		offset, err := units.ToSeconds(rec.Offset, meta.OffsetUnit)
		if err != nil {
			return nil, err
		}

		s := Sample{Offset: offset, Values: make(map[string]Value, len(rec.Values))}
		if !meta.Start.IsZero() {
			s.Time = meta.Start.Add(units.SecondsToDuration(offset))
		}
		for _, name := range sortedKeys(rec.Values) {
			col := opts.ColumnName(rec.Group, name)
			if _, dup := s.Values[col]; dup {
				collisions++
				continue
			}
			s.Values[col] = rec.Values[name]
		}
		samples = append(samples, s)
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	if collisions > 0 {
		monitoring.Warnf("%d signal values dropped: base name collides with another signal in the same row", collisions)
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Offset < samples[j].Offset
	})

	t := &Table{samples: samples, timeAsDate: timeAsDate}
	seen := make(map[string]bool)
	for _, s := range samples {
		for _, c := range sortedKeys(s.Values) {
			if !seen[c] {
				seen[c] = true
				t.columns = append(t.columns, c)
			}
		}
	}

	if opts.UseInterpolation {
		return t.Interpolate(), nil
	}
	return t, nil
}
