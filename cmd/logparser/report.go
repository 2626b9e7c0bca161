package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/irex-4qt/logparser/internal/config"
	"github.com/irex-4qt/logparser/internal/dashboard"
	"github.com/irex-4qt/logparser/internal/export"
	"github.com/irex-4qt/logparser/internal/fsutil"
	"github.com/irex-4qt/logparser/internal/metrics"
	"github.com/irex-4qt/logparser/internal/monitoring"
	"github.com/irex-4qt/logparser/internal/security"
	"github.com/irex-4qt/logparser/internal/signal"
)

// writePlots renders the default and temperature signals of tbl as PNGs
// next to the artifacts and returns their paths. Plots with none of their
// signals present are skipped.
func writePlots(fsys fsutil.FileSystem, dir, rec string, tbl *signal.Table, d config.DashboardSettings) ([]string, error) {
	base := security.SanitizeFilename(export.BaseName(rec))
	groups := []struct {
		suffix, title string
		names         []string
	}{
		{"signals", "Signals", d.GetDefaultColumns()},
		{"temperature", "Temperatures", d.GetTemperatureColumns()},
	}

	var paths []string
	for _, g := range groups {
		var cols []string
		for _, name := range g.names {
			if col, ok := tbl.Resolve(name); ok {
				cols = append(cols, col)
			}
		}
		if len(cols) == 0 {
			monitoring.Warnf("plot %s: none of %v present, skipping", g.suffix, g.names)
			continue
		}

		p, err := dashboard.LinePlot(tbl, g.title, cols)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, fmt.Sprintf("plot_%s_%s.png", base, g.suffix))
		f, err := fsys.Create(path)
		if err != nil {
			return paths, fmt.Errorf("create %s: %w", path, err)
		}
		if err := dashboard.WritePNG(f, p, dashboard.PlotWidth, dashboard.PlotHeight); err != nil {
			f.Close()
			return paths, fmt.Errorf("render %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func printReport(w io.Writer, s export.Summary, summaryPath string, plots []string, m metrics.DerivedMetrics) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Recording:\t%s\n", s.Recording)
	fmt.Fprintf(tw, "Raw:\t%s (%d rows, %d columns)\n", s.Raw.Path, s.Raw.Rows, s.Raw.Columns)
	fmt.Fprintf(tw, "Filtered:\t%s (%d rows, %d columns)\n", s.Filtered.Path, s.Filtered.Rows, s.Filtered.Columns)
	fmt.Fprintf(tw, "Summary:\t%s\n", summaryPath)
	for _, p := range plots {
		fmt.Fprintf(tw, "Plot:\t%s\n", p)
	}
	fmt.Fprintf(tw, "Runtime:\t%s\n", m.Runtime)
	fmt.Fprintf(tw, "Energy:\t%s kWh\n", m.EnergyKWh.Format(3))
	fmt.Fprintf(tw, "Distance:\t%s km\n", m.DistanceKM.Format(2))
	fmt.Fprintf(tw, "Diesel equivalent:\t%s l\n", m.DieselLitres.Format(2))
	fmt.Fprintf(tw, "CO2 saved:\t%s kg\n", m.CO2Kg.Format(2))
	fmt.Fprintf(tw, "Cost (%s):\t%s %s\n", m.CostBasis, m.Cost.Format(2), m.Currency)
	tw.Flush()
}
