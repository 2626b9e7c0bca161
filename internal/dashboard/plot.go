package dashboard

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/irex-4qt/logparser/internal/httputil"
	"github.com/irex-4qt/logparser/internal/monitoring"
	"github.com/irex-4qt/logparser/internal/signal"
)

// Default PNG size.
const (
	PlotWidth  = 14 * vg.Inch
	PlotHeight = 6 * vg.Inch
)

// maxPlotInches bounds the size a request may ask for.
const maxPlotInches = 40

// LinePlot plots cols against the table's offsets in seconds. Columns with
// no numeric samples are left out.
func LinePlot(tbl *signal.Table, title string, cols []string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time [s]"
	p.Add(plotter.NewGrid())

	for i, c := range cols {
		offsets, values := tbl.Column(c)
		if len(offsets) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(offsets))
		for k := range offsets {
			pts[k] = plotter.XY{X: offsets[k], Y: values[k]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("plot %s: %w", c, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(c, line)
	}
	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePNG renders p as a PNG of the given size.
func WritePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// inches parses a size parameter, falling back to def.
func inches(r *http.Request, key string, def vg.Length) vg.Length {
	v, err := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	if err != nil || v <= 0 || v > maxPlotInches {
		return def
	}
	return vg.Length(v) * vg.Inch
}

func (s *Server) handlePlotPNG(w http.ResponseWriter, r *http.Request) {
	name, tbl, lerr := s.load(r)
	if lerr != nil {
		lerr.write(w)
		return
	}
	p, err := LinePlot(tbl, name, s.selectColumns(r, tbl))
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	wt, err := p.WriterTo(inches(r, "w", PlotWidth), inches(r, "h", PlotHeight), "png")
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := wt.WriteTo(w); err != nil {
		monitoring.Warnf("dashboard: writing plot: %v", err)
	}
}
