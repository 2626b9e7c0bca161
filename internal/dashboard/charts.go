package dashboard

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/irex-4qt/logparser/internal/httputil"
	"github.com/irex-4qt/logparser/internal/metrics"
	"github.com/irex-4qt/logparser/internal/monitoring"
	"github.com/irex-4qt/logparser/internal/signal"
	"github.com/irex-4qt/logparser/internal/units"
)

const (
	// powerColor fills the power plot.
	powerColor  = "green"
	clockFormat = "15:04:05.000"
)

// timeLabels returns the x axis labels: wall-clock times for absolute
// tables, offsets in seconds otherwise.
func timeLabels(tbl *signal.Table) []string {
	labels := make([]string, tbl.Len())
	for i, s := range tbl.Samples() {
		if tbl.TimeAsDate() {
			labels[i] = s.Time.UTC().Format(clockFormat)
		} else {
			labels[i] = signal.FormatNumber(s.Offset)
		}
	}
	return labels
}

// seriesData renders one column; absent and non-numeric cells become gaps.
func seriesData(tbl *signal.Table, col string) []opts.LineData {
	values, present := tbl.Numeric(col)
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		if present[i] {
			data[i] = opts.LineData{Value: v}
		} else {
			data[i] = opts.LineData{Value: "-"}
		}
	}
	return data
}

func newLineChart(id, title, yName string, labels []string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "420px", ChartID: id}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)
	line.SetXAxis(labels)
	return line
}

// columnsChart plots cols against time.
func columnsChart(id, title string, tbl *signal.Table, cols []string) *charts.Line {
	line := newLineChart(id, title, "", timeLabels(tbl))
	for _, c := range cols {
		line.AddSeries(c, seriesData(tbl, c),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	}
	return line
}

// powerChart plots voltage times current in kW as a filled area.
func powerChart(tbl *signal.Table, cfg metrics.Config) (*charts.Line, error) {
	points, err := metrics.PowerSeries(tbl, cfg.VoltageColumn, cfg.CurrentColumn)
	if err != nil {
		return nil, err
	}
	var start time.Time
	if tbl.TimeAsDate() && tbl.Len() > 0 {
		start = tbl.Sample(0).Time
	}
	labels := make([]string, len(points))
	data := make([]opts.LineData, len(points))
	for i, p := range points {
		if start.IsZero() {
			labels[i] = signal.FormatNumber(p.Offset)
		} else {
			labels[i] = start.Add(units.SecondsToDuration(p.Offset)).UTC().Format(clockFormat)
		}
		data[i] = opts.LineData{Value: p.KW}
	}

	line := newLineChart("power", "Power", "kW", labels)
	line.AddSeries("Power", data,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: powerColor}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: powerColor}),
	)
	return line, nil
}

func renderPage(w http.ResponseWriter, chart components.Charter) {
	page := components.NewPage()
	page.AddCharts(chart)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	httputil.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (s *Server) handleTemperatureChart(w http.ResponseWriter, r *http.Request) {
	_, tbl, lerr := s.load(r)
	if lerr != nil {
		lerr.write(w)
		return
	}
	cols := resolveColumns(tbl, s.opts.TemperatureColumns)
	renderPage(w, columnsChart("temperature", "Temperatures", tbl, cols))
}

func (s *Server) handleColumnsChart(w http.ResponseWriter, r *http.Request) {
	_, tbl, lerr := s.load(r)
	if lerr != nil {
		lerr.write(w)
		return
	}
	renderPage(w, columnsChart("columns", "Signals", tbl, s.selectColumns(r, tbl)))
}

func (s *Server) handlePowerChart(w http.ResponseWriter, r *http.Request) {
	_, tbl, lerr := s.load(r)
	if lerr != nil {
		lerr.write(w)
		return
	}
	chart, err := powerChart(tbl, s.opts.Metrics)
	if err != nil {
		monitoring.Warnf("dashboard: power plot unavailable: %v", err)
		httputil.NotFound(w, err.Error())
		return
	}
	renderPage(w, chart)
}
