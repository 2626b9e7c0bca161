package dashboard

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/irex-4qt/logparser/internal/db"
	"github.com/irex-4qt/logparser/internal/httputil"
	"github.com/irex-4qt/logparser/internal/metrics"
	"github.com/irex-4qt/logparser/internal/signal"
)

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Artifact}} · dashboard</title>
<style>
body { font-family: sans-serif; margin: 1.5em; background: #fafafa; }
.cards { display: flex; flex-wrap: wrap; gap: 1em; }
.card { background: #fff; border: 1px solid #ddd; border-radius: 6px; padding: 0.8em 1.2em; min-width: 10em; }
.card .label { color: #666; font-size: 0.85em; }
.card .value { font-size: 1.6em; margin-top: 0.2em; }
iframe { width: 100%; height: 470px; border: 0; margin-top: 1em; background: #fff; }
table { border-collapse: collapse; margin-top: 1em; background: #fff; }
td, th { border: 1px solid #ddd; padding: 0.3em 0.7em; text-align: right; }
td:first-child, th:first-child, td:nth-child(2) { text-align: left; }
</style>
</head>
<body>
<h1>{{.Artifact}}</h1>
<p>{{.Rows}} rows, {{.Signals}} signals.
{{if .Columns}}Plotted: {{range $i, $c := .Columns}}{{if $i}}, {{end}}{{$c}}{{end}}.{{end}}
<a href="{{.PNG}}">PNG</a> · <a href="{{.Summary}}">JSON</a></p>
<div class="cards">
{{range .Indicators}}<div class="card"><div class="label">{{.Label}}</div><div class="value">{{.Value}}</div></div>
{{end}}</div>
<iframe src="{{.ColumnsChart}}" title="signals"></iframe>
<iframe src="{{.TemperatureChart}}" title="temperatures"></iframe>
<iframe src="{{.PowerChart}}" title="power"></iframe>
{{if .HistoryEnabled}}
<h2>Recent runs</h2>
{{if .Runs}}<table>
<tr><th>Processed</th><th>Recording</th><th>Runtime [s]</th><th>Energy [kWh]</th><th>Distance [km]</th><th>CO2 [kg]</th><th>Cost</th></tr>
{{range .Runs}}<tr><td>{{.Processed}}</td><td>{{.Recording}}</td><td>{{.Runtime}}</td><td>{{.Energy}}</td><td>{{.Distance}}</td><td>{{.CO2}}</td><td>{{.Cost}}</td></tr>
{{end}}</table>{{else}}<p>No runs recorded yet.</p>{{end}}
{{end}}
</body>
</html>
`

var dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardHTML))

type indicator struct {
	Label string
	Value string
}

type runRow struct {
	Processed string
	Recording string
	Runtime   string
	Energy    string
	Distance  string
	CO2       string
	Cost      string
}

type pageData struct {
	Artifact string
	Rows     int
	Signals  int
	Columns  []string

	PNG              template.URL
	Summary          template.URL
	ColumnsChart     template.URL
	TemperatureChart template.URL
	PowerChart       template.URL

	Indicators     []indicator
	HistoryEnabled bool
	Runs           []runRow
}

// indicators renders the metric cards.
func indicators(m metrics.DerivedMetrics) []indicator {
	return []indicator{
		{"Runtime", m.Runtime.String()},
		{"Energy", withUnit(m.EnergyKWh.Format(2), "kWh")},
		{"Distance", withUnit(m.DistanceKM.Format(2), "km")},
		{"Diesel equivalent", withUnit(m.DieselLitres.Format(2), "l")},
		{"CO2 saved", withUnit(m.CO2Kg.Format(2), "kg")},
		{"Cost", withUnit(m.Cost.Format(2), m.Currency)},
	}
}

func withUnit(v, unit string) string {
	if v == "n/a" || unit == "" {
		return v
	}
	return v + " " + unit
}

func runRows(runs []db.Run) []runRow {
	rows := make([]runRow, len(runs))
	for i, r := range runs {
		rows[i] = runRow{
			Processed: r.ProcessedAt.Local().Format(time.DateTime),
			Recording: filepath.Base(r.Recording),
			Runtime:   r.RuntimeSecs.Format(0),
			Energy:    r.EnergyKWh.Format(3),
			Distance:  r.DistanceKM.Format(2),
			CO2:       r.CO2Kg.Format(2),
			Cost:      withUnit(r.Cost.Format(2), r.Currency),
		}
	}
	return rows
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		httputil.NotFound(w, "not found")
		return
	}
	name, tbl, lerr := s.load(r)
	if lerr != nil {
		lerr.write(w)
		return
	}
	cols := s.selectColumns(r, tbl)

	doc, err := s.renderIndex(name, tbl, cols)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteHTML(w, http.StatusOK, doc)
}

func (s *Server) renderIndex(name string, tbl *signal.Table, cols []string) ([]byte, error) {
	artifact := url.Values{"artifact": {name}}.Encode()
	selection := url.Values{"artifact": {name}, "col": cols}.Encode()
	link := func(path, query string) template.URL {
		return template.URL(path + "?" + query)
	}

	data := pageData{
		Artifact:         name,
		Rows:             tbl.Len(),
		Signals:          len(tbl.Columns()),
		Columns:          cols,
		PNG:              link("plot.png", selection),
		Summary:          link("api/summary", artifact),
		ColumnsChart:     link("charts/columns", selection),
		TemperatureChart: link("charts/temperature", artifact),
		PowerChart:       link("charts/power", artifact),
		Indicators:       indicators(metrics.Compute(tbl, s.opts.Metrics)),
		HistoryEnabled:   s.opts.History != nil,
		Runs:             runRows(s.recentRuns()),
	}

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
