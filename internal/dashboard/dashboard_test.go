package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irex-4qt/logparser/internal/config"
	"github.com/irex-4qt/logparser/internal/db"
	"github.com/irex-4qt/logparser/internal/export"
	"github.com/irex-4qt/logparser/internal/fsutil"
	"github.com/irex-4qt/logparser/internal/metrics"
	"github.com/irex-4qt/logparser/internal/monitoring"
	"github.com/irex-4qt/logparser/internal/signal"
	"github.com/irex-4qt/logparser/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

const artifactName = "filtered_drive.csv"

var start = time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

func sample(offset float64, kv ...any) signal.Sample {
	values := make(map[string]signal.Value)
	for i := 0; i+1 < len(kv); i += 2 {
		values[kv[i].(string)] = signal.Number(kv[i+1].(float64))
	}
	return signal.Sample{Offset: offset, Time: start.Add(time.Duration(offset * float64(time.Second))), Values: values}
}

type fakeHistory struct {
	runs []db.Run
	err  error
}

func (f *fakeHistory) RecentRuns(limit int) ([]db.Run, error) {
	if len(f.runs) > limit {
		return f.runs[:limit], f.err
	}
	return f.runs, f.err
}

func newTestServer(t *testing.T, history RunLister) (*Server, *http.ServeMux) {
	t.Helper()
	dir := t.TempDir()
	tbl := signal.NewTable(nil, []signal.Sample{
		sample(0, "BMS.Voltage", 100.0, "BMS.Current", 10.0, "Inverter.TempCurr1", 40.0),
		sample(1, "BMS.Voltage", 100.0, "BMS.Current", 10.0, "Inverter.TempCurr1", 41.0),
		sample(2, "Motor.ElectricMachineSpeed1", 1000.0),
	}, true)
	_, err := export.WriteArtifact(fsutil.OSFileSystem{}, dir, artifactName, tbl)
	require.NoError(t, err)

	opts := OptionsFrom(config.Defaults())
	opts.ExportDir = dir
	opts.Artifact = artifactName
	if history != nil {
		opts.History = history
	}
	s := New(opts)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s, mux
}

func get(mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, path))
	return w
}

func TestSummary(t *testing.T) {
	_, mux := newTestServer(t, nil)

	w := get(mux, "/api/summary")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var doc struct {
		Artifact string   `json:"artifact"`
		Rows     int      `json:"rows"`
		Columns  []string `json:"columns"`
		Metrics  struct {
			Runtime    string   `json:"runtime"`
			EnergyKWh  *float64 `json:"energy_kwh"`
			DistanceKM *float64 `json:"distance_km"`
			Currency   string   `json:"currency"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, artifactName, doc.Artifact)
	assert.Equal(t, 3, doc.Rows)
	assert.Equal(t, "0h 0m 2s", doc.Metrics.Runtime)
	require.NotNil(t, doc.Metrics.EnergyKWh)
	assert.InDelta(t, 1000.0/3_600_000, *doc.Metrics.EnergyKWh, 1e-12)
	require.NotNil(t, doc.Metrics.DistanceKM)
	assert.Equal(t, "CHF", doc.Metrics.Currency)
}

func TestArtifactSelection(t *testing.T) {
	tests := []struct {
		name string
		path string
		code int
	}{
		{"default", "/api/summary", http.StatusOK},
		{"explicit", "/api/summary?artifact=" + artifactName, http.StatusOK},
		{"traversal", "/api/summary?artifact=../" + artifactName, http.StatusBadRequest},
		{"wrong extension", "/api/summary?artifact=history.db", http.StatusBadRequest},
		{"missing file", "/api/summary?artifact=filtered_other.csv", http.StatusBadRequest},
	}
	_, mux := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertStatusCode(t, get(mux, tt.path).Code, tt.code)
		})
	}
}

func TestNoArtifactConfigured(t *testing.T) {
	s := New(Options{ExportDir: t.TempDir()})
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	testutil.AssertStatusCode(t, get(mux, "/").Code, http.StatusNotFound)
}

func TestIndex(t *testing.T) {
	_, mux := newTestServer(t, nil)

	w := get(mux, "/?col=Voltage&col=NoSuchSignal")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	body := w.Body.String()

	assert.Contains(t, body, "3 rows, 4 signals.")
	assert.Contains(t, body, "Plotted: BMS.Voltage.")
	assert.Contains(t, body, `src="charts/columns?artifact=filtered_drive.csv&amp;col=BMS.Voltage"`)
	assert.Contains(t, body, `src="charts/power?artifact=filtered_drive.csv"`)
	assert.Contains(t, body, "0h 0m 2s")
	assert.Contains(t, body, "0.00 kWh")
	assert.NotContains(t, body, "Recent runs")
}

func TestIndexDefaultColumns(t *testing.T) {
	_, mux := newTestServer(t, nil)
	body := get(mux, "/").Body.String()
	assert.Contains(t, body, "Plotted: BMS.Voltage, BMS.Current.")
}

func TestIndexUnknownPath(t *testing.T) {
	_, mux := newTestServer(t, nil)
	testutil.AssertStatusCode(t, get(mux, "/favicon.ico").Code, http.StatusNotFound)
}

func TestMethodNotAllowed(t *testing.T) {
	_, mux := newTestServer(t, nil)
	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest(http.MethodPost, "/api/summary"))
	testutil.AssertStatusCode(t, w.Code, http.StatusMethodNotAllowed)
}

func TestCharts(t *testing.T) {
	_, mux := newTestServer(t, nil)

	tests := []struct {
		path string
		want []string
	}{
		{"/charts/columns?col=Voltage&col=Current", []string{"BMS.Voltage", "BMS.Current"}},
		{"/charts/temperature", []string{"Inverter.TempCurr1", "Temperatures"}},
		{"/charts/power", []string{"Power", powerColor, "kW"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(mux, tt.path)
			testutil.AssertStatusCode(t, w.Code, http.StatusOK)
			assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
			for _, s := range tt.want {
				assert.Contains(t, w.Body.String(), s)
			}
		})
	}
}

func TestChartsAreDeterministic(t *testing.T) {
	_, mux := newTestServer(t, nil)
	first := get(mux, "/charts/columns").Body.String()
	second := get(mux, "/charts/columns").Body.String()
	assert.Equal(t, first, second)
}

func TestPowerChartWithoutCurrent(t *testing.T) {
	s, mux := newTestServer(t, nil)
	s.opts.Metrics.CurrentColumn = "Amps"
	testutil.AssertStatusCode(t, get(mux, "/charts/power").Code, http.StatusNotFound)
}

func TestPlotPNG(t *testing.T) {
	_, mux := newTestServer(t, nil)

	w := get(mux, "/plot.png?col=Voltage&w=4&h=3")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "\x89PNG"))
}

func TestPlotPNGNoColumns(t *testing.T) {
	_, mux := newTestServer(t, nil)
	w := get(mux, "/plot.png?col=NoSuchSignal")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
}

func TestRunHistory(t *testing.T) {
	history := &fakeHistory{runs: []db.Run{{
		ID:          "run-1",
		Recording:   "/recordings/drive.pcap",
		ProcessedAt: start,
		RuntimeSecs: metrics.Known(12),
		EnergyKWh:   metrics.Known(0.5),
		DistanceKM:  metrics.Unavailable(),
		CO2Kg:       metrics.Known(0.33),
		Cost:        metrics.Known(0.14),
		Currency:    "CHF",
	}}}
	_, mux := newTestServer(t, history)

	body := get(mux, "/").Body.String()
	assert.Contains(t, body, "Recent runs")
	assert.Contains(t, body, "<td>drive.pcap</td>")
	assert.Contains(t, body, "<td>0.500</td>")
	assert.Contains(t, body, "<td>n/a</td>")
	assert.Contains(t, body, "0.14 CHF")

	w := get(mux, "/api/runs")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0]["run_id"])
	assert.Nil(t, runs[0]["distance_km"])
}

func TestRunHistoryUnavailable(t *testing.T) {
	_, mux := newTestServer(t, &fakeHistory{err: errors.New("database is locked")})

	w := get(mux, "/")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Contains(t, w.Body.String(), "No runs recorded yet.")
	testutil.AssertStatusCode(t, get(mux, "/api/runs").Code, http.StatusInternalServerError)
}

func TestRunsWithoutHistory(t *testing.T) {
	_, mux := newTestServer(t, nil)
	testutil.AssertStatusCode(t, get(mux, "/api/runs").Code, http.StatusNotFound)
}
