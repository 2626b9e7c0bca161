// Package dashboard serves an exported signal table as an HTML dashboard:
// indicator cards for the derived metrics, line plots of selected signals,
// a power plot and the recent run history.
package dashboard

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/irex-4qt/logparser/internal/config"
	"github.com/irex-4qt/logparser/internal/db"
	"github.com/irex-4qt/logparser/internal/export"
	"github.com/irex-4qt/logparser/internal/fsutil"
	"github.com/irex-4qt/logparser/internal/httputil"
	"github.com/irex-4qt/logparser/internal/metrics"
	"github.com/irex-4qt/logparser/internal/monitoring"
	"github.com/irex-4qt/logparser/internal/security"
	"github.com/irex-4qt/logparser/internal/signal"
)

// RunLister returns the most recent runs, newest first.
type RunLister interface {
	RecentRuns(limit int) ([]db.Run, error)
}

// Options configures a Server.
type Options struct {
	// ExportDir holds the artifacts that may be shown.
	ExportDir string
	// Artifact is the file name shown when a request names none.
	Artifact           string
	DefaultColumns     []string
	TemperatureColumns []string
	Metrics            metrics.Config
	// History is optional; nil hides the run table.
	History    RunLister
	RecentRuns int
}

// OptionsFrom maps settings onto dashboard options. Artifact and History
// are left for the caller.
func OptionsFrom(s *config.Settings) Options {
	return Options{
		ExportDir:          s.Paths.GetExportDir(),
		DefaultColumns:     s.Dashboard.GetDefaultColumns(),
		TemperatureColumns: s.Dashboard.GetTemperatureColumns(),
		Metrics:            metrics.ConfigFrom(s.Metrics),
		RecentRuns:         10,
	}
}

// Server renders the dashboard over artifacts in one export directory.
type Server struct {
	fs   fsutil.FileSystem
	opts Options
}

// New returns a Server reading artifacts from the local filesystem.
func New(opts Options) *Server {
	if opts.RecentRuns <= 0 {
		opts.RecentRuns = 10
	}
	return &Server{fs: fsutil.OSFileSystem{}, opts: opts}
}

// RegisterRoutes mounts the dashboard handlers on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.getOnly(s.handleIndex))
	mux.HandleFunc("/charts/temperature", s.getOnly(s.handleTemperatureChart))
	mux.HandleFunc("/charts/columns", s.getOnly(s.handleColumnsChart))
	mux.HandleFunc("/charts/power", s.getOnly(s.handlePowerChart))
	mux.HandleFunc("/plot.png", s.getOnly(s.handlePlotPNG))
	mux.HandleFunc("/api/summary", s.getOnly(s.handleSummary))
	mux.HandleFunc("/api/runs", s.getOnly(s.handleRuns))
}

func (s *Server) getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			httputil.MethodNotAllowed(w, http.MethodGet)
			return
		}
		h(w, r)
	}
}

// loadError carries the status a failed artifact load should answer with.
type loadError struct {
	status int
	err    error
}

func (e *loadError) Error() string { return e.err.Error() }

func (e *loadError) write(w http.ResponseWriter) {
	httputil.WriteJSONError(w, e.status, e.Error())
}

// load reads the artifact named by the "artifact" query parameter, or the
// configured default.
func (s *Server) load(r *http.Request) (string, *signal.Table, *loadError) {
	name := r.URL.Query().Get("artifact")
	if name == "" {
		name = s.opts.Artifact
	}
	if name == "" {
		return "", nil, &loadError{http.StatusNotFound, fmt.Errorf("no artifact selected")}
	}
	path, err := security.ResolveArtifact(s.opts.ExportDir, name, ".csv")
	if err != nil {
		return "", nil, &loadError{http.StatusBadRequest, err}
	}
	tbl, err := export.ReadArtifact(s.fs, path)
	if err != nil {
		return "", nil, &loadError{http.StatusInternalServerError, err}
	}
	return name, tbl, nil
}

// selectColumns maps the requested signal names onto table columns. With
// no "col" parameter the configured defaults apply. Unknown names are
// skipped with a warning.
func (s *Server) selectColumns(r *http.Request, tbl *signal.Table) []string {
	names := r.URL.Query()["col"]
	if len(names) == 0 {
		names = s.opts.DefaultColumns
	}
	return resolveColumns(tbl, names)
}

func resolveColumns(tbl *signal.Table, names []string) []string {
	var cols []string
	for _, name := range names {
		col, ok := tbl.Resolve(name)
		if !ok {
			monitoring.Warnf("dashboard: column %q not found, skipping", name)
			continue
		}
		if !slices.Contains(cols, col) {
			cols = append(cols, col)
		}
	}
	return cols
}

func (s *Server) recentRuns() []db.Run {
	if s.opts.History == nil {
		return nil
	}
	runs, err := s.opts.History.RecentRuns(s.opts.RecentRuns)
	if err != nil {
		monitoring.Warnf("dashboard: run history unavailable: %v", err)
		return nil
	}
	return runs
}

// summaryDoc is the /api/summary response.
type summaryDoc struct {
	Artifact string            `json:"artifact"`
	Rows     int               `json:"rows"`
	Columns  []string          `json:"columns"`
	Metrics  export.MetricsDoc `json:"metrics"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	name, tbl, lerr := s.load(r)
	if lerr != nil {
		lerr.write(w)
		return
	}
	m := metrics.Compute(tbl, s.opts.Metrics)
	httputil.WriteJSONOK(w, summaryDoc{
		Artifact: name,
		Rows:     tbl.Len(),
		Columns:  tbl.Columns(),
		Metrics:  export.NewMetricsDoc(m),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		httputil.NotFound(w, "run history is not configured")
		return
	}
	runs, err := s.opts.History.RecentRuns(s.opts.RecentRuns)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	httputil.WriteJSONOK(w, runs)
}
