// Command logparser exports a CAN recording as raw and filtered CSV
// artifacts, derives the drive metrics and records the run.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/irex-4qt/logparser/internal/config"
	"github.com/irex-4qt/logparser/internal/db"
	"github.com/irex-4qt/logparser/internal/export"
	"github.com/irex-4qt/logparser/internal/fsutil"
	"github.com/irex-4qt/logparser/internal/metrics"
	"github.com/irex-4qt/logparser/internal/monitoring"
	"github.com/irex-4qt/logparser/internal/pipeline"
	"github.com/irex-4qt/logparser/internal/recording"
	"github.com/irex-4qt/logparser/internal/timeutil"
	"github.com/irex-4qt/logparser/internal/version"
)

// errUsage marks command line mistakes; main exits with status 2.
var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout, timeutil.RealClock{}); err != nil {
		fmt.Fprintf(os.Stderr, "logparser: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type options struct {
	configPath string
	recording  string
	dbcsDir    string
	exportDir  string
	historyDB  string
	plots      bool
	logLevel   string
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("logparser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", config.DefaultPath, "Settings file (.toml, .yaml or .json); missing file means defaults")
	fs.StringVar(&o.recording, "recording", "", "Recording to export (.pcap, .log or .crd)")
	fs.StringVar(&o.dbcsDir, "dbcs", "", "Catalogue directory (overrides paths.dbcs_dir)")
	fs.StringVar(&o.exportDir, "out", "", "Export directory (overrides paths.export_dir)")
	fs.StringVar(&o.historyDB, "history", "", "Run history database (overrides paths.history_db)")
	fs.BoolVar(&o.plots, "plots", false, "Also write PNG plots of the default and temperature signals")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL or info")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return o, fmt.Errorf("%w: %v", errUsage, err)
	}
	if o.version {
		return o, nil
	}
	if o.recording == "" {
		return o, fmt.Errorf("%w: -recording is required", errUsage)
	}
	return o, nil
}

// runMigrate handles "logparser migrate [-config f] [-history db] <action>".
func runMigrate(args []string, stdout io.Writer) error {
	var configPath, historyDB string
	fs := flag.NewFlagSet("logparser migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.StringVar(&configPath, "config", config.DefaultPath, "Settings file")
	fs.StringVar(&historyDB, "history", "", "Run history database (overrides paths.history_db)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	if historyDB == "" {
		settings, err := config.LoadOrDefault(configPath)
		if err != nil {
			return err
		}
		historyDB = settings.Paths.GetHistoryDB()
	}
	if historyDB == "" {
		return fmt.Errorf("%w: no run history database configured", errUsage)
	}
	return db.RunMigrateCommand(fs.Args(), historyDB, stdout)
}

func run(args []string, stdout io.Writer, clock timeutil.Clock) error {
	if len(args) > 0 && args[0] == "migrate" {
		return runMigrate(args[1:], stdout)
	}
	o, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintln(stdout, version.String("logparser"))
		return nil
	}

	logger, err := monitoring.NewLogger(o.logLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	monitoring.Use(logger)

	settings, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return err
	}
	applyOverrides(settings, o)

	began := clock.Now()
	fsys := fsutil.OSFileSystem{}
	p := pipeline.New(fsys, recording.NewOpener(fsys), pipeline.OptionsFrom(settings))
	res, err := p.RunWithTables(o.recording, settings.Paths.GetDBCsDir())
	if err != nil {
		return err
	}

	m := metrics.Compute(res.Table, metrics.ConfigFrom(settings.Metrics))
	processedAt := clock.Now()
	exportDir := settings.Paths.GetExportDir()

	summary := export.Summary{
		RunID:             uuid.NewString(),
		Recording:         o.recording,
		Raw:               res.Raw,
		Filtered:          res.Filtered,
		ProcessedAt:       processedAt.UTC(),
		ProcessingSeconds: clock.Since(began).Seconds(),
		Metrics:           export.NewMetricsDoc(m),
	}
	summaryPath, err := export.WriteSummary(fsys, exportDir, summary)
	if err != nil {
		return err
	}

	var plots []string
	if o.plots {
		if plots, err = writePlots(fsys, exportDir, o.recording, res.Table, settings.Dashboard); err != nil {
			return err
		}
	}

	if path := settings.Paths.GetHistoryDB(); path != "" {
		if err := recordRun(path, summary.RunID, o.recording, res, m, processedAt); err != nil {
			return err
		}
	}

	printReport(stdout, summary, summaryPath, plots, m)
	return nil
}

func applyOverrides(s *config.Settings, o options) {
	if o.dbcsDir != "" {
		s.Paths.DBCsDir = &o.dbcsDir
	}
	if o.exportDir != "" {
		s.Paths.ExportDir = &o.exportDir
	}
	if o.historyDB != "" {
		s.Paths.HistoryDB = &o.historyDB
	}
}

func recordRun(path, id, rec string, res pipeline.Result, m metrics.DerivedMetrics, at time.Time) error {
	history, err := db.Open(path)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer history.Close()

	run := db.NewRun(rec, res.Metadata.Start, res.Raw, res.Filtered, m, at)
	run.ID = id
	return history.RecordRun(&run)
}
