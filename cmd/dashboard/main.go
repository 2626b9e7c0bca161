// Command dashboard serves exported artifacts and the run history over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"tailscale.com/tsweb"

	"github.com/irex-4qt/logparser/internal/config"
	"github.com/irex-4qt/logparser/internal/dashboard"
	"github.com/irex-4qt/logparser/internal/db"
	"github.com/irex-4qt/logparser/internal/monitoring"
	"github.com/irex-4qt/logparser/internal/version"
)

var (
	configPath  = flag.String("config", config.DefaultPath, "Settings file (.toml, .yaml or .json)")
	listen      = flag.String("listen", "", "Listen address (overrides dashboard.listen)")
	artifact    = flag.String("artifact", "", "Artifact shown by default, a file name inside the export directory")
	exportDir   = flag.String("export-dir", "", "Export directory (overrides paths.export_dir)")
	historyPath = flag.String("history", "", "Run history database (overrides paths.history_db)")
	logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("dashboard"))
		return
	}

	logger, err := monitoring.NewLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dashboard: build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	monitoring.Use(logger)
	log := logger.Sugar()

	settings, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}
	if *exportDir != "" {
		settings.Paths.ExportDir = exportDir
	}
	if *historyPath != "" {
		settings.Paths.HistoryDB = historyPath
	}
	addr := settings.Dashboard.GetListen()
	if *listen != "" {
		addr = *listen
	}

	opts := dashboard.OptionsFrom(settings)
	opts.Artifact = *artifact

	mux := http.NewServeMux()
	if path := settings.Paths.GetHistoryDB(); path != "" {
		history, err := db.Open(path)
		if err != nil {
			log.Fatalf("failed to open run history: %v", err)
		}
		defer history.Close()
		opts.History = history
		if err := history.AttachAdminRoutes(mux); err != nil {
			log.Fatalf("failed to attach admin routes: %v", err)
		}
	} else {
		tsweb.Debugger(mux)
	}
	dashboard.New(opts).RegisterRoutes(mux)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debugf("got request %q", r.URL.Path)
			mux.ServeHTTP(w, r)
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		log.Info("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warnf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Warnf("HTTP server force close error: %v", err)
			}
		}
	}()

	log.Infof("dashboard listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("failed to start server: %v", err)
		stop()
	}
	wg.Wait()
	log.Info("graceful shutdown complete")
}
