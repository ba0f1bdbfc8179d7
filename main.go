// Package main provides the entry point for the manual marker application.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	fyneapp "fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"manual-markers/internal/app"
	"manual-markers/internal/catalog"
	"manual-markers/internal/config"
	"manual-markers/internal/logging"
	"manual-markers/internal/metrics"
	"manual-markers/internal/ocr"
	"manual-markers/internal/pdfdoc"
	"manual-markers/internal/project"
	"manual-markers/internal/version"
	"manual-markers/ui/mainwindow"
	"manual-markers/ui/prefs"
)

const (
	appID         = "com.repuestos.manuales"
	prefsInterval = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath, version.Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Must(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.IsDevelopment(),
		Fields:      map[string]string{"app": "manual-markers", "version": version.Version},
	})
	defer func() { _ = logger.Sync() }()
	logger.Info("starting", zap.String("version", version.String()), zap.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Addr != "" {
		metrics.Serve(ctx, cfg.Metrics.Addr, logger.Named("metrics"))
	}

	projectPath := flag.Arg(0)
	catalogPath := cfg.CatalogPath()
	if projectPath != "" && cfg.Catalog.Path == "" {
		if proj, err := project.Load(projectPath); err == nil {
			catalogPath = proj.CatalogPath(projectPath)
		}
	}
	store, err := catalog.OpenSQLite(catalogPath, logger.Named("catalog"))
	if err != nil {
		logger.Fatal("open catalog", zap.String("path", catalogPath), zap.Error(err))
	}
	defer store.Close()

	fetcher, err := pdfdoc.NewFetcher(ctx, cfg.Storage, logger.Named("fetch"))
	if err != nil {
		logger.Fatal("manual storage", zap.Error(err))
	}
	loader := &pdfdoc.Loader{Fetcher: fetcher, Logger: logger.Named("pdf")}

	deps := mainwindow.Deps{
		Config: cfg,
		Logger: logger,
		Opener: loader,
		Prefs:  prefs.Load(),
	}
	if cfg.OCR.Enabled {
		engine, err := ocr.NewEngine(cfg.OCR.Language)
		if err != nil {
			logger.Warn("OCR disabled", zap.Error(err))
		} else {
			defer engine.Close()
			deps.Recognizer = engine
		}
	}

	state := app.NewState(store, logger.Named("state"))

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.ManualTheme{})

	win := mainwindow.New(fyneApp, state, deps)
	if projectPath != "" {
		win.OpenProject(projectPath)
	} else {
		win.RestoreLastProject()
	}

	go savePreferences(ctx, win)

	win.ShowAndRun()
	logger.Info("exiting")
}

// savePreferences flushes changed preferences periodically so a crash does
// not lose the zoom level.
func savePreferences(ctx context.Context, win *mainwindow.MainWindow) {
	t := time.NewTicker(prefsInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			win.SavePreferencesIfChanged()
		}
	}
}
