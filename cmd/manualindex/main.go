// Command manualindex builds the text index of a manual and searches it,
// for checking which pages a query finds without opening the viewer.
//
// Usage: manualindex [options] <manual> [query...]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"manual-markers/internal/config"
	"manual-markers/internal/logging"
	"manual-markers/internal/ocr"
	"manual-markers/internal/pdfdoc"
	"manual-markers/internal/textindex"
	"manual-markers/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration")
	useOCR := flag.Bool("ocr", false, "Recognize pages without a text layer")
	lang := flag.String("lang", "", "Tesseract languages (default from config)")
	gap := flag.Float64("gap", textindex.DefaultGapThreshold, "Run gap that inserts a space")
	dump := flag.String("dump", "", "Write the page index as JSON to this file")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: manualindex [options] <manual> [query...]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	manual := flag.Arg(0)
	query := strings.Join(flag.Args()[1:], " ")

	cfg, err := config.Load(*configPath, version.Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	level := cfg.Log.Level
	if *verbose {
		level = "debug"
	}
	logger := logging.Must(logging.Config{Level: level, Format: "console"})
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fetcher, err := pdfdoc.NewFetcher(ctx, cfg.Storage, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage: %v\n", err)
		os.Exit(1)
	}
	loader := &pdfdoc.Loader{Fetcher: fetcher, Logger: logger}
	doc, err := loader.Open(ctx, manual)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer doc.Close()

	var src textindex.PageSource = doc
	if *useOCR {
		language := *lang
		if language == "" {
			language = cfg.OCR.Language
		}
		engine, err := ocr.NewEngine(language)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ocr: %v\n", err)
			os.Exit(1)
		}
		defer engine.Close()
		src = &ocr.FallbackSource{Doc: doc, Recognizer: engine, Scale: cfg.OCR.Scale, Logger: logger}
	}

	ix, err := textindex.Build(ctx, src, textindex.BuildOptions{
		GapThreshold: *gap,
		Logger:       logger,
		Progress: func(done, total int) {
			fmt.Fprintf(os.Stderr, "\rIndexing %d/%d", done, total)
		},
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		logger.Warn("index incomplete", zap.Error(err))
	}

	if *dump != "" {
		if err := writeIndex(*dump, ix); err != nil {
			fmt.Fprintf(os.Stderr, "dump: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Index of %d pages written to %s\n", ix.Len(), *dump)
	}

	if query == "" {
		return
	}
	hits := ix.Search(query)
	if len(hits) == 0 {
		fmt.Printf("No matches for %q\n", query)
		os.Exit(2)
	}
	fmt.Printf("%d pages match %q\n", len(hits), query)
	for _, h := range hits {
		fmt.Printf("  p.%-4d x%-3d %s\n", h.Page, h.Count, h.Excerpt)
	}
}

func writeIndex(path string, ix *textindex.Index) error {
	data, err := json.MarshalIndent(ix.Entries(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
