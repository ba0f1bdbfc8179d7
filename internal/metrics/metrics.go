// Package metrics provides Prometheus metrics for rendering, text indexing
// and search.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Render outcomes.
const (
	RenderCommitted = "committed"
	RenderStale     = "stale"
	RenderCancelled = "cancelled"
	RenderFailed    = "failed"
)

var (
	RendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manual_renders_total",
			Help: "Page renders by outcome",
		},
		[]string{"result"},
	)

	RenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "manual_render_duration_seconds",
			Help:    "Time to rasterize one page",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	IndexBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "manual_index_build_duration_seconds",
			Help:    "Time to build the text index of a manual",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	PageExtractionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "manual_page_extraction_failures_total",
			Help: "Pages whose text could not be extracted",
		},
	)

	OCRPages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "manual_ocr_pages_total",
			Help: "Pages indexed through OCR",
		},
	)

	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manual_searches_total",
			Help: "Text searches by whether any page matched",
		},
		[]string{"hit"},
	)
)

// ObserveRender records a render outcome.
func ObserveRender(result string, started time.Time) {
	RendersTotal.WithLabelValues(result).Inc()
	if result == RenderCommitted {
		RenderDuration.Observe(time.Since(started).Seconds())
	}
}

// ObserveSearch records a search.
func ObserveSearch(hits int) {
	label := "false"
	if hits > 0 {
		label = "true"
	}
	SearchesTotal.WithLabelValues(label).Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("metrics listener started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics listener stopped", zap.Error(err))
		}
	}()
}
