package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsheet_searches_total",
			Help: "Total number of provider searches executed",
		},
		[]string{"provider", "status"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadsheet_search_duration_seconds",
			Help:    "Duration of provider searches in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	LeadsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsheet_leads_extracted_total",
			Help: "Total number of leads extracted from search results",
		},
		[]string{"provider"},
	)

	RowsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsheet_rows_appended_total",
			Help: "Total number of rows appended to storage backends",
		},
		[]string{"backend"},
	)
)

// RecordSearch updates the search metrics for one provider call.
func RecordSearch(provider string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	SearchesTotal.WithLabelValues(provider, status).Inc()
	SearchDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordExtraction counts leads produced from one provider's results.
func RecordExtraction(provider string, count int) {
	LeadsExtracted.WithLabelValues(provider).Add(float64(count))
}

// RecordAppend counts rows written to a backend.
func RecordAppend(backend string, count int) {
	RowsAppended.WithLabelValues(backend).Add(float64(count))
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
