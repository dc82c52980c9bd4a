package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics definitions
var (
	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tpack_extraction_seconds",
		Help:    "Time spent extracting entities from a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"dialect"})

	PackagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tpack_packages_processed_total",
		Help: "Total number of package pipelines completed, by outcome.",
	}, []string{"outcome"})

	WarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tpack_warnings_total",
		Help: "Total number of warnings emitted during resolution.",
	}, []string{"kind"})

	IndexedPackages = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tpack_indexed_packages",
		Help: "Number of packages registered in the repository index.",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tpack_run_seconds",
		Help:    "Wall time of a full batch run.",
		Buckets: prometheus.DefBuckets,
	})
)

// Serve exposes /metrics on addr. Used in watch mode; batch runs exit before
// scraping makes sense.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
