package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// System metrics
	SystemMemoryUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "system_memory_bytes",
		Help: "Current system memory usage",
	})

	SystemGoroutines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "system_goroutines",
		Help: "Number of goroutines",
	})

	// Extraction metrics
	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "extraction_duration_seconds",
			Help: "Time spent extracting triples from a single report",
		},
		[]string{"pipeline"},
	)

	ExtractionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_errors_total",
			Help: "Total number of reports that failed extraction",
		},
		[]string{"pipeline"},
	)

	TriplesExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triples_extracted_total",
			Help: "Total number of triples produced by extraction",
		},
		[]string{"pipeline", "relation"},
	)

	// Upload metrics
	UploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "upload_duration_seconds",
		Help: "Time spent uploading one batch of triples",
	})

	TriplesUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triples_uploaded_total",
			Help: "Triples considered for upload, by outcome",
		},
		[]string{"pipeline", "outcome"},
	)

	// Graph metrics
	GraphNodeCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "graph_nodes_total",
		Help: "Total number of nodes in the graph",
	})

	GraphRelationshipCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "graph_relationships_total",
		Help: "Total number of relationships in the graph",
	})
)

// Upload outcome label values.
const (
	OutcomeUploaded = "uploaded"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// UpdateSystemMetrics updates system-level metrics
func UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	SystemMemoryUsage.Set(float64(m.Alloc))
	SystemGoroutines.Set(float64(runtime.NumGoroutine()))
}
