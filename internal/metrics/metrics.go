package metrics

import (
	"net/http"
	"time"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	importRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "toeic",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Spreadsheet rows classified by the import validator",
	}, []string{"status"})

	importBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "toeic",
		Subsystem: "import",
		Name:      "batches_total",
		Help:      "Question batches written to storage",
	}, []string{"result"})

	importedQuestions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "toeic",
		Subsystem: "import",
		Name:      "questions_imported_total",
		Help:      "Questions persisted by the batch importer",
	})

	importDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "toeic",
		Subsystem: "import",
		Name:      "duration_seconds",
		Help:      "Duration of import commits",
		Buckets:   prometheus.DefBuckets,
	}, []string{"result"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "toeic",
		Subsystem: "import",
		Name:      "active_sessions",
		Help:      "Import sessions currently held in memory",
	})
)

// ObserveValidation records the outcome of validating one uploaded file
func ObserveValidation(summary models.ImportSummary) {
	importRows.WithLabelValues(string(models.RecordValid)).Add(float64(summary.Valid))
	importRows.WithLabelValues(string(models.RecordInvalid)).Add(float64(summary.Invalid))
}

// ObserveBatch records one batch write
func ObserveBatch(size int, err error) {
	if err != nil {
		importBatches.WithLabelValues("error").Inc()
		return
	}
	importBatches.WithLabelValues("success").Inc()
	importedQuestions.Add(float64(size))
}

// ObserveImport records the duration of a whole commit
func ObserveImport(duration time.Duration, err error) {
	importDuration.WithLabelValues(result(err)).Observe(duration.Seconds())
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
