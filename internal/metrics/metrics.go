package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "brokerage"

// Recorder collects per-run pipeline metrics in its own registry.
type Recorder struct {
	registry      *prometheus.Registry
	stageRows     *prometheus.GaugeVec
	stageDuration *prometheus.GaugeVec
	duplicates    prometheus.Gauge
	outliers      prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// NewRecorder creates a recorder with all metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stageRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_rows",
			Help:      "Rows in the table after each pipeline stage.",
		}, []string{"stage"}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
		}, []string{"stage"}),
		duplicates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duplicates_removed",
			Help:      "Duplicate rows removed by the last run.",
		}),
		outliers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outliers_detected",
			Help:      "TotalAmount values capped by the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
	r.registry.MustRegister(r.stageRows, r.stageDuration, r.duplicates, r.outliers, r.lastSuccess)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage records the row count and duration of one stage.
func (r *Recorder) ObserveStage(stage string, rows int, d time.Duration) {
	r.stageRows.WithLabelValues(stage).Set(float64(rows))
	r.stageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// SetCleaning records the cleaner's row-level counts.
func (r *Recorder) SetCleaning(duplicates, outliers int) {
	r.duplicates.Set(float64(duplicates))
	r.outliers.Set(float64(outliers))
}

// MarkSuccess records the completion time of a successful run.
func (r *Recorder) MarkSuccess(at time.Time) {
	r.lastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile writes the metrics in the Prometheus text format, for
// pickup by a textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("WriteTextfile: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("WriteTextfile: %w", err)
	}
	return nil
}
