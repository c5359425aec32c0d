package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// File results used as the "result" label of dicomtable_files_total.
const (
	ResultDecoded = "decoded"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Metrics holds the Prometheus metrics of a scrape. They live on a private
// registry so that several scrapes in one process do not collide. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FilesTotal       *prometheus.CounterVec
	DirectoriesTotal prometheus.Counter
	ScrapeDuration   prometheus.Histogram
	Rows             prometheus.Gauge
	Columns          prometheus.Gauge
}

// NewMetrics creates and registers all metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		FilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dicomtable_files_total",
				Help: "Files seen by the scraper, by result",
			},
			[]string{"result"},
		),

		DirectoriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dicomtable_directories_visited_total",
				Help: "Directories visited while walking",
			},
		),

		ScrapeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dicomtable_scrape_duration_seconds",
				Help:    "Scrape completion time distribution",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
			},
		),

		Rows: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dicomtable_record_rows",
				Help: "Rows in the last record table",
			},
		),

		Columns: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dicomtable_record_columns",
				Help: "Columns in the last record table",
			},
		),
	}
}

// WriteTextfile writes the metrics in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// DirectoryVisited counts a directory.
func (m *Metrics) DirectoryVisited() {
	if m == nil {
		return
	}
	m.DirectoriesTotal.Inc()
}

// FileSkipped counts a file without DICOM signature.
func (m *Metrics) FileSkipped() {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(ResultSkipped).Inc()
}

// FileDecoded counts a decoded file.
func (m *Metrics) FileDecoded() {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(ResultDecoded).Inc()
}

// FileFailed counts a file that could not be decoded.
func (m *Metrics) FileFailed() {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(ResultFailed).Inc()
}

// ScrapeCompleted records the shape and duration of a finished scrape.
func (m *Metrics) ScrapeCompleted(rows, columns int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ScrapeDuration.Observe(elapsed.Seconds())
	m.Rows.Set(float64(rows))
	m.Columns.Set(float64(columns))
}
