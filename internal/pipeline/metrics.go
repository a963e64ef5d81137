package pipeline

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

const metricsNamespace = "ukhe"

// Metrics holds the run's Prometheus collectors in a private registry. A
// batch run has no scrape endpoint, so the registry is written out in the
// node_exporter textfile format instead.
type Metrics struct {
	registry *prometheus.Registry

	rowsRead      *prometheus.CounterVec
	rowsDropped   *prometheus.CounterVec
	records       *prometheus.CounterVec
	tableFailures *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec

	wideRows       prometheus.Gauge
	wideCategories prometheus.Gauge
	kfiUndefined   *prometheus.GaugeVec

	lastRunSuccess   prometheus.Gauge
	lastRunTimestamp prometheus.Gauge
}

// NewMetrics creates and registers the run collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_read_total",
			Help:      "Data rows read from each source table.",
		}, []string{"table"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dropped_rows_total",
			Help:      "Rows excluded while narrowing tables, by reason.",
		}, []string{"table", "reason"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "long_records_total",
			Help:      "Long records produced by each table.",
		}, []string{"table"}),
		tableFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "table_failures_total",
			Help:      "Tables that could not be processed, by error type.",
		}, []string{"table", "type"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		wideRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "wide_rows",
			Help:      "Institution-year rows in the wide table.",
		}),
		wideCategories: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "wide_categories",
			Help:      "Category columns in the wide table.",
		}),
		kfiUndefined: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "kfi_undefined_values",
			Help:      "Rows where an indicator had no defined value.",
		}, []string{"indicator"}),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_success",
			Help:      "1 if the last run wrote its outputs, 0 otherwise.",
		}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	m.registry.MustRegister(
		m.rowsRead, m.rowsDropped, m.records, m.tableFailures, m.stageDuration,
		m.wideRows, m.wideCategories, m.kfiUndefined,
		m.lastRunSuccess, m.lastRunTimestamp,
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveTable records one table's counts. errType is empty for success.
func (m *Metrics) ObserveTable(r domain.TableReport, errType string) {
	table := strconv.Itoa(r.TableID)
	m.rowsRead.WithLabelValues(table).Add(float64(r.RowsRead))
	m.records.WithLabelValues(table).Add(float64(r.Records))
	for reason, n := range r.Dropped {
		m.rowsDropped.WithLabelValues(table, reason).Add(float64(n))
	}
	if errType != "" {
		m.tableFailures.WithLabelValues(table, errType).Inc()
	}
}

// ObserveStage records how long a stage took
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveWide records the wide table's shape
func (m *Metrics) ObserveWide(rows, categories int) {
	m.wideRows.Set(float64(rows))
	m.wideCategories.Set(float64(categories))
}

// ObserveKFI records undefined counts per indicator
func (m *Metrics) ObserveKFI(columns []string, undefined map[string]int) {
	for _, c := range columns {
		m.kfiUndefined.WithLabelValues(c).Set(float64(undefined[c]))
	}
}

// ObserveRun records the run outcome
func (m *Metrics) ObserveRun(success bool, at time.Time) {
	if success {
		m.lastRunSuccess.Set(1)
	} else {
		m.lastRunSuccess.Set(0)
	}
	m.lastRunTimestamp.Set(float64(at.Unix()))
}

// WriteToTextfile writes every collected metric to path in the text
// exposition format, atomically.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
