package metrics

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	PatientsCreatedTotal prometheus.Counter
	PatientsMergedTotal  prometheus.Counter
	AppointmentsTotal    *prometheus.CounterVec
	PrescriptionsIssued  prometheus.Counter
	DispensesTotal       *prometheus.CounterVec
	ExceptionsTotal      *prometheus.CounterVec
	AdmissionsTotal      prometheus.Counter
	DischargesTotal      *prometheus.CounterVec
	TransfersTotal       prometheus.Counter
	BedOccupancy         *prometheus.GaugeVec
	TriageWaitSeconds    *prometheus.HistogramVec
	OrdersOverdue        *prometheus.GaugeVec
	PaymentsTotal        *prometheus.CounterVec
	PrescriptionsExpired prometheus.Counter

	EventsPublished *prometheus.CounterVec

	AuditEntriesTotal  prometheus.Counter
	AuditBufferDropped prometheus.Counter
}

// Namespace turns a service name into a valid metric namespace.
func Namespace(serviceName string) string {
	return strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(serviceName)
}

// NewCollector registers every collector on reg. Pass a fresh registry in tests.
func NewCollector(reg prometheus.Registerer, serviceName string) *Collector {
	ns := Namespace(serviceName)
	f := promauto.With(reg)

	return &Collector{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		PatientsCreatedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "clinical",
			Name:      "patients_created_total",
			Help:      "Total number of patient records created.",
		}),

		PatientsMergedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "clinical",
			Name:      "patients_merged_total",
			Help:      "Total duplicate patient records merged.",
		}),

		AppointmentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "clinical",
			Name:      "appointments_total",
			Help:      "Total appointments by final status.",
		}, []string{"status"}),

		PrescriptionsIssued: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "clinical",
			Name:      "prescriptions_issued_total",
			Help:      "Total prescriptions issued.",
		}),

		DispensesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "pharmacy",
			Name:      "dispenses_total",
			Help:      "Dispense events by kind (full, partial, quantity_change, otc).",
		}, []string{"kind"}),

		ExceptionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "pharmacy",
			Name:      "exceptions_total",
			Help:      "Dispense exceptions by resulting status.",
		}, []string{"status"}),

		PrescriptionsExpired: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "pharmacy",
			Name:      "prescriptions_expired_total",
			Help:      "Prescriptions expired by the background sweep.",
		}),

		AdmissionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "ward",
			Name:      "admissions_total",
			Help:      "Total inpatient admissions.",
		}),

		DischargesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "ward",
			Name:      "discharges_total",
			Help:      "Discharges by disposition.",
		}, []string{"disposition"}),

		TransfersTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "ward",
			Name:      "transfers_total",
			Help:      "Total bed transfers.",
		}),

		BedOccupancy: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "ward",
			Name:      "beds",
			Help:      "Beds per ward by status.",
		}, []string{"ward", "status"}),

		TriageWaitSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "triage",
			Name:      "wait_seconds",
			Help:      "Time from queueing to being called, by priority.",
			Buckets:   []float64{60, 300, 600, 1200, 1800, 3600, 7200, 14400},
		}, []string{"priority"}),

		OrdersOverdue: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "orders",
			Name:      "overdue",
			Help:      "Open orders past their turnaround target, by priority.",
		}, []string{"priority"}),

		PaymentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "billing",
			Name:      "payments_cents_total",
			Help:      "Amount received in minor units, by payment method.",
		}, []string{"method"}),

		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Domain events by type and outcome.",
		}, []string{"type", "outcome"}),

		AuditEntriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries written.",
		}),

		AuditBufferDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "audit",
			Name:      "buffer_dropped_total",
			Help:      "Audit entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

// RegisterDBStats exposes the connection pool statistics.
func RegisterDBStats(reg prometheus.Registerer, db *sql.DB, dbName string) error {
	return reg.Register(collectors.NewDBStatsCollector(db, dbName))
}

func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
