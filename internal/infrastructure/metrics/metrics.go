package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics colectores Prometheus del bridge sobre un registry propio.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ticketCache     *prometheus.CounterVec
}

// New registra los colectores; namespace es el prefijo ("afip").
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Llamadas SOAP a AFIP por servicio, operación y resultado",
		}, []string{"service", "operation", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duración de las llamadas SOAP a AFIP",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"service", "operation"}),
		ticketCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_cache_total",
			Help:      "Consultas a la cache de tickets WSAA por resultado",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.ticketCache,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCall implementa el Observer del transporte SOAP.
func (m *Metrics) ObserveCall(service, operation, outcome string, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(service, operation, outcome).Inc()
	m.requestDuration.WithLabelValues(service, operation).Observe(elapsed.Seconds())
}

// TicketCache cuenta un resultado de la cache de tickets (hit_memory, hit_store, miss, renewed, store_error).
func (m *Metrics) TicketCache(result string) {
	m.ticketCache.WithLabelValues(result).Inc()
}

// Registry expone el registry (tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler sirve las métricas en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
