package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	entitlementdomain "github.com/paperifyhq/paperify/internal/entitlement/domain"
)

type Metrics struct {
	registry *prometheus.Registry

	entitlementDecisions *prometheus.CounterVec
	paymentsConfirmed    prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		entitlementDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paperify",
			Name:      "entitlement_decisions_total",
			Help:      "Entitlement decisions by mode and reason.",
		}, []string{"mode", "reason"}),
		paymentsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "paperify",
			Name:      "payments_confirmed_total",
			Help:      "Manually confirmed payments.",
		}),
	}
	reg.MustRegister(m.entitlementDecisions, m.paymentsConfirmed)
	return m
}

func (m *Metrics) ObserveDecision(d entitlementdomain.Decision) {
	m.entitlementDecisions.WithLabelValues(string(d.Mode), d.Reason).Inc()
}

func (m *Metrics) ObservePaymentConfirmed() {
	m.paymentsConfirmed.Inc()
}

func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
