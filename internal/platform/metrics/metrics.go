// Package metrics concentra los contadores Prometheus del core.
// Se exponen en GET /metrics vía promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AdmissionDecisions cuenta decisiones de admisión por resultado:
	// accepted | accepted_emergency | rejected_capacity | rejected_blocked.
	AdmissionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unimalia_admission_decisions_total",
		Help: "Consult admission decisions by outcome.",
	}, []string{"outcome"})

	// BillingEvents cuenta entregas del webhook por resultado:
	// applied | ignored | duplicate | bad_signature | error.
	BillingEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unimalia_billing_events_total",
		Help: "Billing webhook deliveries by outcome.",
	}, []string{"outcome"})

	// ExpiredConsults cuenta solicitudes barridas a expired.
	ExpiredConsults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unimalia_consults_expired_total",
		Help: "Pending consult requests swept to expired.",
	})
)
