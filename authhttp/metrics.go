package authhttp

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/indiepub/indieback/authdef"
)

// Metrics counts protocol outcomes. The "outcome" label is "ok" for
// success, otherwise the fault kind. A nil *Metrics disables counting.
type Metrics struct {
	signUps     *prometheus.CounterVec
	signIns     *prometheus.CounterVec
	tokenChecks *prometheus.CounterVec
}

// NewMetrics creates and registers the counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		signUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indieback_signups_total",
			Help: "Sign-up attempts by outcome.",
		}, []string{"outcome"}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indieback_signins_total",
			Help: "Sign-in attempts by outcome.",
		}, []string{"outcome"}),
		tokenChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indieback_token_checks_total",
			Help: "Bearer token validations by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.signUps, m.signIns, m.tokenChecks)
	return m
}

func outcomeLabel(fault *authdef.Fault) string {
	if fault == nil {
		return "ok"
	}
	return fault.Kind.String()
}

func (m *Metrics) CountSignUp(fault *authdef.Fault) {
	if m == nil {
		return
	}
	m.signUps.WithLabelValues(outcomeLabel(fault)).Inc()
}

func (m *Metrics) CountSignIn(fault *authdef.Fault) {
	if m == nil {
		return
	}
	m.signIns.WithLabelValues(outcomeLabel(fault)).Inc()
}

func (m *Metrics) CountTokenCheck(fault *authdef.Fault) {
	if m == nil {
		return
	}
	m.tokenChecks.WithLabelValues(outcomeLabel(fault)).Inc()
}
