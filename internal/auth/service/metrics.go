package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics counts auth events. A nil *Metrics records nothing.
type Metrics struct {
	registrations *prometheus.CounterVec
	verifications *prometheus.CounterVec
	logins        *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	oauthLogins   *prometheus.CounterVec
	sweptRows     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "townhall",
			Name:      "auth_registrations_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}),
		verifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "townhall",
			Name:      "auth_otp_verifications_total",
			Help:      "OTP verification attempts by outcome.",
		}, []string{"outcome"}),
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "townhall",
			Name:      "auth_logins_total",
			Help:      "Password login attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "townhall",
			Name:      "auth_token_refreshes_total",
			Help:      "Refresh token exchanges by outcome.",
		}, []string{"outcome"}),
		oauthLogins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "townhall",
			Name:      "auth_oauth_logins_total",
			Help:      "Federated logins by provider and outcome.",
		}, []string{"provider", "outcome"}),
		sweptRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "townhall",
			Name:      "auth_housekeeping_deleted_total",
			Help:      "Rows removed by the housekeeping sweep.",
		}, []string{"table"}),
	}
}

func outcome(err error) string {
	if err != nil {
		return outcomeFailure
	}
	return outcomeSuccess
}

func (m *Metrics) registration(err error) {
	if m != nil {
		m.registrations.WithLabelValues(outcome(err)).Inc()
	}
}

func (m *Metrics) verification(err error) {
	if m != nil {
		m.verifications.WithLabelValues(outcome(err)).Inc()
	}
}

func (m *Metrics) login(err error) {
	if m != nil {
		m.logins.WithLabelValues(outcome(err)).Inc()
	}
}

func (m *Metrics) refresh(err error) {
	if m != nil {
		m.refreshes.WithLabelValues(outcome(err)).Inc()
	}
}

func (m *Metrics) oauthLogin(provider string, err error) {
	if m != nil {
		m.oauthLogins.WithLabelValues(provider, outcome(err)).Inc()
	}
}

func (m *Metrics) swept(table string, n int64) {
	if m != nil && n > 0 {
		m.sweptRows.WithLabelValues(table).Add(float64(n))
	}
}
