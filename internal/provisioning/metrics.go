package provisioning

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run results recorded in comfyprov_provision_runs_total.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultInvalid = "invalid"
	ResultAborted = "aborted"
)

// Metrics records provisioning runs. A nil *Metrics records nothing.
type Metrics struct {
	runsTotal     *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	sshAttempts   *prometheus.CounterVec
}

// NewMetrics creates the provisioning metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "comfyprov",
				Subsystem: "provision",
				Name:      "runs_total",
				Help:      "Total number of provisioning runs by provider and result",
			},
			[]string{"provider", "result"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "comfyprov",
				Subsystem: "provision",
				Name:      "phase_duration_seconds",
				Help:      "Duration of provisioning phases in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 500ms to ~17m
			},
			[]string{"phase"},
		),
		sshAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "comfyprov",
				Subsystem: "ssh",
				Name:      "connect_attempts_total",
				Help:      "Total number of SSH connection attempts by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(m.runsTotal, m.phaseDuration, m.sshAttempts)
	return m
}

func (m *Metrics) recordRun(provider, result string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) recordPhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (m *Metrics) recordSSHAttempt(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.sshAttempts.WithLabelValues(result).Inc()
}
