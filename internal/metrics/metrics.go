// Package metrics exposes business counters on the Prometheus registry.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "devicefinance"

type Recorder struct {
	codesGenerated      prometheus.Counter
	codesSold           prometheus.Counter
	devicesRegistered   prometheus.Counter
	deviceTransitions   *prometheus.CounterVec
	paymentsProcessed   prometheus.Counter
	plansCompleted      prometheus.Counter
	securityEvaluations *prometheus.CounterVec
	checkIns            *prometheus.CounterVec
}

// NewRecorder registers the counters on reg. Use prometheus.DefaultRegisterer
// in production and prometheus.NewRegistry() in tests.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		codesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "codes_generated_total",
			Help:      "Device codes minted.",
		}),
		codesSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "codes_sold_total",
			Help:      "Device codes sold to admins.",
		}),
		devicesRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_registered_total",
			Help:      "Devices bound to a code.",
		}),
		deviceTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_transitions_total",
			Help:      "Device lock state transitions.",
		}, []string{"to", "trigger"}),
		paymentsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_processed_total",
			Help:      "Installments marked completed.",
		}),
		plansCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_completed_total",
			Help:      "Payment plans fully settled.",
		}),
		securityEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_evaluations_total",
			Help:      "Security evaluations by result.",
		}, []string{"result"}),
		checkIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkins_total",
			Help:      "Device check-ins received over MQTT by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		r.codesGenerated,
		r.codesSold,
		r.devicesRegistered,
		r.deviceTransitions,
		r.paymentsProcessed,
		r.plansCompleted,
		r.securityEvaluations,
		r.checkIns,
	)

	return r
}

func (r *Recorder) CodesGenerated(n int) {
	if r == nil {
		return
	}
	r.codesGenerated.Add(float64(n))
}

func (r *Recorder) CodeSold() {
	if r == nil {
		return
	}
	r.codesSold.Inc()
}

func (r *Recorder) DeviceRegistered() {
	if r == nil {
		return
	}
	r.devicesRegistered.Inc()
}

func (r *Recorder) DeviceTransition(to, trigger string) {
	if r == nil {
		return
	}
	r.deviceTransitions.WithLabelValues(to, trigger).Inc()
}

func (r *Recorder) PaymentProcessed() {
	if r == nil {
		return
	}
	r.paymentsProcessed.Inc()
}

func (r *Recorder) PlanCompleted() {
	if r == nil {
		return
	}
	r.plansCompleted.Inc()
}

func (r *Recorder) SecurityEvaluation(passed bool) {
	if r == nil {
		return
	}
	result := "failed"
	if passed {
		result = "passed"
	}
	r.securityEvaluations.WithLabelValues(result).Inc()
}

func (r *Recorder) CheckIn(outcome string) {
	if r == nil {
		return
	}
	r.checkIns.WithLabelValues(outcome).Inc()
}
