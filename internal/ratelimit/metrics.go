package ratelimit

import "github.com/prometheus/client_golang/prometheus"

// Global counters only; window keys are unbounded and must not become labels.
var (
	admissionsGranted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collector_admissions_granted_total",
		Help: "Total requests admitted through every bound rate-limit window",
	})
	admissionSleeps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collector_admission_sleeps_total",
		Help: "Total sleeps taken while waiting for an exhausted window to reset",
	})
	hitRacesLost = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collector_admission_hit_races_lost_total",
		Help: "Total test-then-hit races lost to a concurrent admission",
	})
)

func init() {
	prometheus.MustRegister(admissionsGranted, admissionSleeps, hitRacesLost)
}
