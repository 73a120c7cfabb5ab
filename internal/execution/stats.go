package execution

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats aggregates worker progress counters for the status server. All
// methods are safe on a nil receiver so wiring stats stays optional.
type Stats struct {
	JobsDone        atomic.Int64
	JobsAbandoned   atomic.Int64
	LocalLimitHits  atomic.Int64
	ServerLimitHits atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	JobsDone        int64 `json:"jobs_done"`
	JobsAbandoned   int64 `json:"jobs_abandoned"`
	LocalLimitHits  int64 `json:"local_limit_hits"`
	ServerLimitHits int64 `json:"server_limit_hits"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return Snapshot{
		JobsDone:        s.JobsDone.Load(),
		JobsAbandoned:   s.JobsAbandoned.Load(),
		LocalLimitHits:  s.LocalLimitHits.Load(),
		ServerLimitHits: s.ServerLimitHits.Load(),
	}
}

func (s *Stats) jobDone() {
	jobsDoneTotal.Inc()
	if s != nil {
		s.JobsDone.Add(1)
	}
}

func (s *Stats) jobAbandoned() {
	jobsAbandonedTotal.Inc()
	if s != nil {
		s.JobsAbandoned.Add(1)
	}
}

func (s *Stats) localLimitHit() {
	localLimitTotal.Inc()
	if s != nil {
		s.LocalLimitHits.Add(1)
	}
}

func (s *Stats) serverLimitHit() {
	serverLimitTotal.Inc()
	if s != nil {
		s.ServerLimitHits.Add(1)
	}
}

var (
	jobsDoneTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collector_jobs_done_total",
		Help: "Total jobs whose on_success callback completed",
	})
	jobsAbandonedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collector_jobs_abandoned_total",
		Help: "Total jobs abandoned on non-transient errors",
	})
	localLimitTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collector_local_limit_sleeps_total",
		Help: "Total local rate-limit sleeps taken by workers",
	})
	serverLimitTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collector_server_limit_sleeps_total",
		Help: "Total upstream 429 sleeps taken by workers",
	})
)

func init() {
	prometheus.MustRegister(jobsDoneTotal, jobsAbandonedTotal, localLimitTotal, serverLimitTotal)
}
