package execution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/CharlieJ515/lol-collector/internal/ratelimit"
	"github.com/CharlieJ515/lol-collector/internal/riot"
)

// WorkerConfig tunes one worker's timeouts and policies.
type WorkerConfig struct {
	// QueueTimeout bounds how long a worker waits for a job before deciding
	// no more work is coming and exiting.
	QueueTimeout time.Duration

	// HTTPErrorTimeout is the sleep between retries of transport-level
	// failures.
	HTTPErrorTimeout time.Duration

	// ServerErrorTimeout is the sleep between retries after an upstream 5xx.
	ServerErrorTimeout time.Duration

	// StrictServerErrors promotes an upstream 5xx from retry to a
	// shard-fatal condition.
	StrictServerErrors bool
}

func (c *WorkerConfig) applyDefaults() {
	if c.QueueTimeout <= 0 {
		c.QueueTimeout = 5 * time.Second
	}
	if c.HTTPErrorTimeout <= 0 {
		c.HTTPErrorTimeout = 10 * time.Second
	}
	if c.ServerErrorTimeout <= 0 {
		c.ServerErrorTimeout = 60 * time.Second
	}
}

// Worker pulls jobs from one route's queue, executes them through the shared
// client, and drives the retry state machine. A worker runs strictly one job
// at a time; concurrency comes from running several workers per route.
type Worker[T any] struct {
	id        int
	client    *riot.Client
	queue     *Queue[T]
	stopAll   *Flag
	stopShard *Flag
	cfg       WorkerConfig
	stats     *Stats

	sleep func(ctx context.Context, d time.Duration) error
}

// NewWorker constructs a worker bound to a queue and the two shutdown
// scopes. stats may be nil.
func NewWorker[T any](id int, client *riot.Client, queue *Queue[T], stopAll, stopShard *Flag, cfg WorkerConfig, stats *Stats) *Worker[T] {
	cfg.applyDefaults()
	return &Worker[T]{
		id:        id,
		client:    client,
		queue:     queue,
		stopAll:   stopAll,
		stopShard: stopShard,
		cfg:       cfg,
		stats:     stats,
		sleep:     sleepCtx,
	}
}

func (w *Worker[T]) logPrefix() string {
	return fmt.Sprintf("worker %d:", w.id)
}

// Run executes the outer loop until a shutdown flag is raised, the queue
// stays empty past the timeout, or ctx is cancelled.
func (w *Worker[T]) Run(ctx context.Context) {
	prefix := w.logPrefix()
	log.Printf("%s started", prefix)

	for {
		if w.stopAll.IsSet() {
			log.Printf("%s stop_all is set, stopping", prefix)
			return
		}
		if w.stopShard.IsSet() {
			log.Printf("%s stop_shard is set, stopping", prefix)
			return
		}

		job, err := w.queue.Pop(ctx, w.cfg.QueueTimeout)
		if err != nil {
			if errors.Is(err, ErrQueueTimeout) {
				log.Printf("%s queue timeout, stopping", prefix)
			}
			return
		}

		result, headers, skip := w.executeWithRetry(ctx, job)
		if skip {
			continue
		}

		riot.LogHeaderLimits(prefix, headers)
		w.client.LogClientLimits(ctx, prefix, job.Route(), job.Method())

		if err := job.OnSuccess(ctx, result, headers); err != nil {
			// The lease was not marked done, so the work redelivers after
			// expiry. Keep the worker going.
			log.Printf("%s CRITICAL on_success failed for %s: %v", prefix, job.Method(), err)
		}
		w.stats.jobDone()

		next := job.Next(result, headers)
		if next == nil {
			job.OnCompletion(ctx)
			continue
		}
		if err := w.queue.Push(ctx, next); err != nil {
			return
		}
	}
}

// executeWithRetry is the inner state machine: it reissues the job through
// every retryable condition and reports skip=true when the job was abandoned
// or a fatal flag was raised.
func (w *Worker[T]) executeWithRetry(ctx context.Context, job Job[T]) (result T, headers http.Header, skip bool) {
	prefix := w.logPrefix()

	for {
		// Re-check the fatal flags before every attempt so a raised flag
		// cuts retry loops short.
		if w.stopAll.IsSet() || w.stopShard.IsSet() {
			return result, nil, true
		}

		res, hdrs, err := job.Execute(ctx, w.client)
		if err == nil {
			return res, hdrs, false
		}

		var localErr *ratelimit.LocalLimitError
		var serverLimitErr *riot.RateLimitError
		var apiErr *riot.APIError
		var urlErr *url.Error

		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return result, nil, true

		case errors.As(err, &localErr):
			log.Printf("%s local rate limit exceeded, sleeping %.2fs", prefix, localErr.RetryAfter.Seconds())
			w.stats.localLimitHit()
			if w.sleep(ctx, localErr.RetryAfter) != nil {
				return result, nil, true
			}

		case errors.As(err, &serverLimitErr):
			log.Printf("%s CRITICAL server rate limit exceeded, sleeping %s", prefix, serverLimitErr.RetryAfter)
			riot.LogHeaderLimits(prefix, serverLimitErr.Headers)
			w.client.LogClientLimits(ctx, prefix, job.Route(), job.Method())
			w.stats.serverLimitHit()
			if w.sleep(ctx, serverLimitErr.RetryAfter) != nil {
				return result, nil, true
			}

		case errors.Is(err, riot.ErrUnauthorized):
			if !w.stopAll.IsSet() {
				w.stopAll.Set()
				log.Printf("%s CRITICAL invalid API key, stopping all workers", prefix)
			}
			return result, nil, true

		case errors.As(err, &apiErr) && apiErr.IsServerError():
			if w.cfg.StrictServerErrors {
				w.stopShard.Set()
				log.Printf("%s CRITICAL upstream server error %d, stopping shard workers", prefix, apiErr.StatusCode)
				return result, nil, true
			}
			log.Printf("%s CRITICAL upstream server error %d, retrying in %s", prefix, apiErr.StatusCode, w.cfg.ServerErrorTimeout)
			if w.sleep(ctx, w.cfg.ServerErrorTimeout) != nil {
				return result, nil, true
			}

		case errors.As(err, &apiErr) && apiErr.IsAbandon():
			log.Printf("%s CRITICAL invalid request (%d), abandoning job %s", prefix, apiErr.StatusCode, job.Method())
			job.OnError(ctx, err)
			w.stats.jobAbandoned()
			return result, nil, true

		case errors.As(err, &urlErr):
			log.Printf("%s CRITICAL unexpected HTTP error, retrying in %s: %v", prefix, w.cfg.HTTPErrorTimeout, err)
			if w.sleep(ctx, w.cfg.HTTPErrorTimeout) != nil {
				return result, nil, true
			}

		default:
			// Decode failures and anything else unclassified: not safe to
			// retry, not a request-shape problem either.
			log.Printf("%s CRITICAL unexpected error on %s, abandoning job: %v", prefix, job.Method(), err)
			job.OnError(ctx, err)
			w.stats.jobAbandoned()
			return result, nil, true
		}
	}
}
