package execution

import (
	"context"
	"net/http"

	"github.com/CharlieJ515/lol-collector/internal/riot"
)

// Job is one immutable unit of work against the upstream API. Implementations
// are cheap value types; pagination advances by returning a copy with the
// cursor moved, never by mutating the job a worker already holds.
//
// Worker guarantees: OnSuccess runs exactly once per successful response and
// always before the follow-up job from Next is enqueued. OnCompletion runs
// exactly once when Next returns nil. OnError runs exactly once when the
// worker abandons the job on a non-transient error.
type Job[T any] interface {
	// Route returns the shard this job targets.
	Route() riot.Route

	// Method names the client operation, for limiter keys and logging.
	Method() string

	// Execute performs the HTTP operation through the client.
	Execute(ctx context.Context, client *riot.Client) (T, http.Header, error)

	// Next applies the pagination rule. A nil return means the lineage is
	// exhausted.
	Next(result T, headers http.Header) Job[T]

	// OnSuccess persists the result. Errors are logged by the worker but do
	// not fail the job; the lease will expire and redeliver.
	OnSuccess(ctx context.Context, result T, headers http.Header) error

	// OnError observes a terminal failure of this job.
	OnError(ctx context.Context, err error)

	// OnCompletion observes the end of the job's pagination lineage.
	OnCompletion(ctx context.Context)
}

// Factory produces batches of jobs, typically by claiming leases from the
// store. An empty batch with a nil error is the terminal signal: no more
// work will ever come from this factory.
type Factory[T any] interface {
	Produce(ctx context.Context) ([]Job[T], error)
}
