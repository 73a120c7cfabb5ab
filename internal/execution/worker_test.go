package execution

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CharlieJ515/lol-collector/internal/ratelimit"
	"github.com/CharlieJ515/lol-collector/internal/riot"
)

// recorder captures callback invocations across a job lineage.
type recorder struct {
	successes   []string
	errs        []error
	completions int
	execCalls   int
}

// testJob is a scriptable Job[string] for driving the worker state machine.
type testJob struct {
	rec  *recorder
	exec func(call int) (string, http.Header, error)
	next func(result string) Job[string]
}

func (j testJob) Route() riot.Route { return riot.PlatformKR }
func (j testJob) Method() string    { return "test_method" }

func (j testJob) Execute(context.Context, *riot.Client) (string, http.Header, error) {
	call := j.rec.execCalls
	j.rec.execCalls++
	return j.exec(call)
}

func (j testJob) Next(result string, _ http.Header) Job[string] {
	if j.next == nil {
		return nil
	}
	return j.next(result)
}

func (j testJob) OnSuccess(_ context.Context, result string, _ http.Header) error {
	j.rec.successes = append(j.rec.successes, result)
	return nil
}

func (j testJob) OnError(_ context.Context, err error) {
	j.rec.errs = append(j.rec.errs, err)
}

func (j testJob) OnCompletion(context.Context) {
	j.rec.completions++
}

func okExec(result string) func(int) (string, http.Header, error) {
	return func(int) (string, http.Header, error) {
		return result, http.Header{}, nil
	}
}

func newTestWorker(t *testing.T, queue *Queue[string], stopAll, stopShard *Flag, cfg WorkerConfig) (*Worker[string], *[]time.Duration) {
	t.Helper()
	cfg.QueueTimeout = 50 * time.Millisecond

	admitter := ratelimit.NewAdmitter(ratelimit.New(ratelimit.NewMemoryStore()))
	client := riot.NewClient("test-key", admitter)

	w := NewWorker(0, client, queue, stopAll, stopShard, cfg, nil)
	var sleeps []time.Duration
	w.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return w, &sleeps
}

func TestWorkerProcessesJobAndPaginates(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[string](10)
	rec := &recorder{}

	// Two-page lineage: page one links to a terminal page two.
	pageTwo := testJob{rec: rec, exec: okExec("page2")}
	pageOne := testJob{
		rec:  rec,
		exec: okExec("page1"),
		next: func(string) Job[string] { return pageTwo },
	}
	require.NoError(t, queue.Push(ctx, pageOne))

	w, _ := newTestWorker(t, queue, NewFlag(), NewFlag(), WorkerConfig{})
	w.Run(ctx)

	assert.Equal(t, []string{"page1", "page2"}, rec.successes)
	assert.Equal(t, 1, rec.completions, "terminal page ends the lineage exactly once")
	assert.Empty(t, rec.errs)
}

func TestWorkerRetriesServerRateLimit(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[string](10)
	rec := &recorder{}

	job := testJob{rec: rec, exec: func(call int) (string, http.Header, error) {
		if call == 0 {
			return "", nil, &riot.RateLimitError{RetryAfter: 2 * time.Second, Headers: http.Header{}}
		}
		return "ok", http.Header{}, nil
	}}
	require.NoError(t, queue.Push(ctx, job))

	w, sleeps := newTestWorker(t, queue, NewFlag(), NewFlag(), WorkerConfig{})
	w.Run(ctx)

	assert.Equal(t, 2, rec.execCalls, "one failed and one successful attempt")
	assert.Equal(t, []time.Duration{2 * time.Second}, *sleeps)
	assert.Equal(t, []string{"ok"}, rec.successes, "on_success fires exactly once")
}

func TestWorkerRetriesLocalRateLimit(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[string](10)
	rec := &recorder{}

	job := testJob{rec: rec, exec: func(call int) (string, http.Header, error) {
		if call == 0 {
			return "", nil, &ratelimit.LocalLimitError{RetryAfter: 500 * time.Millisecond}
		}
		return "ok", http.Header{}, nil
	}}
	require.NoError(t, queue.Push(ctx, job))

	w, sleeps := newTestWorker(t, queue, NewFlag(), NewFlag(), WorkerConfig{})
	w.Run(ctx)

	assert.Equal(t, []time.Duration{500 * time.Millisecond}, *sleeps)
	assert.Equal(t, []string{"ok"}, rec.successes)
}

func TestWorkerRetriesTransportError(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[string](10)
	rec := &recorder{}

	job := testJob{rec: rec, exec: func(call int) (string, http.Header, error) {
		if call == 0 {
			return "", nil, &url.Error{Op: "Get", URL: "https://kr.api.riotgames.com", Err: errors.New("connection reset")}
		}
		return "ok", http.Header{}, nil
	}}
	require.NoError(t, queue.Push(ctx, job))

	w, sleeps := newTestWorker(t, queue, NewFlag(), NewFlag(), WorkerConfig{HTTPErrorTimeout: 10 * time.Second})
	w.Run(ctx)

	assert.Equal(t, []time.Duration{10 * time.Second}, *sleeps)
	assert.Equal(t, []string{"ok"}, rec.successes)
}

func TestWorkerRetriesServerError(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[string](10)
	rec := &recorder{}

	job := testJob{rec: rec, exec: func(call int) (string, http.Header, error) {
		if call == 0 {
			return "", nil, &riot.APIError{StatusCode: 502, Message: "bad gateway"}
		}
		return "ok", http.Header{}, nil
	}}
	require.NoError(t, queue.Push(ctx, job))

	w, sleeps := newTestWorker(t, queue, NewFlag(), NewFlag(), WorkerConfig{ServerErrorTimeout: 60 * time.Second})
	w.Run(ctx)

	assert.Equal(t, []time.Duration{60 * time.Second}, *sleeps)
	assert.Equal(t, []string{"ok"}, rec.successes)
}

func TestWorkerStrictServerErrorStopsShard(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[string](10)
	rec := &recorder{}

	job := testJob{rec: rec, exec: func(int) (string, http.Header, error) {
		return "", nil, &riot.APIError{StatusCode: 503, Message: "unavailable"}
	}}
	require.NoError(t, queue.Push(ctx, job))

	stopShard := NewFlag()
	w, _ := newTestWorker(t, queue, NewFlag(), stopShard, WorkerConfig{StrictServerErrors: true})
	w.Run(ctx)

	assert.True(t, stopShard.IsSet(), "strict policy must raise stop_shard")
	assert.Empty(t, rec.successes)
	assert.Empty(t, rec.errs, "5xx does not abandon the job")
}

func TestWorkerUnauthorizedStopsAllWorkers(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[string](10)
	rec := &recorder{}

	job := testJob{rec: rec, exec: func(int) (string, http.Header, error) {
		return "", nil, riot.ErrUnauthorized
	}}
	require.NoError(t, queue.Push(ctx, job))
	// A second job sits behind the fatal one and must never execute.
	require.NoError(t, queue.Push(ctx, testJob{rec: rec, exec: okExec("never")}))

	stopAll := NewFlag()
	w, _ := newTestWorker(t, queue, stopAll, NewFlag(), WorkerConfig{})
	w.Run(ctx)

	assert.True(t, stopAll.IsSet())
	assert.Equal(t, 1, rec.execCalls, "no further requests after stop_all")
	assert.Empty(t, rec.successes)
}

func TestWorkerAbandonsOnNotFound(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[string](10)
	rec := &recorder{}

	bad := testJob{rec: rec, exec: func(int) (string, http.Header, error) {
		return "", nil, &riot.APIError{StatusCode: 404, Message: "not found"}
	}}
	good := testJob{rec: rec, exec: okExec("ok")}
	require.NoError(t, queue.Push(ctx, bad))
	require.NoError(t, queue.Push(ctx, good))

	w, _ := newTestWorker(t, queue, NewFlag(), NewFlag(), WorkerConfig{})
	w.Run(ctx)

	require.Len(t, rec.errs, 1, "on_error fires exactly once for the abandoned job")
	var apiErr *riot.APIError
	require.True(t, errors.As(rec.errs[0], &apiErr))
	assert.Equal(t, []string{"ok"}, rec.successes, "the worker keeps going after an abandon")
}

func TestWorkerAbandonsOnUnclassifiedError(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[string](10)
	rec := &recorder{}

	job := testJob{rec: rec, exec: func(int) (string, http.Header, error) {
		return "", nil, errors.New("unmarshal response: unexpected end of JSON input")
	}}
	require.NoError(t, queue.Push(ctx, job))

	w, _ := newTestWorker(t, queue, NewFlag(), NewFlag(), WorkerConfig{})
	w.Run(ctx)

	assert.Len(t, rec.errs, 1)
	assert.Empty(t, rec.successes)
}

func TestWorkerExitsImmediatelyWhenStopAllSet(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[string](10)
	rec := &recorder{}
	require.NoError(t, queue.Push(ctx, testJob{rec: rec, exec: okExec("never")}))

	stopAll := NewFlag()
	stopAll.Set()
	w, _ := newTestWorker(t, queue, stopAll, NewFlag(), WorkerConfig{})

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not converge after stop_all")
	}
	assert.Equal(t, 0, rec.execCalls)
}

// onSuccessFailJob reports a persistence failure from OnSuccess.
type onSuccessFailJob struct {
	testJob
}

func (j onSuccessFailJob) OnSuccess(context.Context, string, http.Header) error {
	return errors.New("insert failed")
}

func TestWorkerSurvivesOnSuccessFailure(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[string](10)
	rec := &recorder{}

	require.NoError(t, queue.Push(ctx, onSuccessFailJob{testJob{rec: rec, exec: okExec("boom")}}))
	require.NoError(t, queue.Push(ctx, testJob{rec: rec, exec: okExec("ok")}))

	w, _ := newTestWorker(t, queue, NewFlag(), NewFlag(), WorkerConfig{})
	w.Run(ctx)

	// The failing callback does not stop the worker; the next job runs.
	assert.Equal(t, []string{"ok"}, rec.successes)
	assert.Empty(t, rec.errs)
}
