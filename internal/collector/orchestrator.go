package collector

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/CharlieJ515/lol-collector/internal/execution"
	"github.com/CharlieJ515/lol-collector/internal/ratelimit"
	"github.com/CharlieJ515/lol-collector/internal/riot"
)

// limitNamespace scopes every limiter window the collector registers.
const limitNamespace = "riot_api"

// Default window bounds, set slightly below the server-advertised quotas to
// give headroom (the server enforces 100/120s, 20/1s app-wide and 50/10s per
// method on a development key).
func DefaultRouteLongWindow() ratelimit.Window {
	return ratelimit.PerSecond(95, 123, limitNamespace)
}

func DefaultRouteShortWindow() ratelimit.Window {
	return ratelimit.PerSecond(10, 1, limitNamespace)
}

func DefaultEndpointWindow() ratelimit.Window {
	return ratelimit.PerSecond(45, 13, limitNamespace)
}

// StageConfig wires one collection stage across its routes.
type StageConfig struct {
	// Method keys the per-endpoint window for every route in the stage.
	Method string

	RouteLong  ratelimit.Window
	RouteShort ratelimit.Window
	Endpoint   ratelimit.Window

	WorkersPerRoute int
	QueueCapacity   int
	RefillThreshold int
	RefillPoll      time.Duration

	Worker execution.WorkerConfig
}

func (c *StageConfig) applyDefaults() {
	if c.RouteLong.Amount == 0 {
		c.RouteLong = DefaultRouteLongWindow()
	}
	if c.RouteShort.Amount == 0 {
		c.RouteShort = DefaultRouteShortWindow()
	}
	if c.Endpoint.Amount == 0 {
		c.Endpoint = DefaultEndpointWindow()
	}
	if c.WorkersPerRoute <= 0 {
		c.WorkersPerRoute = 1
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 256
	}
	if c.RefillThreshold <= 0 {
		c.RefillThreshold = 30
	}
	if c.RefillPoll <= 0 {
		c.RefillPoll = time.Second
	}
}

// RouteStage pairs one route with the factory feeding its queue.
type RouteStage[T any] struct {
	Route   riot.Route
	Factory execution.Factory[T]
}

// workerIDs hands out process-unique worker ids across stages.
var workerIDs struct {
	mu   sync.Mutex
	next int
}

func nextWorkerID() int {
	workerIDs.mu.Lock()
	defer workerIDs.mu.Unlock()
	id := workerIDs.next
	workerIDs.next++
	return id
}

// RunStage supervises one stage: per route it registers the three limiter
// windows, creates a bounded queue, spawns the refiller and the workers,
// and blocks until every worker has finished. The orchestrator itself never
// calls the HTTP client.
//
// stopAll is shared across every stage of the process; each route gets its
// own shard-local stop flag.
func RunStage[T any](ctx context.Context, name string, client *riot.Client, stopAll *execution.Flag, stats *execution.Stats, routes []RouteStage[T], cfg StageConfig) {
	cfg.applyDefaults()
	log.Printf("stage %s: starting %d workers across %d routes", name, cfg.WorkersPerRoute*len(routes), len(routes))

	var wg sync.WaitGroup
	for _, rs := range routes {
		client.RegisterRouteWindows(rs.Route, cfg.RouteLong, cfg.RouteShort)
		client.RegisterEndpointWindow(rs.Route, cfg.Method, cfg.Endpoint)

		stopShard := execution.NewFlag()
		queue := execution.NewQueue[T](cfg.QueueCapacity)

		// The refiller stops claiming once this route's workers are done,
		// so orphaned leases are not renewed past shutdown.
		refillCtx, cancelRefill := context.WithCancel(ctx)
		go execution.Refill(refillCtx, name+"/"+rs.Route.Name(), rs.Factory, queue, execution.RefillConfig{
			Threshold:    cfg.RefillThreshold,
			PollInterval: cfg.RefillPoll,
		})

		var routeWG sync.WaitGroup
		for i := 0; i < cfg.WorkersPerRoute; i++ {
			w := execution.NewWorker(nextWorkerID(), client, queue, stopAll, stopShard, cfg.Worker, stats)
			wg.Add(1)
			routeWG.Add(1)
			go func() {
				defer wg.Done()
				defer routeWG.Done()
				w.Run(ctx)
			}()
		}
		go func() {
			routeWG.Wait()
			cancelRefill()
		}()
	}

	wg.Wait()
	if stopAll.IsSet() {
		log.Printf("stage %s: stopped by stop_all", name)
		return
	}
	log.Printf("stage %s: completed", name)
}
