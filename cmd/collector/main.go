package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/CharlieJ515/lol-collector/internal/collector"
	"github.com/CharlieJ515/lol-collector/internal/config"
	"github.com/CharlieJ515/lol-collector/internal/execution"
	"github.com/CharlieJ515/lol-collector/internal/ratelimit"
	"github.com/CharlieJ515/lol-collector/internal/riot"
	"github.com/CharlieJ515/lol-collector/internal/status"
	"github.com/CharlieJ515/lol-collector/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("collector starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Open(ctx, cfg.PostgresDSN, cfg.PoolMaxSize)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	st := store.NewStore(pool)
	defer st.Close()

	var limiterStore ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RedisDSN != "" {
		log.Printf("using shared redis limiter store at %s", cfg.RedisDSN)
		limiterStore = ratelimit.NewRedisStoreAddr(cfg.RedisDSN)
	}
	admitter := ratelimit.NewAdmitter(ratelimit.New(limiterStore))
	client := riot.NewClient(cfg.RiotAPIKey, admitter)

	stopAll := execution.NewFlag()
	stats := &execution.Stats{}

	if cfg.StatusAddr != "" {
		srv := status.NewServer(cfg.StatusAddr, pool, stats)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Printf("status server failed: %v", err)
			}
		}()
	}

	workerCfg := execution.WorkerConfig{
		QueueTimeout:       cfg.QueueTimeout,
		HTTPErrorTimeout:   cfg.HTTPErrorTimeout,
		ServerErrorTimeout: cfg.ServerErrorTimeout,
		StrictServerErrors: cfg.StrictServerErrors,
	}

	// Stage 3: fetch full matches, one shard per region.
	matchRoutes := make([]collector.RouteStage[riot.Match], 0, len(riot.Regions()))
	for _, region := range riot.Regions() {
		matchRoutes = append(matchRoutes, collector.RouteStage[riot.Match]{
			Route: region,
			Factory: &collector.MatchFactory{
				Region:        region,
				Matches:       st,
				BatchSize:     cfg.FactoryBatchSize,
				LeaseDuration: cfg.LeaseDuration,
			},
		})
	}

	// Stage 2: list match ids per player. Claims shard per platform; the
	// requests themselves count against the platform's region quota.
	idRoutes := make([]collector.RouteStage[riot.MatchIDs], 0, len(riot.Platforms()))
	for _, platform := range riot.Platforms() {
		idRoutes = append(idRoutes, collector.RouteStage[riot.MatchIDs]{
			Route: platform.Region(),
			Factory: &collector.UserFactory{
				Platform:      platform,
				Users:         st,
				Matches:       st,
				BatchSize:     cfg.FactoryBatchSize,
				RequeryAge:    cfg.UserRequeryAge,
				LeaseDuration: cfg.LeaseDuration,
			},
		})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		collector.RunStage(ctx, "matches", client, stopAll, stats, matchRoutes, collector.StageConfig{
			Method:          riot.MethodMatchByID,
			WorkersPerRoute: cfg.WorkersPerRegion,
			RefillThreshold: cfg.RefillThreshold,
			Worker:          workerCfg,
		})
	}()
	go func() {
		defer wg.Done()
		collector.RunStage(ctx, "match_ids", client, stopAll, stats, idRoutes, collector.StageConfig{
			Method:          riot.MethodMatchIDsByPuuid,
			WorkersPerRoute: cfg.WorkersPerPlatform,
			RefillThreshold: cfg.RefillThreshold,
			Worker:          workerCfg,
		})
	}()
	wg.Wait()

	if stopAll.IsSet() {
		log.Println("all workers stopped")
		os.Exit(1)
	}
	log.Println("all workers completed")
}
