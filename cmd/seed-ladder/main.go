package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/CharlieJ515/lol-collector/internal/collector"
	"github.com/CharlieJ515/lol-collector/internal/config"
	"github.com/CharlieJ515/lol-collector/internal/execution"
	"github.com/CharlieJ515/lol-collector/internal/ratelimit"
	"github.com/CharlieJ515/lol-collector/internal/riot"
	"github.com/CharlieJ515/lol-collector/internal/status"
	"github.com/CharlieJ515/lol-collector/internal/store"
)

// seedPlatforms reads SEED_PLATFORMS (comma-separated platform names) or
// defaults to every known platform.
func seedPlatforms() ([]riot.Platform, error) {
	v := strings.TrimSpace(os.Getenv("SEED_PLATFORMS"))
	if v == "" {
		return riot.Platforms(), nil
	}
	var out []riot.Platform
	for _, name := range strings.Split(v, ",") {
		p, err := riot.PlatformFromName(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("ladder seeder starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	platforms, err := seedPlatforms()
	if err != nil {
		log.Fatalf("invalid SEED_PLATFORMS: %v", err)
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
	queues := []riot.RankedQueue{riot.QueueRankedSolo, riot.QueueRankedFlex}

	// Paged ladder enumeration: one lineage per (queue, tier, division).
	ladderRoutes := make([]collector.RouteStage[[]riot.LeagueEntry], 0, len(platforms))
	for _, platform := range platforms {
		var jobs []execution.Job[[]riot.LeagueEntry]
		for _, queue := range queues {
			for _, tier := range riot.Tiers() {
				for _, division := range riot.Divisions() {
					jobs = append(jobs, collector.NewLeagueJob(platform, queue, tier, division, st))
				}
			}
		}
		ladderRoutes = append(ladderRoutes, collector.RouteStage[[]riot.LeagueEntry]{
			Route:   platform,
			Factory: collector.NewStaticFactory(jobs),
		})
	}

	collector.RunStage(ctx, "ladder", client, stopAll, stats, ladderRoutes, collector.StageConfig{
		Method:          riot.MethodLeagueEntries,
		WorkersPerRoute: cfg.WorkersPerPlatform,
		RefillThreshold: cfg.RefillThreshold,
		Worker:          workerCfg,
	})

	if stopAll.IsSet() {
		log.Println("ladder seeding stopped")
		os.Exit(1)
	}

	// Apex leagues are single-shot per (platform, tier, queue).
	apexRoutes := make([]collector.RouteStage[riot.LeagueList], 0, len(platforms))
	for _, platform := range platforms {
		var jobs []execution.Job[riot.LeagueList]
		for _, queue := range queues {
			for _, tier := range riot.ApexTiers() {
				jobs = append(jobs, collector.NewApexJob(platform, tier, queue, st))
			}
		}
		apexRoutes = append(apexRoutes, collector.RouteStage[riot.LeagueList]{
			Route:   platform,
			Factory: collector.NewStaticFactory(jobs),
		})
	}

	collector.RunStage(ctx, "apex", client, stopAll, stats, apexRoutes, collector.StageConfig{
		Method:          riot.MethodApexLeague,
		WorkersPerRoute: cfg.WorkersPerPlatform,
		RefillThreshold: cfg.RefillThreshold,
		Worker:          workerCfg,
	})

	if stopAll.IsSet() {
		log.Println("ladder seeding stopped")
		os.Exit(1)
	}
	log.Println("ladder seeding completed")
}
