package collector

import (
	"context"
	"time"

	"github.com/CharlieJ515/lol-collector/internal/execution"
	"github.com/CharlieJ515/lol-collector/internal/riot"
)

// MatchFactory claims leased match ids for one region and materializes a
// fetch job per id.
type MatchFactory struct {
	Region        riot.Region
	Matches       MatchStore
	BatchSize     int
	LeaseDuration time.Duration
}

func (f *MatchFactory) Produce(ctx context.Context) ([]execution.Job[riot.Match], error) {
	ids, err := f.Matches.ClaimMatches(ctx, f.Region, f.BatchSize, f.LeaseDuration)
	if err != nil {
		return nil, err
	}

	jobs := make([]execution.Job[riot.Match], 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, NewMatchJob(f.Region, id, f.Matches))
	}
	return jobs, nil
}

// UserFactory claims leased players for one platform and materializes a
// match-id listing job per player.
type UserFactory struct {
	Platform      riot.Platform
	Users         UserStore
	Matches       MatchStore
	BatchSize     int
	RequeryAge    time.Duration
	LeaseDuration time.Duration
}

func (f *UserFactory) Produce(ctx context.Context) ([]execution.Job[riot.MatchIDs], error) {
	puuids, err := f.Users.ClaimUsers(ctx, f.Platform, f.BatchSize, f.RequeryAge, f.LeaseDuration)
	if err != nil {
		return nil, err
	}

	jobs := make([]execution.Job[riot.MatchIDs], 0, len(puuids))
	for _, puuid := range puuids {
		jobs = append(jobs, NewMatchIDsJob(f.Platform, puuid, f.Users, f.Matches))
	}
	return jobs, nil
}

// StaticFactory hands out a fixed job list once, then reports exhaustion.
// The ladder seeding stage uses it: its job set is the tier/division product,
// not store leases.
type StaticFactory[T any] struct {
	jobs []execution.Job[T]
}

// NewStaticFactory wraps a precomputed job list.
func NewStaticFactory[T any](jobs []execution.Job[T]) *StaticFactory[T] {
	return &StaticFactory[T]{jobs: jobs}
}

func (f *StaticFactory[T]) Produce(context.Context) ([]execution.Job[T], error) {
	jobs := f.jobs
	f.jobs = nil
	return jobs, nil
}
