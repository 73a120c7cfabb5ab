// Package collector binds the execution machinery to the concrete
// collection stages: ladder enumeration, per-player match-id listing, and
// full match harvesting.
package collector

import (
	"context"
	"time"

	"github.com/CharlieJ515/lol-collector/internal/riot"
)

// UserStore is the persistence surface of the user work items.
type UserStore interface {
	InsertUsers(ctx context.Context, platform riot.Platform, puuids []string) error
	ClaimUsers(ctx context.Context, platform riot.Platform, batchSize int, requeryAge, leaseDuration time.Duration) ([]string, error)
	SetMatchIDQueried(ctx context.Context, puuid string) error
}

// MatchStore is the persistence surface of the match work items and the
// normalized match rows.
type MatchStore interface {
	InsertMatchIDs(ctx context.Context, region riot.Region, matchIDs []string) error
	ClaimMatches(ctx context.Context, region riot.Region, batchSize int, leaseDuration time.Duration) ([]string, error)
	SetMatchQueried(ctx context.Context, matchID string) error
	InsertMatch(ctx context.Context, m riot.Match) error
}
