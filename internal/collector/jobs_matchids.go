package collector

import (
	"context"
	"log"
	"net/http"

	"github.com/CharlieJ515/lol-collector/internal/execution"
	"github.com/CharlieJ515/lol-collector/internal/riot"
)

// matchIDsPageSize is the upstream maximum for one match-id listing page.
const matchIDsPageSize = 100

// matchIDsJob lists one page of a player's recent match ids. The offset
// cursor advances by the page size while pages come back full; the first
// short page ends the lineage and marks the player as listed.
type matchIDsJob struct {
	platform riot.Platform
	puuid    string
	start    int
	count    int
	users    UserStore
	matches  MatchStore
}

// NewMatchIDsJob starts a match-id listing lineage at offset 0.
func NewMatchIDsJob(platform riot.Platform, puuid string, users UserStore, matches MatchStore) execution.Job[riot.MatchIDs] {
	return matchIDsJob{
		platform: platform,
		puuid:    puuid,
		start:    0,
		count:    matchIDsPageSize,
		users:    users,
		matches:  matches,
	}
}

// Route is the platform's aggregating region: match endpoints are served by
// region shards even though the work item is claimed per platform.
func (j matchIDsJob) Route() riot.Route { return j.platform.Region() }

func (j matchIDsJob) Method() string { return riot.MethodMatchIDsByPuuid }

func (j matchIDsJob) Execute(ctx context.Context, client *riot.Client) (riot.MatchIDs, http.Header, error) {
	return client.MatchIDsByPuuid(ctx, j.platform.Region(), j.puuid, j.start, j.count)
}

func (j matchIDsJob) Next(result riot.MatchIDs, _ http.Header) execution.Job[riot.MatchIDs] {
	if len(result) < j.count {
		return nil
	}
	next := j
	next.start += j.count
	return next
}

func (j matchIDsJob) OnSuccess(ctx context.Context, result riot.MatchIDs, _ http.Header) error {
	return j.matches.InsertMatchIDs(ctx, j.platform.Region(), result)
}

func (j matchIDsJob) OnError(_ context.Context, err error) {
	log.Printf("match id listing for %s failed at offset %d: %v", j.puuid, j.start, err)
}

func (j matchIDsJob) OnCompletion(ctx context.Context) {
	if err := j.users.SetMatchIDQueried(ctx, j.puuid); err != nil {
		log.Printf("CRITICAL failed to mark %s as listed: %v", j.puuid, err)
	}
}
