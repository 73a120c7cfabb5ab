package collector

import (
	"context"
	"log"
	"net/http"

	"github.com/CharlieJ515/lol-collector/internal/execution"
	"github.com/CharlieJ515/lol-collector/internal/riot"
)

// leagueJob fetches one ladder page and records the players it lists.
// Pagination advances the page cursor until the upstream returns an empty
// page.
type leagueJob struct {
	platform riot.Platform
	queue    riot.RankedQueue
	tier     riot.Tier
	division riot.Division
	page     int
	users    UserStore
}

// NewLeagueJob starts a ladder enumeration lineage at page 1.
func NewLeagueJob(platform riot.Platform, queue riot.RankedQueue, tier riot.Tier, division riot.Division, users UserStore) execution.Job[[]riot.LeagueEntry] {
	return leagueJob{
		platform: platform,
		queue:    queue,
		tier:     tier,
		division: division,
		page:     1,
		users:    users,
	}
}

func (j leagueJob) Route() riot.Route { return j.platform }

func (j leagueJob) Method() string { return riot.MethodLeagueEntries }

func (j leagueJob) Execute(ctx context.Context, client *riot.Client) ([]riot.LeagueEntry, http.Header, error) {
	return client.LeagueEntries(ctx, j.platform, j.queue, j.tier, j.division, j.page)
}

func (j leagueJob) Next(result []riot.LeagueEntry, _ http.Header) execution.Job[[]riot.LeagueEntry] {
	if len(result) == 0 {
		return nil
	}
	next := j
	next.page++
	return next
}

func (j leagueJob) OnSuccess(ctx context.Context, result []riot.LeagueEntry, _ http.Header) error {
	puuids := make([]string, 0, len(result))
	for _, entry := range result {
		puuids = append(puuids, entry.Puuid)
	}
	return j.users.InsertUsers(ctx, j.platform, puuids)
}

func (j leagueJob) OnError(_ context.Context, err error) {
	log.Printf("league job %s %s %s %s page %d failed: %v",
		j.platform.Name(), j.queue, j.tier, j.division, j.page, err)
}

func (j leagueJob) OnCompletion(_ context.Context) {
	log.Printf("league %s %s %s %s completed at page %d",
		j.platform.Name(), j.queue, j.tier, j.division, j.page)
}

// apexJob fetches one of the single-page apex leagues.
type apexJob struct {
	platform riot.Platform
	tier     riot.ApexTier
	queue    riot.RankedQueue
	users    UserStore
}

// NewApexJob builds a single-shot apex league job.
func NewApexJob(platform riot.Platform, tier riot.ApexTier, queue riot.RankedQueue, users UserStore) execution.Job[riot.LeagueList] {
	return apexJob{platform: platform, tier: tier, queue: queue, users: users}
}

func (j apexJob) Route() riot.Route { return j.platform }

func (j apexJob) Method() string { return riot.MethodApexLeague }

func (j apexJob) Execute(ctx context.Context, client *riot.Client) (riot.LeagueList, http.Header, error) {
	return client.ApexLeague(ctx, j.platform, j.tier, j.queue)
}

func (j apexJob) Next(riot.LeagueList, http.Header) execution.Job[riot.LeagueList] {
	return nil
}

func (j apexJob) OnSuccess(ctx context.Context, result riot.LeagueList, _ http.Header) error {
	puuids := make([]string, 0, len(result.Entries))
	for _, entry := range result.Entries {
		puuids = append(puuids, entry.Puuid)
	}
	return j.users.InsertUsers(ctx, j.platform, puuids)
}

func (j apexJob) OnError(_ context.Context, err error) {
	log.Printf("apex league job %s %s %s failed: %v", j.platform.Name(), j.tier, j.queue, err)
}

func (j apexJob) OnCompletion(_ context.Context) {}
