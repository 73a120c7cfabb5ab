package collector

import (
	"context"
	"log"
	"net/http"

	"github.com/CharlieJ515/lol-collector/internal/execution"
	"github.com/CharlieJ515/lol-collector/internal/riot"
)

// matchJob fetches one full match record and persists its normalized rows.
// Single-shot: there is no pagination for a match fetch.
type matchJob struct {
	region  riot.Region
	matchID string
	matches MatchStore
}

// NewMatchJob builds a match fetch job for one claimed match id.
func NewMatchJob(region riot.Region, matchID string, matches MatchStore) execution.Job[riot.Match] {
	return matchJob{region: region, matchID: matchID, matches: matches}
}

func (j matchJob) Route() riot.Route { return j.region }

func (j matchJob) Method() string { return riot.MethodMatchByID }

func (j matchJob) Execute(ctx context.Context, client *riot.Client) (riot.Match, http.Header, error) {
	return client.MatchByID(ctx, j.region, j.matchID)
}

func (j matchJob) Next(riot.Match, http.Header) execution.Job[riot.Match] {
	return nil
}

// OnSuccess inserts the derived rows first and only then marks the work
// item terminal, so a failure between the two redelivers instead of losing
// the match.
func (j matchJob) OnSuccess(ctx context.Context, result riot.Match, _ http.Header) error {
	if err := j.matches.InsertMatch(ctx, result); err != nil {
		return err
	}
	log.Printf("inserted match %s", j.matchID)
	return j.matches.SetMatchQueried(ctx, j.matchID)
}

func (j matchJob) OnError(_ context.Context, err error) {
	log.Printf("match fetch %s failed: %v", j.matchID, err)
}

func (j matchJob) OnCompletion(_ context.Context) {}
