package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CharlieJ515/lol-collector/internal/execution"
	"github.com/CharlieJ515/lol-collector/internal/ratelimit"
	"github.com/CharlieJ515/lol-collector/internal/riot"
)

func newStageClient(t *testing.T, handler http.Handler) *riot.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	admitter := ratelimit.NewAdmitter(ratelimit.New(ratelimit.NewMemoryStore()))
	client := riot.NewClient("test-key", admitter)
	client.BaseURL = srv.URL
	return client
}

func fastWorkerConfig() execution.WorkerConfig {
	return execution.WorkerConfig{QueueTimeout: 100 * time.Millisecond}
}

// Single-page enumerate: page 1 lists two players, page 2 is empty. The
// stage must persist exactly those players and terminate on its own.
func TestStageSinglePageEnumerate(t *testing.T) {
	client := newStageClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			_ = json.NewEncoder(w).Encode([]riot.LeagueEntry{{Puuid: "a"}, {Puuid: "b"}})
		default:
			_ = json.NewEncoder(w).Encode([]riot.LeagueEntry{})
		}
	}))

	st := newFakeStore()
	jobs := []execution.Job[[]riot.LeagueEntry]{
		NewLeagueJob(riot.PlatformKR, riot.QueueRankedSolo, riot.TierDiamond, riot.DivisionI, st),
	}
	routes := []RouteStage[[]riot.LeagueEntry]{
		{Route: riot.PlatformKR, Factory: NewStaticFactory(jobs)},
	}

	RunStage(context.Background(), "ladder", client, execution.NewFlag(), nil, routes, StageConfig{
		Method: riot.MethodLeagueEntries,
		Worker: fastWorkerConfig(),
	})

	assert.Equal(t, map[string]string{"a": "kr", "b": "kr"}, st.users)
}

// Paginated offset: the first page is full (100 ids), the second is short
// (37). The run must insert all 137 ids and mark the player as listed once.
func TestStagePaginatedOffset(t *testing.T) {
	client := newStageClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		n := 100
		if start >= 100 {
			n = 37
		}
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("KR_%d", start+i)
		}
		_ = json.NewEncoder(w).Encode(ids)
	}))

	st := newFakeStore()
	st.claimablePuuid = []string{"puuid-a"}
	routes := []RouteStage[riot.MatchIDs]{
		{Route: riot.RegionAsia, Factory: &UserFactory{
			Platform: riot.PlatformKR, Users: st, Matches: st,
			BatchSize: 20, RequeryAge: time.Hour, LeaseDuration: time.Minute,
		}},
	}

	RunStage(context.Background(), "match_ids", client, execution.NewFlag(), nil, routes, StageConfig{
		Method: riot.MethodMatchIDsByPuuid,
		Worker: fastWorkerConfig(),
	})

	assert.Len(t, st.matchIDs, 137)
	assert.Equal(t, []string{"puuid-a"}, st.usersListed, "completion marks the source row exactly once")
}

// Invalid key: a 401 from any worker raises stop_all and every worker on
// every route exits without issuing further requests.
func TestStageUnauthorizedStopsEveryRoute(t *testing.T) {
	var calls atomic.Int64
	client := newStageClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	st := newFakeStore()
	st.claimableIDs = []string{"KR_1", "KR_2", "KR_3", "KR_4"}

	var routes []RouteStage[riot.Match]
	for _, region := range riot.Regions() {
		routes = append(routes, RouteStage[riot.Match]{
			Route: region,
			Factory: &MatchFactory{
				Region: region, Matches: st,
				BatchSize: 2, LeaseDuration: time.Minute,
			},
		})
	}

	stopAll := execution.NewFlag()
	done := make(chan struct{})
	go func() {
		RunStage(context.Background(), "matches", client, stopAll, nil, routes, StageConfig{
			Method:          riot.MethodMatchByID,
			WorkersPerRoute: 2,
			Worker:          fastWorkerConfig(),
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stage did not converge after stop_all")
	}

	require.True(t, stopAll.IsSet())
	assert.Empty(t, st.insertedGames)
	assert.Empty(t, st.matchesDone)
	// Each worker can have at most one request in flight when the flag is
	// raised; with 8 workers that bounds the damage.
	assert.LessOrEqual(t, calls.Load(), int64(8))
}
