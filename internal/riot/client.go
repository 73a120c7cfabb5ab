package riot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/CharlieJ515/lol-collector/internal/ratelimit"
)

// Method names select which endpoint a job invokes and key the per-endpoint
// limiter windows.
const (
	MethodLeagueEntries   = "league_entries"
	MethodApexLeague      = "apex_league"
	MethodMatchIDsByPuuid = "match_ids_by_puuid"
	MethodMatchByID       = "match_by_id"
)

// Limiter window names under a route.
const (
	windowRouteLong  = "route_long"
	windowRouteShort = "route_short"
)

// Client executes typed requests against the upstream API. Every request
// first runs the admission protocol over the windows registered for its
// (route, method) pair, then sends the request with the credential header.
//
// The client may be shared by any number of workers; the registry and the
// limiter behind the admitter are the only shared state and both are
// synchronized.
type Client struct {
	// BaseURL overrides the per-route upstream host when non-empty. Used by
	// tests pointing the client at a local fake.
	BaseURL string

	httpClient *http.Client
	apiKey     string
	admitter   *ratelimit.Admitter

	mu      sync.RWMutex
	windows map[string]ratelimit.Window
}

// NewClient constructs a Client. The admitter carries the limiter every
// request is admitted through.
func NewClient(apiKey string, admitter *ratelimit.Admitter) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		admitter:   admitter,
		windows:    make(map[string]ratelimit.Window),
	}
}

// RegisterRouteWindows binds the two application-wide windows of a route.
// Amounts are set slightly below the server-advertised quotas for headroom.
func (c *Client) RegisterRouteWindows(route Route, long, short ratelimit.Window) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windows[windowKey(route, windowRouteLong)] = long
	c.windows[windowKey(route, windowRouteShort)] = short
}

// RegisterEndpointWindow binds the per-endpoint window of (route, method).
func (c *Client) RegisterEndpointWindow(route Route, method string, w ratelimit.Window) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windows[windowKey(route, method)] = w
}

func windowKey(route Route, name string) string {
	return route.Name() + "/" + name
}

// bindings assembles the admission list for one request: route-long,
// route-short, then the endpoint window when one is registered.
func (c *Client) bindings(route Route, method string) []ratelimit.Binding {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []ratelimit.Binding
	if w, ok := c.windows[windowKey(route, windowRouteLong)]; ok {
		out = append(out, ratelimit.Binding{Window: w, Keys: []string{route.Name(), windowRouteLong}})
	}
	if w, ok := c.windows[windowKey(route, windowRouteShort)]; ok {
		out = append(out, ratelimit.Binding{Window: w, Keys: []string{route.Name(), windowRouteShort}})
	}
	if w, ok := c.windows[windowKey(route, method)]; ok {
		out = append(out, ratelimit.Binding{Window: w, Keys: []string{route.Name(), method}})
	}
	return out
}

// window looks up a registered window for telemetry logging.
func (c *Client) window(route Route, name string) (ratelimit.Window, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.windows[windowKey(route, name)]
	return w, ok
}

// get runs the admission protocol, issues the request and decodes the body
// into out. Non-2xx statuses are mapped onto the error taxonomy.
func (c *Client) get(ctx context.Context, route Route, method, p string, query url.Values, out any) (http.Header, error) {
	if err := c.admitter.Acquire(ctx, c.bindings(route, method)); err != nil {
		return nil, err
	}

	u := url.URL{Scheme: "https", Host: route.Host(), Path: p}
	if c.BaseURL != "" {
		base, err := url.Parse(c.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base url: %w", err)
		}
		u.Scheme = base.Scheme
		u.Host = base.Host
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Riot-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.Header, fmt.Errorf("read response body: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fallthrough to decode
	case resp.StatusCode == http.StatusUnauthorized:
		return resp.Header, ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return resp.Header, newRateLimitError(resp.Header)
	default:
		msg := string(body)
		if len(msg) > 256 {
			msg = msg[:256]
		}
		return resp.Header, &APIError{StatusCode: resp.StatusCode, Message: msg, Headers: resp.Header}
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.Header, fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return resp.Header, nil
}

// LeagueEntries fetches one page of the ranked ladder for (queue, tier,
// division) on a platform. Pages are 1-based; an empty page means the ladder
// is exhausted.
func (c *Client) LeagueEntries(ctx context.Context, platform Platform, queue RankedQueue, tier Tier, division Division, page int) ([]LeagueEntry, http.Header, error) {
	p := fmt.Sprintf("/lol/league/v4/entries/%s/%s/%s", queue, tier, division)
	q := url.Values{"page": {strconv.Itoa(page)}}

	var out []LeagueEntry
	headers, err := c.get(ctx, platform, MethodLeagueEntries, p, q, &out)
	if err != nil {
		return nil, headers, err
	}
	return out, headers, nil
}

// ApexLeague fetches one of the single-division apex leagues for a queue.
func (c *Client) ApexLeague(ctx context.Context, platform Platform, tier ApexTier, queue RankedQueue) (LeagueList, http.Header, error) {
	p := fmt.Sprintf("/lol/league/v4/%sleagues/by-queue/%s", tier, queue)

	var out LeagueList
	headers, err := c.get(ctx, platform, MethodApexLeague, p, nil, &out)
	if err != nil {
		return LeagueList{}, headers, err
	}
	return out, headers, nil
}

// MatchIDsByPuuid lists up to count recent match ids for a player, starting
// at the given offset. A page shorter than count means the history is
// exhausted.
func (c *Client) MatchIDsByPuuid(ctx context.Context, region Region, puuid string, start, count int) (MatchIDs, http.Header, error) {
	p := fmt.Sprintf("/lol/match/v5/matches/by-puuid/%s/ids", puuid)
	q := url.Values{
		"start": {strconv.Itoa(start)},
		"count": {strconv.Itoa(count)},
	}

	var out MatchIDs
	headers, err := c.get(ctx, region, MethodMatchIDsByPuuid, p, q, &out)
	if err != nil {
		return nil, headers, err
	}
	return out, headers, nil
}

// MatchByID fetches the full match record.
func (c *Client) MatchByID(ctx context.Context, region Region, matchID string) (Match, http.Header, error) {
	p := fmt.Sprintf("/lol/match/v5/matches/%s", matchID)

	var out Match
	headers, err := c.get(ctx, region, MethodMatchByID, p, nil, &out)
	if err != nil {
		return Match{}, headers, err
	}
	return out, headers, nil
}
