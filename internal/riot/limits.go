package riot

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// limitPair is one count:window_seconds entry from a rate-limit header.
type limitPair struct {
	Count  int
	Period int
}

// parseLimitHeader parses a comma-separated "count:window_seconds" list such
// as "95:123,10:1". Malformed entries are skipped.
func parseLimitHeader(s string) []limitPair {
	var out []limitPair
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 {
			continue
		}
		count, err1 := strconv.Atoi(fields[0])
		period, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, limitPair{Count: count, Period: period})
	}
	return out
}

// limitStr formats one window as "count(limit)/period", the shape used by
// all rate telemetry logging.
func limitStr(limit, period, count int) string {
	return fmt.Sprintf("%d(%d)/%d", count, limit, period)
}

// LogHeaderLimits logs the server-reported usage of the app and method
// windows, plus the server Date so drift against the local clock is visible.
func LogHeaderLimits(prefix string, headers http.Header) {
	appLimit := parseLimitHeader(headers.Get("X-App-Rate-Limit"))
	appCount := parseLimitHeader(headers.Get("X-App-Rate-Limit-Count"))
	methodLimit := parseLimitHeader(headers.Get("X-Method-Rate-Limit"))
	methodCount := parseLimitHeader(headers.Get("X-Method-Rate-Limit-Count"))

	parts := make([]string, 0, 4)
	if len(appLimit) > 0 && len(appLimit) == len(appCount) {
		parts = append(parts, "route_long="+limitStr(appLimit[0].Count, appLimit[0].Period, appCount[0].Count))
		if len(appLimit) > 1 {
			parts = append(parts, "route_short="+limitStr(appLimit[1].Count, appLimit[1].Period, appCount[1].Count))
		}
	}
	if len(methodLimit) > 0 && len(methodLimit) == len(methodCount) {
		parts = append(parts, "endpoint="+limitStr(methodLimit[0].Count, methodLimit[0].Period, methodCount[0].Count))
	}
	if t, err := time.Parse(http.TimeFormat, headers.Get("Date")); err == nil {
		parts = append(parts, "server_time="+t.Format("2006-01-02 15:04:05"))
	}
	if len(parts) == 0 {
		return
	}

	log.Printf("%s server rate limit status %s", prefix, strings.Join(parts, " "))
}

// LogClientLimits logs the local limiter's view of the three windows bound
// to (route, method), in the same count(limit)/period shape, so client drift
// against the server counters can be compared line-to-line.
func (c *Client) LogClientLimits(ctx context.Context, prefix string, route Route, method string) {
	parts := make([]string, 0, 3)
	for _, name := range []string{windowRouteLong, windowRouteShort, method} {
		w, ok := c.window(route, name)
		if !ok {
			continue
		}
		stats, err := c.admitter.Stats(ctx, w, route.Name(), name)
		if err != nil {
			log.Printf("%s failed to read window stats: %v", prefix, err)
			continue
		}
		label := name
		if name == method {
			label = "endpoint"
		}
		parts = append(parts, fmt.Sprintf("%s=%s", label,
			limitStr(w.Amount, int(w.Period/time.Second), w.Amount-stats.Remaining)))
	}
	if len(parts) == 0 {
		return
	}

	log.Printf("%s client rate limit status %s", prefix, strings.Join(parts, " "))
}
