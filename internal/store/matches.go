package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/CharlieJ515/lol-collector/internal/riot"
)

const insertMatchIDSQL = `
INSERT INTO match_ids (match_id, region_name)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`

// InsertMatchIDs records newly discovered match ids for a region.
// Conflict-ignore on the primary key makes page replays idempotent.
func (q *Queries) InsertMatchIDs(ctx context.Context, region riot.Region, matchIDs []string) error {
	if len(matchIDs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, id := range matchIDs {
		batch.Queue(insertMatchIDSQL, id, region.Name())
	}
	if err := q.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert match ids: %w", err)
	}
	return nil
}

const claimMatchesSQL = `
WITH claimed AS (
    SELECT match_id
    FROM match_ids
    WHERE region_name = $1
      AND NOT queried
      AND lease_until < NOW()
    ORDER BY lease_until, match_id
    LIMIT $2
    FOR UPDATE SKIP LOCKED
)
UPDATE match_ids
SET lease_until = NOW() + $3::interval
FROM claimed
WHERE match_ids.match_id = claimed.match_id
RETURNING match_ids.match_id
`

// ClaimMatches atomically leases up to batchSize unqueried match ids in a
// region. See ClaimUsers for the claim-protocol guarantees.
func (q *Queries) ClaimMatches(ctx context.Context, region riot.Region, batchSize int, leaseDuration time.Duration) ([]string, error) {
	rows, err := q.db.Query(ctx, claimMatchesSQL,
		region.Name(), batchSize, interval(leaseDuration))
	if err != nil {
		return nil, fmt.Errorf("claim matches: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan claimed match id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim matches: %w", err)
	}
	return ids, nil
}

const setMatchQueriedSQL = `
UPDATE match_ids
SET queried = true
WHERE match_id = $1
`

// SetMatchQueried marks a match id as terminally collected.
func (q *Queries) SetMatchQueried(ctx context.Context, matchID string) error {
	if _, err := q.db.Exec(ctx, setMatchQueriedSQL, matchID); err != nil {
		return fmt.Errorf("set match queried: %w", err)
	}
	return nil
}
