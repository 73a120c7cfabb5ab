package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/CharlieJ515/lol-collector/internal/riot"
)

const insertUserSQL = `
INSERT INTO users (puuid, platform_name)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`

// InsertUsers upserts discovered players. Replays are harmless: the insert
// ignores conflicts on the primary key.
func (q *Queries) InsertUsers(ctx context.Context, platform riot.Platform, puuids []string) error {
	if len(puuids) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, puuid := range puuids {
		batch.Queue(insertUserSQL, puuid, platform.Name())
	}
	if err := q.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert users: %w", err)
	}
	return nil
}

const claimUsersSQL = `
WITH claimed AS (
    SELECT puuid
    FROM users
    WHERE platform_name = $1
      AND match_id_queried < NOW() - $2::interval
      AND lease_until < NOW()
    ORDER BY lease_until, puuid
    LIMIT $3
    FOR UPDATE SKIP LOCKED
)
UPDATE users
SET lease_until = NOW() + $4::interval
FROM claimed
WHERE users.puuid = claimed.puuid
RETURNING users.puuid
`

// ClaimUsers atomically leases up to batchSize players on a platform whose
// match history has not been listed within requeryAge and whose lease has
// expired. The select and the lease advance run in one statement, so two
// concurrent claimers can never receive the same row; ordering by lease_until
// keeps abandoned rows from starving.
func (q *Queries) ClaimUsers(ctx context.Context, platform riot.Platform, batchSize int, requeryAge, leaseDuration time.Duration) ([]string, error) {
	rows, err := q.db.Query(ctx, claimUsersSQL,
		platform.Name(), interval(requeryAge), batchSize, interval(leaseDuration))
	if err != nil {
		return nil, fmt.Errorf("claim users: %w", err)
	}
	defer rows.Close()

	var puuids []string
	for rows.Next() {
		var puuid string
		if err := rows.Scan(&puuid); err != nil {
			return nil, fmt.Errorf("scan claimed puuid: %w", err)
		}
		puuids = append(puuids, puuid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim users: %w", err)
	}
	return puuids, nil
}

const setMatchIDQueriedSQL = `
UPDATE users
SET match_id_queried = NOW()
WHERE puuid = $1
`

// SetMatchIDQueried marks a player's history listing as complete. The row
// becomes eligible again once the requery age elapses.
func (q *Queries) SetMatchIDQueried(ctx context.Context, puuid string) error {
	if _, err := q.db.Exec(ctx, setMatchIDQueriedSQL, puuid); err != nil {
		return fmt.Errorf("set match_id_queried: %w", err)
	}
	return nil
}

// interval renders a duration as a Postgres interval literal.
func interval(d time.Duration) string {
	return fmt.Sprintf("%d milliseconds", d.Milliseconds())
}
