package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/CharlieJ515/lol-collector/internal/riot"
)

// TxBeginner is satisfied by *pgxpool.Pool and pgx.Conn.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

const insertMatchSQL = `
INSERT INTO matches (match_id, platform_name, game_id, game_creation, game_duration, game_version, queue_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT DO NOTHING
`

const insertTeamSQL = `
INSERT INTO match_teams (
    match_id, team_id, win,
    baron_first, baron_kills, champion_first, champion_kills,
    dragon_first, dragon_kills, horde_first, horde_kills,
    inhibitor_first, inhibitor_kills, rift_herald_first, rift_herald_kills,
    tower_first, tower_kills, surrendered
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT DO NOTHING
`

const insertTeamBanSQL = `
INSERT INTO match_team_bans (match_id, team_id, pick_turn, champion_id)
VALUES ($1, $2, $3, $4)
ON CONFLICT DO NOTHING
`

const insertParticipantSQL = `
INSERT INTO match_participants (
    match_id, participant_id, team_id, puuid, team_position,
    champion_id, summoner1_id, summoner2_id,
    kills, deaths, assists, gold_earned, damage_to_champions, vision_score, win
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT DO NOTHING
`

// InsertMatch normalizes one match record into its relational rows inside a
// single transaction: the participants' users rows (so stage 2 discovers
// players seen only inside matches), the match row, and the team, ban and
// participant rows. Every statement is conflict-ignoring, so re-delivered
// matches rewrite nothing.
func InsertMatch(ctx context.Context, db TxBeginner, m riot.Match) error {
	batch, err := buildMatchBatch(m)
	if err != nil {
		return err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert match: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert match %s: %w", m.Metadata.MatchID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert match: %w", err)
	}
	return nil
}

// buildMatchBatch flattens the match DTO into queued statements. Kept apart
// from the transaction plumbing so the normalization rules are testable
// without a database.
func buildMatchBatch(m riot.Match) (*pgx.Batch, error) {
	matchID := m.Metadata.MatchID
	if matchID == "" {
		return nil, fmt.Errorf("match record missing match id")
	}
	platform := strings.ToLower(m.Info.PlatformID)

	batch := &pgx.Batch{}

	for _, puuid := range m.Metadata.Participants {
		batch.Queue(insertUserSQL, puuid, platform)
	}

	batch.Queue(insertMatchSQL,
		matchID, platform, m.Info.GameID, m.Info.GameCreation,
		m.Info.GameDuration, m.Info.GameVersion, m.Info.QueueID)

	for _, team := range m.Info.Teams {
		// The surrender flag lives on participants in the DTO; lift it to
		// team level.
		surrendered := false
		for _, p := range m.Info.Participants {
			if p.TeamID == team.TeamID && p.GameEndedInSurrender {
				surrendered = true
				break
			}
		}

		o := team.Objectives
		batch.Queue(insertTeamSQL,
			matchID, team.TeamID, team.Win,
			o.Baron.First, o.Baron.Kills, o.Champion.First, o.Champion.Kills,
			o.Dragon.First, o.Dragon.Kills, o.Horde.First, o.Horde.Kills,
			o.Inhibitor.First, o.Inhibitor.Kills, o.RiftHerald.First, o.RiftHerald.Kills,
			o.Tower.First, o.Tower.Kills, surrendered)

		for _, ban := range team.Bans {
			// -1 means the ban was skipped.
			var champion *int
			if ban.ChampionID != -1 {
				c := ban.ChampionID
				champion = &c
			}
			batch.Queue(insertTeamBanSQL, matchID, team.TeamID, ban.PickTurn, champion)
		}
	}

	for _, p := range m.Info.Participants {
		batch.Queue(insertParticipantSQL,
			matchID, p.ParticipantID, p.TeamID, p.Puuid, strings.ToLower(p.TeamPosition),
			p.ChampionID, p.Summoner1ID, p.Summoner2ID,
			p.Kills, p.Deaths, p.Assists, p.GoldEarned,
			p.TotalDamageDealtToChampions, p.VisionScore, p.Win)
	}

	return batch, nil
}
