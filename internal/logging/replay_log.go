package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-replay
// LogReplay writes a replay comparison outcome to the replay_log table.
func LogReplay(db *sql.DB, entry ReplayEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO replay_log (source, episode_id, total_steps, matches, mismatches, total_reward, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Source,
		nullIfEmpty(entry.EpisodeID),
		entry.TotalSteps,
		entry.Matches,
		entry.Mismatches,
		entry.TotalReward,
		nullIfEmpty(entry.Note),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log replay: %w", err)
	}
	return nil
}

// #endregion log-replay

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
