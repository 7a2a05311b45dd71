package logging

import "time"

// #region replay-entry
// ReplayEntry is a single row in the replay_log table.
type ReplayEntry struct {
	Source      string // fixture path or "db"
	EpisodeID   string
	TotalSteps  int
	Matches     int
	Mismatches  int
	TotalReward float64
	Note        string
	CreatedAt   time.Time
}

// #endregion replay-entry
