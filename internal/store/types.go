package store

import (
	"time"

	"github.com/danielpatrickdp/trackreward/go-controller/internal/reward"
)

// #region episode
// Episode is one recorded run of the agent around the track.
type Episode struct {
	EpisodeID string
	Track     string
	CreatedAt time.Time
}

// #endregion episode

// #region step-record
// StepRecord is a single scored step of an episode.
type StepRecord struct {
	EpisodeID string
	Step      int
	Snapshot  reward.Snapshot
	Reward    float64
	CreatedAt time.Time
}

// #endregion step-record

// #region episode-with-stats
// EpisodeWithStats pairs an episode with aggregate columns computed in SQL.
type EpisodeWithStats struct {
	Episode
	StepCount   int
	TotalReward float64
	MaxProgress float64
}

// #endregion episode-with-stats
