package episode

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// #region summary
// Summary provides aggregate stats from a replayed episode.
type Summary struct {
	TotalSteps     int     `json:"total_steps"`
	TotalReward    float64 `json:"total_reward"`
	MeanReward     float64 `json:"mean_reward"`
	StdDevReward   float64 `json:"stddev_reward"`
	MinReward      float64 `json:"min_reward"`
	MaxReward      float64 `json:"max_reward"`
	OffTrackSteps  int     `json:"off_track_steps"`
	LapCompletions int     `json:"lap_completions"`
	FinalProgress  float64 `json:"final_progress"`
}

// Summarize computes aggregate stats from step results.
func Summarize(results []StepResult) Summary {
	s := Summary{TotalSteps: len(results)}
	if len(results) == 0 {
		return s
	}

	rewards := make([]float64, len(results))
	for i, r := range results {
		rewards[i] = r.Reward
		if !r.Snapshot.AllWheelsOnTrack {
			s.OffTrackSteps++
		}
		if r.Snapshot.LapComplete() {
			s.LapCompletions++
		}
	}

	s.TotalReward = floats.Sum(rewards)
	s.MinReward = floats.Min(rewards)
	s.MaxReward = floats.Max(rewards)
	if len(rewards) > 1 {
		s.MeanReward, s.StdDevReward = stat.MeanStdDev(rewards, nil)
	} else {
		s.MeanReward = rewards[0]
	}
	s.FinalProgress = results[len(results)-1].Snapshot.Progress
	return s
}

// #endregion summary
