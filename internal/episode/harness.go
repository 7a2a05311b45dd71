package episode

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/trackreward/go-controller/internal/reward"
)

// #region types
// Step is a single recorded simulation step.
type Step struct {
	StepID   string
	Snapshot reward.Snapshot
}

// Episode is an ordered run of steps.
type Episode struct {
	ID    string
	Steps []Step
}

// StepResult captures the outcome of scoring one step.
type StepResult struct {
	StepID    string
	Snapshot  reward.Snapshot
	Reward    float64
	Return    float64 // cumulative reward up to and including this step
	Breakdown reward.Breakdown
}

// EpisodeResult pairs an episode ID with its per-step results and summary.
type EpisodeResult struct {
	ID      string
	Results []StepResult
	Summary Summary
}

// #endregion types

// #region replay
// Replay scores each step independently and accumulates the return in order.
// Evaluation carries no state between steps; only Return is cumulative.
func Replay(steps []Step) []StepResult {
	results := make([]StepResult, 0, len(steps))
	var ret float64
	for _, st := range steps {
		b := reward.Explain(st.Snapshot)
		ret += b.Reward
		results = append(results, StepResult{
			StepID:    st.StepID,
			Snapshot:  st.Snapshot,
			Reward:    b.Reward,
			Return:    ret,
			Breakdown: b,
		})
	}
	return results
}

// ReplayAll replays episodes concurrently with at most workers in flight.
// Results are returned in input order.
func ReplayAll(ctx context.Context, episodes []Episode, workers int) ([]EpisodeResult, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]EpisodeResult, len(episodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range episodes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("episode %s: %w", episodes[i].ID, err)
			}
			results := Replay(episodes[i].Steps)
			out[i] = EpisodeResult{
				ID:      episodes[i].ID,
				Results: results,
				Summary: Summarize(results),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion replay
