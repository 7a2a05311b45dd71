package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/trackreward/go-controller/internal/episode"
	"github.com/danielpatrickdp/trackreward/go-controller/internal/logging"
	"github.com/danielpatrickdp/trackreward/go-controller/internal/store"
)

var (
	replayFixture string
	replayEpisode string
	replayLast    int
	replayLog     bool

	replayCmd = &cobra.Command{
		Use:   "replay",
		Short: "Replay a fixture or recorded episodes and compare against expected rewards",
		Long: `Replays steps through the reward function and prints a comparison table.
Exit code 0 when every step matches, 1 when any step diverges, 2 on error.`,
		RunE: runReplay,
	}
)

func init() {
	replayCmd.Flags().StringVar(&replayFixture, "fixture", "", "path to fixture (.json, .yaml)")
	replayCmd.Flags().StringVar(&replayEpisode, "episode", "", "replay one recorded episode from the store")
	replayCmd.Flags().IntVar(&replayLast, "last", 0, "replay the N most recent recorded episodes")
	replayCmd.Flags().BoolVar(&replayLog, "log", false, "write the outcome to replay_log in the store")
}

// #region run
func runReplay(cmd *cobra.Command, _ []string) error {
	modes := 0
	for _, set := range []bool{replayFixture != "", replayEpisode != "", replayLast > 0} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return &exitCodeError{code: 2, err: fmt.Errorf("use exactly one of --fixture, --episode, --last")}
	}

	if replayFixture != "" {
		return runFixtureMode(cmd.OutOrStdout())
	}
	return runDBMode(cmd.Context(), cmd.OutOrStdout())
}

func runFixtureMode(out io.Writer) error {
	f, err := episode.LoadFixture(replayFixture)
	if err != nil {
		return &exitCodeError{code: 2, err: err}
	}
	steps, err := f.ToSteps()
	if err != nil {
		return &exitCodeError{code: 2, err: err}
	}

	results := episode.Replay(steps)
	rows := episode.Compare(results, f.Expected(), f.Tolerance)
	printComparison(out, rows)
	summary := episode.Summarize(results)

	if replayLog {
		if err := logOutcome(replayFixture, "", rows, summary); err != nil {
			return &exitCodeError{code: 2, err: err}
		}
	}
	return divergence(rows)
}

func runDBMode(ctx context.Context, out io.Writer) error {
	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return &exitCodeError{code: 2, err: err}
	}
	defer st.Close()

	ids := []string{replayEpisode}
	if replayLast > 0 {
		list, err := st.ListEpisodes(replayLast)
		if err != nil {
			return &exitCodeError{code: 2, err: err}
		}
		ids = ids[:0]
		for _, e := range list {
			ids = append(ids, e.EpisodeID)
		}
	}
	if len(ids) == 0 {
		return &exitCodeError{code: 2, err: fmt.Errorf("no episodes found in %s", cfg.Store.Path)}
	}

	var episodes []episode.Episode
	var expected [][]float64
	for _, id := range ids {
		if _, err := st.GetEpisode(id); err != nil {
			return &exitCodeError{code: 2, err: err}
		}
		records, err := st.Steps(id)
		if err != nil {
			return &exitCodeError{code: 2, err: err}
		}
		if len(records) == 0 {
			if replayEpisode != "" {
				return &exitCodeError{code: 2, err: fmt.Errorf("episode %s has no steps", id)}
			}
			logger.Warn("skipping episode without steps", zap.String("episode_id", id))
			continue
		}
		ep, exp := fromRecords(id, records)
		episodes = append(episodes, ep)
		expected = append(expected, exp)
	}
	if len(episodes) == 0 {
		return &exitCodeError{code: 2, err: fmt.Errorf("no recorded steps in %s", cfg.Store.Path)}
	}

	replayed, err := episode.ReplayAll(ctx, episodes, cfg.Replay.Workers)
	if err != nil {
		return &exitCodeError{code: 2, err: err}
	}

	var diverged error
	for i, er := range replayed {
		rows := episode.Compare(er.Results, expected[i], cfg.Replay.Tolerance)
		fmt.Fprintf(out, "Episode %s\n", er.ID)
		printComparison(out, rows)
		fmt.Fprintln(out)

		if replayLog {
			if err := logOutcomeTo(st, "db", er.ID, rows, er.Summary); err != nil {
				return &exitCodeError{code: 2, err: err}
			}
		}
		if err := divergence(rows); err != nil && diverged == nil {
			diverged = err
		}
	}
	return diverged
}

// #endregion run

// #region helpers
// fromRecords turns stored steps into a replayable episode plus the rewards
// recorded at the time.
func fromRecords(id string, records []store.StepRecord) (episode.Episode, []float64) {
	ep := episode.Episode{ID: id, Steps: make([]episode.Step, len(records))}
	expected := make([]float64, len(records))
	for i, r := range records {
		ep.Steps[i] = episode.Step{StepID: strconv.Itoa(r.Step), Snapshot: r.Snapshot}
		expected[i] = r.Reward
	}
	return ep, expected
}

func logOutcome(source, episodeID string, rows []episode.Comparison, summary episode.Summary) error {
	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()
	return logOutcomeTo(st, source, episodeID, rows, summary)
}

func logOutcomeTo(st *store.Store, source, episodeID string, rows []episode.Comparison, summary episode.Summary) error {
	mismatches := episode.Mismatches(rows)
	err := logging.LogReplay(st.DB(), logging.ReplayEntry{
		Source:      source,
		EpisodeID:   episodeID,
		TotalSteps:  len(rows),
		Matches:     len(rows) - mismatches,
		Mismatches:  mismatches,
		TotalReward: summary.TotalReward,
	})
	if err != nil {
		return err
	}
	logger.Info("replay logged",
		zap.String("source", source),
		zap.String("episode_id", episodeID),
		zap.Int("mismatches", mismatches))
	return nil
}

func divergence(rows []episode.Comparison) error {
	if n := episode.Mismatches(rows); n > 0 {
		return &exitCodeError{code: 1, err: fmt.Errorf("%d of %d steps diverged", n, len(rows))}
	}
	return nil
}

// printComparison outputs the comparison table and a summary line.
func printComparison(out io.Writer, rows []episode.Comparison) {
	fmt.Fprintf(out, "%-12s| %-14s| %-14s| %s\n", "Step", "Expected", "Replayed", "Match")
	fmt.Fprintf(out, "%-12s+%-15s+%-15s+%s\n",
		"------------", "---------------", "---------------", "------")

	for _, r := range rows {
		exp := "-"
		if !math.IsNaN(r.Expected) {
			exp = fmt.Sprintf("%.6f", r.Expected)
		}
		match := "DIFF"
		if r.Match {
			match = "OK"
		}
		fmt.Fprintf(out, "%-12s| %-14s| %-14.6f| %s\n", r.StepID, exp, r.Replayed, match)
	}

	diverge := episode.Mismatches(rows)
	fmt.Fprintf(out, "\nSummary: %d total, %d match, %d diverge\n", len(rows), len(rows)-diverge, diverge)
}

// #endregion helpers
