package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/trackreward/go-controller/internal/episode"
	"github.com/danielpatrickdp/trackreward/go-controller/internal/store"
)

var (
	inspectLast    int
	inspectEpisode string
	inspectJSON    bool

	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "List recorded episodes or show one episode in detail",
		Args:  cobra.NoArgs,
		RunE:  runInspect,
	}
)

func init() {
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N most recent episodes")
	inspectCmd.Flags().StringVar(&inspectEpisode, "episode", "", "show single episode detail")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON instead of table")
}

func runInspect(cmd *cobra.Command, _ []string) error {
	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return &exitCodeError{code: 2, err: err}
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if inspectEpisode != "" {
		err = runDetailMode(out, st, inspectEpisode)
	} else {
		err = runListMode(out, st)
	}
	if err != nil {
		return &exitCodeError{code: 2, err: err}
	}
	return nil
}

// #region list-mode

type listRow struct {
	EpisodeID   string  `json:"episode_id"`
	Track       string  `json:"track"`
	Steps       int     `json:"steps"`
	TotalReward float64 `json:"total_reward"`
	MaxProgress float64 `json:"max_progress"`
	CreatedAt   string  `json:"created_at"`
}

func runListMode(out io.Writer, st *store.Store) error {
	episodes, err := st.ListEpisodes(inspectLast)
	if err != nil {
		return err
	}
	if len(episodes) == 0 {
		fmt.Fprintln(out, "no episodes found")
		return nil
	}

	// store returns DESC, reverse for chronological
	rows := make([]listRow, len(episodes))
	for i, e := range episodes {
		rows[len(episodes)-1-i] = listRow{
			EpisodeID:   e.EpisodeID,
			Track:       e.Track,
			Steps:       e.StepCount,
			TotalReward: e.TotalReward,
			MaxProgress: e.MaxProgress,
			CreatedAt:   e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if inspectJSON {
		return printJSON(out, rows)
	}
	fmt.Fprintf(out, "%-10s  %-16s  %6s  %12s  %8s  %s\n", "Episode", "Track", "Steps", "Return", "Progress", "Time")
	fmt.Fprintf(out, "%-10s+-%-16s+-%6s+-%12s+-%8s+-%s\n",
		"----------", "----------------", "------", "------------", "--------", "--------------------")
	for _, r := range rows {
		fmt.Fprintf(out, "%-10s  %-16s  %6d  %12.4f  %8.2f  %s\n",
			shortID(r.EpisodeID), r.Track, r.Steps, r.TotalReward, r.MaxProgress, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	EpisodeID string          `json:"episode_id"`
	Track     string          `json:"track"`
	CreatedAt string          `json:"created_at"`
	Summary   episode.Summary `json:"summary"`
	Steps     []detailStep    `json:"steps"`
}

type detailStep struct {
	Step     int     `json:"step"`
	Progress float64 `json:"progress"`
	Speed    float64 `json:"speed"`
	OnTrack  bool    `json:"on_track"`
	Reward   float64 `json:"reward"`
	Return   float64 `json:"return"`
}

func runDetailMode(out io.Writer, st *store.Store, id string) error {
	ep, err := st.GetEpisode(id)
	if err != nil {
		return err
	}
	records, err := st.Steps(id)
	if err != nil {
		return err
	}

	results := make([]episode.StepResult, len(records))
	steps := make([]detailStep, len(records))
	var ret float64
	for i, r := range records {
		ret += r.Reward
		results[i] = episode.StepResult{Snapshot: r.Snapshot, Reward: r.Reward, Return: ret}
		steps[i] = detailStep{
			Step:     r.Step,
			Progress: r.Snapshot.Progress,
			Speed:    r.Snapshot.Speed,
			OnTrack:  r.Snapshot.AllWheelsOnTrack,
			Reward:   r.Reward,
			Return:   ret,
		}
	}

	d := detailOutput{
		EpisodeID: ep.EpisodeID,
		Track:     ep.Track,
		CreatedAt: ep.CreatedAt.Format("2006-01-02T15:04:05Z"),
		Summary:   episode.Summarize(results),
		Steps:     steps,
	}
	if inspectJSON {
		return printJSON(out, d)
	}

	s := d.Summary
	fmt.Fprintf(out, "Episode:    %s\n", d.EpisodeID)
	fmt.Fprintf(out, "Track:      %s\n", d.Track)
	fmt.Fprintf(out, "Created:    %s\n", d.CreatedAt)
	fmt.Fprintf(out, "Steps:      %d (off track %d, laps %d)\n", s.TotalSteps, s.OffTrackSteps, s.LapCompletions)
	fmt.Fprintf(out, "Return:     %.4f\n", s.TotalReward)
	fmt.Fprintf(out, "Reward:     mean %.4f  std %.4f  min %.4f  max %.4f\n", s.MeanReward, s.StdDevReward, s.MinReward, s.MaxReward)
	fmt.Fprintf(out, "Progress:   %.2f\n\n", s.FinalProgress)

	fmt.Fprintf(out, "%6s  %8s  %6s  %-5s  %12s  %12s\n", "Step", "Progress", "Speed", "Track", "Reward", "Return")
	for _, r := range steps {
		on := "on"
		if !r.OnTrack {
			on = "off"
		}
		fmt.Fprintf(out, "%6d  %8.2f  %6.2f  %-5s  %12.6f  %12.4f\n", r.Step, r.Progress, r.Speed, on, r.Reward, r.Return)
	}
	return nil
}

// #endregion detail-mode

// #region helpers
func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion helpers
