package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/trackreward/go-controller/internal/episode"
	"github.com/danielpatrickdp/trackreward/go-controller/internal/store"
)

var (
	exportEpisode string
	exportOut     string

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export a recorded episode as a replay fixture",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
)

func init() {
	exportCmd.Flags().StringVar(&exportEpisode, "episode", "", "episode ID to export")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output fixture path (.json, .yaml)")
	_ = exportCmd.MarkFlagRequired("episode")
	_ = exportCmd.MarkFlagRequired("out")
}

// #region export
func runExport(cmd *cobra.Command, _ []string) error {
	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return &exitCodeError{code: 2, err: err}
	}
	defer st.Close()

	ep, err := st.GetEpisode(exportEpisode)
	if err != nil {
		return &exitCodeError{code: 2, err: err}
	}
	records, err := st.Steps(ep.EpisodeID)
	if err != nil {
		return &exitCodeError{code: 2, err: err}
	}
	if len(records) == 0 {
		return &exitCodeError{code: 2, err: fmt.Errorf("episode %s has no steps", ep.EpisodeID)}
	}

	// expectations are the rewards recorded at the time, not re-evaluated ones
	results := make([]episode.StepResult, len(records))
	for i, r := range records {
		results[i] = episode.StepResult{StepID: strconv.Itoa(r.Step), Snapshot: r.Snapshot, Reward: r.Reward}
	}
	desc := fmt.Sprintf("exported from episode %s (%d steps)", ep.EpisodeID, len(records))
	f := episode.FromResults(desc, ep.Track, results)

	var data []byte
	switch strings.ToLower(filepath.Ext(exportOut)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(f)
	default:
		data, err = json.MarshalIndent(f, "", "  ")
	}
	if err != nil {
		return &exitCodeError{code: 2, err: fmt.Errorf("marshal fixture: %w", err)}
	}
	if err := os.WriteFile(exportOut, data, 0o644); err != nil {
		return &exitCodeError{code: 2, err: fmt.Errorf("write fixture: %w", err)}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d steps to %s\n", len(records), exportOut)
	return nil
}

// #endregion export
