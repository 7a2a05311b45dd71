package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/trackreward/go-controller/internal/episode"
	"github.com/danielpatrickdp/trackreward/go-controller/internal/reward"
	"github.com/danielpatrickdp/trackreward/go-controller/internal/store"
)

// execute runs the root command against a scratch database.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return executeDB(t, filepath.Join(t.TempDir(), "cli.db"), stdin, args...)
}

// executeDB runs the root command against the database at db.
func executeDB(t *testing.T, db, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TRACKREWARD_DB", db)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer resetFlags()
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags() {
	evalExplain, evalJSON = false, false
	replayFixture, replayEpisode, replayLast, replayLog = "", "", 0, false
	inspectLast, inspectEpisode, inspectJSON = 20, "", false
	exportEpisode, exportOut = "", ""
}

// seedEpisode records steps scored by reward.Evaluate and returns the episode ID.
func seedEpisode(t *testing.T, db string, snaps ...reward.Snapshot) string {
	t.Helper()
	st, err := store.NewStore(db)
	require.NoError(t, err)
	defer st.Close()

	ep, err := st.CreateEpisode("reinvent2018")
	require.NoError(t, err)
	for i, sn := range snaps {
		require.NoError(t, st.RecordStep(store.StepRecord{
			EpisodeID: ep.EpisodeID,
			Step:      i + 1,
			Snapshot:  sn,
			Reward:    reward.Evaluate(sn),
		}))
	}
	return ep.EpisodeID
}

func lapSnapshots() []reward.Snapshot {
	return []reward.Snapshot{
		{TrackWidth: 1, DistanceFromCenter: 0.05, Speed: 3.6, Progress: 40, Steps: 60, AllWheelsOnTrack: true, Heading: 10, TrackHeading: 12, TimeElapsed: 4, IsLeftOfCenter: true},
		{TrackWidth: 1, DistanceFromCenter: 0.4, Speed: 2.5, Progress: 70, Steps: 100, AllWheelsOnTrack: false, SteeringAngle: 25, Heading: 30, TrackHeading: 10, TimeElapsed: 7},
		{TrackWidth: 1, DistanceFromCenter: 0.02, Speed: 3.2, Progress: 100, Steps: 140, AllWheelsOnTrack: true, SteeringAngle: -3, Heading: 0, TrackHeading: 20, TimeElapsed: 10.5, IsLeftOfCenter: true},
	}
}

func exitCode(err error) int {
	var ee *exitCodeError
	if errors.As(err, &ee) {
		return ee.code
	}
	return -1
}

const straightParams = `{"track_width":1.0,"distance_from_center":0.05,"speed":3.6,"progress":50,"steps":100,
"all_wheels_on_track":true,"steering_angle":0,"heading":10,"track_heading":12,"time":5,"is_left_of_center":false}`

func TestEvalStdin(t *testing.T) {
	out, err := execute(t, straightParams, "eval")
	require.NoError(t, err)

	var want reward.Snapshot
	require.NoError(t, want.UnmarshalJSON([]byte(straightParams)))
	got, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	require.NoError(t, err)
	assert.InDelta(t, reward.Evaluate(want), got, 1e-9)
}

func TestEvalExplainTable(t *testing.T) {
	out, err := execute(t, straightParams, "eval", "--explain")
	require.NoError(t, err)
	assert.Contains(t, out, reward.StageCenterline)
	assert.Contains(t, out, reward.StageFloor)
	assert.Contains(t, out, "Reward:")
}

func TestEvalMissingField(t *testing.T) {
	_, err := execute(t, `{"speed":1}`, "eval")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.ErrorIs(t, err, reward.ErrMissingField)
}

func TestReplayFixtureMatches(t *testing.T) {
	out, err := execute(t, "", "replay", "--fixture", filepath.Join("..", "..", "internal", "episode", "testdata", "lap.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "0 diverge")
}

func TestReplayNeedsOneMode(t *testing.T) {
	_, err := execute(t, "", "replay")
	assert.Equal(t, 2, exitCode(err))
}

func TestFromRecords(t *testing.T) {
	snap := reward.Snapshot{TrackWidth: 1, Speed: 2, Progress: 10, Steps: 4, AllWheelsOnTrack: true}
	records := []store.StepRecord{
		{EpisodeID: "ep", Step: 3, Snapshot: snap, Reward: 1.25},
		{EpisodeID: "ep", Step: 4, Snapshot: snap, Reward: 2.5},
	}
	ep, expected := fromRecords("ep", records)
	assert.Equal(t, "ep", ep.ID)
	require.Len(t, ep.Steps, 2)
	assert.Equal(t, "3", ep.Steps[0].StepID)
	assert.Equal(t, snap, ep.Steps[1].Snapshot)
	assert.Equal(t, []float64{1.25, 2.5}, expected)
}

func TestDivergenceExitCode(t *testing.T) {
	assert.NoError(t, divergence([]episode.Comparison{{StepID: "1", Match: true}}))
	err := divergence([]episode.Comparison{{StepID: "1", Match: true}, {StepID: "2"}})
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, err.Error(), "1 of 2")
}

func TestReplayUnknownEpisode(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	seedEpisode(t, db, lapSnapshots()...)

	_, err := executeDB(t, db, "", "replay", "--episode", "does-not-exist")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReplayEpisodeWithoutSteps(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	id := seedEpisode(t, db)

	_, err := executeDB(t, db, "", "replay", "--episode", id)
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.Contains(t, err.Error(), "no steps")
}

func TestReplayRecordedEpisode(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	id := seedEpisode(t, db, lapSnapshots()...)

	out, err := executeDB(t, db, "", "replay", "--episode", id)
	require.NoError(t, err)
	assert.Contains(t, out, "3 total, 3 match, 0 diverge")
}

func TestReplayLastSkipsEmptyEpisodes(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	seedEpisode(t, db, lapSnapshots()...)
	seedEpisode(t, db)

	out, err := executeDB(t, db, "", "replay", "--last", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "3 total, 3 match, 0 diverge")
}

func TestExportThenReplayFixture(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cli.db")
	id := seedEpisode(t, db, lapSnapshots()...)

	for _, name := range []string{"episode.yaml", "episode.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			out, err := executeDB(t, db, "", "export", "--episode", id, "--out", path)
			require.NoError(t, err)
			assert.Contains(t, out, "Exported 3 steps")

			f, err := episode.LoadFixture(path)
			require.NoError(t, err)
			assert.Equal(t, "reinvent2018", f.Track)
			require.Len(t, f.Steps, 3)
			for i, sn := range lapSnapshots() {
				require.NotNil(t, f.Steps[i].ExpectedReward)
				assert.Equal(t, reward.Evaluate(sn), *f.Steps[i].ExpectedReward)
			}

			out, err = executeDB(t, db, "", "replay", "--fixture", path)
			require.NoError(t, err)
			assert.Contains(t, out, "3 total, 3 match, 0 diverge")
		})
	}
}

func TestExportUsesRecordedRewards(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cli.db")
	st, err := store.NewStore(db)
	require.NoError(t, err)
	ep, err := st.CreateEpisode("oval")
	require.NoError(t, err)
	sn := lapSnapshots()[0]
	require.NoError(t, st.RecordStep(store.StepRecord{EpisodeID: ep.EpisodeID, Step: 1, Snapshot: sn, Reward: 42}))
	require.NoError(t, st.Close())

	path := filepath.Join(dir, "stale.json")
	_, err = executeDB(t, db, "", "export", "--episode", ep.EpisodeID, "--out", path)
	require.NoError(t, err)

	_, err = executeDB(t, db, "", "replay", "--fixture", path)
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
}

func TestExportUnknownEpisode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.json")
	_, err := execute(t, "", "export", "--episode", "does-not-exist", "--out", path)
	assert.Equal(t, 2, exitCode(err))
}

func TestInspectListJSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	id := seedEpisode(t, db, lapSnapshots()...)

	out, err := executeDB(t, db, "", "inspect", "--json")
	require.NoError(t, err)

	var rows []listRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].EpisodeID)
	assert.Equal(t, 3, rows[0].Steps)
	assert.Equal(t, 100.0, rows[0].MaxProgress)

	var total float64
	for _, sn := range lapSnapshots() {
		total += reward.Evaluate(sn)
	}
	assert.InDelta(t, total, rows[0].TotalReward, 1e-9)
}

func TestInspectListEmpty(t *testing.T) {
	out, err := execute(t, "", "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "no episodes found")
}

func TestInspectDetailJSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	id := seedEpisode(t, db, lapSnapshots()...)

	out, err := executeDB(t, db, "", "inspect", "--episode", id, "--json")
	require.NoError(t, err)

	var d detailOutput
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, id, d.EpisodeID)
	assert.Equal(t, 3, d.Summary.TotalSteps)
	assert.Equal(t, 1, d.Summary.OffTrackSteps)
	assert.Equal(t, 1, d.Summary.LapCompletions)
	assert.Equal(t, 100.0, d.Summary.FinalProgress)
	require.Len(t, d.Steps, 3)
	assert.False(t, d.Steps[1].OnTrack)
	assert.InDelta(t, d.Summary.TotalReward, d.Steps[2].Return, 1e-9)
}

func TestInspectUnknownEpisode(t *testing.T) {
	_, err := execute(t, "", "inspect", "--episode", "does-not-exist")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.ErrorIs(t, err, store.ErrNotFound)
}
