package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an episode does not exist.
var ErrNotFound = errors.New("not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS episodes (
	episode_id    TEXT PRIMARY KEY,
	track         TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS step_rewards (
	episode_id    TEXT NOT NULL,
	step          INTEGER NOT NULL,
	snapshot_json TEXT NOT NULL,
	reward        REAL NOT NULL,
	progress      REAL NOT NULL,
	created_at    TEXT NOT NULL,
	PRIMARY KEY (episode_id, step),
	FOREIGN KEY (episode_id) REFERENCES episodes(episode_id)
);

CREATE TABLE IF NOT EXISTS replay_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	source        TEXT NOT NULL,
	episode_id    TEXT,
	total_steps   INTEGER NOT NULL,
	matches       INTEGER NOT NULL,
	mismatches    INTEGER NOT NULL,
	total_reward  REAL NOT NULL,
	note          TEXT,
	created_at    TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct
// Store records scored episodes in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region create-episode
// CreateEpisode starts a new episode on the named track.
func (s *Store) CreateEpisode(track string) (Episode, error) {
	ep := Episode{
		EpisodeID: uuid.New().String(),
		Track:     track,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO episodes (episode_id, track, created_at) VALUES (?, ?, ?)`,
		ep.EpisodeID, ep.Track, ep.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Episode{}, fmt.Errorf("insert episode: %w", err)
	}
	return ep, nil
}

// #endregion create-episode

// #region record-step
// RecordStep stores a scored step. Re-recording the same step replaces it.
func (s *Store) RecordStep(rec StepRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	snapJSON, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(
		`SELECT COUNT(*) FROM episodes WHERE episode_id = ?`, rec.EpisodeID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check episode: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("episode %s: %w", rec.EpisodeID, ErrNotFound)
	}

	_, err = tx.Exec(
		`INSERT INTO step_rewards (episode_id, step, snapshot_json, reward, progress, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(episode_id, step) DO UPDATE SET
			snapshot_json = excluded.snapshot_json,
			reward = excluded.reward,
			progress = excluded.progress,
			created_at = excluded.created_at`,
		rec.EpisodeID, rec.Step, string(snapJSON), rec.Reward, rec.Snapshot.Progress,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert step: %w", err)
	}
	return tx.Commit()
}

// #endregion record-step

// #region get-episode
// GetEpisode retrieves an episode by ID.
func (s *Store) GetEpisode(id string) (Episode, error) {
	var ep Episode
	var createdStr string
	err := s.db.QueryRow(
		`SELECT episode_id, track, created_at FROM episodes WHERE episode_id = ?`, id,
	).Scan(&ep.EpisodeID, &ep.Track, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return Episode{}, fmt.Errorf("get episode %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Episode{}, fmt.Errorf("get episode %s: %w", id, err)
	}
	ep.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return ep, nil
}

// #endregion get-episode

// #region steps
// Steps returns the recorded steps of an episode in step order.
func (s *Store) Steps(episodeID string) ([]StepRecord, error) {
	rows, err := s.db.Query(
		`SELECT episode_id, step, snapshot_json, reward, created_at
		 FROM step_rewards WHERE episode_id = ? ORDER BY step ASC`, episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var records []StepRecord
	for rows.Next() {
		var rec StepRecord
		var snapJSON, createdStr string
		if err := rows.Scan(&rec.EpisodeID, &rec.Step, &snapJSON, &rec.Reward, &createdStr); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if err := json.Unmarshal([]byte(snapJSON), &rec.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot step %d: %w", rec.Step, err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion steps

// #region list-episodes
// ListEpisodes returns the most recent episodes with step aggregates.
func (s *Store) ListEpisodes(limit int) ([]EpisodeWithStats, error) {
	rows, err := s.db.Query(
		`SELECT e.episode_id, e.track, e.created_at,
			COUNT(r.step), COALESCE(SUM(r.reward), 0), COALESCE(MAX(r.progress), 0)
		 FROM episodes e
		 LEFT JOIN step_rewards r ON r.episode_id = e.episode_id
		 GROUP BY e.episode_id
		 ORDER BY e.created_at DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var out []EpisodeWithStats
	for rows.Next() {
		var ep EpisodeWithStats
		var createdStr string
		if err := rows.Scan(&ep.EpisodeID, &ep.Track, &createdStr, &ep.StepCount, &ep.TotalReward, &ep.MaxProgress); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ep.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, ep)
	}
	return out, rows.Err()
}

// #endregion list-episodes
