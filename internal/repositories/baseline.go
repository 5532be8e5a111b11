package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/psync/internal/models"
)

// BaselineRepository persists sync baselines, one row per playlist.
//
// A baseline is written as a single UPSERT so it always reflects a fully
// successful reconciliation, never a partial one.
type BaselineRepository struct {
	db *sql.DB
}

// NewBaselineRepository creates a new BaselineRepository with the given database connection
func NewBaselineRepository(db *sql.DB) *BaselineRepository {
	return &BaselineRepository{db: db}
}

// Get retrieves the baseline for a playlist, or nil when no sync has completed yet.
func (r *BaselineRepository) Get(playlistID string) (*models.Baseline, error) {
	query := `
		SELECT playlist_id, remote_id, synced_name, synced_description, synced_track_ids, synced_at
		FROM baselines
		WHERE playlist_id = ?
	`

	var (
		plID        string
		remoteID    string
		name        string
		description string
		trackIDsRaw string
		syncedAt    time.Time
	)

	err := r.db.QueryRow(query, playlistID).Scan(&plID, &remoteID, &name, &description, &trackIDsRaw, &syncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query baseline: %w", err)
	}

	var trackIDs []string
	if err := json.Unmarshal([]byte(trackIDsRaw), &trackIDs); err != nil {
		return nil, fmt.Errorf("failed to decode baseline track ids: %w", err)
	}

	return models.NewBaseline(plID, remoteID, name, description, trackIDs, syncedAt), nil
}

// Put writes the baseline for a playlist, replacing any previous snapshot.
func (r *BaselineRepository) Put(baseline *models.Baseline) error {
	if err := baseline.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	trackIDs, err := json.Marshal(baseline.TrackIDs())
	if err != nil {
		return fmt.Errorf("failed to encode baseline track ids: %w", err)
	}

	query := `
		INSERT INTO baselines (playlist_id, remote_id, synced_name, synced_description, synced_track_ids, synced_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (playlist_id) DO UPDATE SET
			remote_id = excluded.remote_id,
			synced_name = excluded.synced_name,
			synced_description = excluded.synced_description,
			synced_track_ids = excluded.synced_track_ids,
			synced_at = excluded.synced_at
	`

	_, err = r.db.Exec(query,
		baseline.PlaylistID(),
		baseline.RemoteID(),
		baseline.Name(),
		baseline.Description(),
		string(trackIDs),
		baseline.SyncedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to write baseline: %w", err)
	}

	return nil
}

// Delete removes the baseline for a playlist. Missing rows are not an error.
func (r *BaselineRepository) Delete(playlistID string) error {
	if _, err := r.db.Exec(`DELETE FROM baselines WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("failed to delete baseline: %w", err)
	}
	return nil
}
