package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/psync/internal/models"
	"github.com/desertthunder/psync/internal/shared"
)

// PlaylistRepository implements models.Repository[*models.PersistedPlaylist] for local playlist copies.
//
// Handles playlist CRUD with soft delete support, remote-id binding, and ordered track membership.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist into the database with generated ID and sequence
func (r *PlaylistRepository) Create(playlist *models.PersistedPlaylist) error {
	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	playlist.SetID(id)

	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO playlists (id, sequence, name, description, image_ref, public, collaborative, remote_id, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		playlist.Name(),
		playlist.Description(),
		playlist.ImageRef(),
		playlist.Public(),
		playlist.Collaborative(),
		nullable(playlist.RemoteID()),
		playlist.Version(),
		playlist.CreatedAt(),
		playlist.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.PersistedPlaylist, error) {
	query := `
		SELECT id, sequence, name, description, image_ref, public, collaborative, remote_id, version, created_at, updated_at, deleted_at
		FROM playlists
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByRemoteID retrieves the playlist currently bound to the given remote id
func (r *PlaylistRepository) GetByRemoteID(remoteID string) (*models.PersistedPlaylist, error) {
	query := `
		SELECT id, sequence, name, description, image_ref, public, collaborative, remote_id, version, created_at, updated_at, deleted_at
		FROM playlists
		WHERE remote_id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, remoteID))
}

// Update modifies an existing playlist in the database
func (r *PlaylistRepository) Update(playlist *models.PersistedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	playlist.SetUpdatedAt(now)

	query := `
		UPDATE playlists
		SET name = ?, description = ?, image_ref = ?, public = ?, collaborative = ?, remote_id = ?, version = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		playlist.Name(),
		playlist.Description(),
		playlist.ImageRef(),
		playlist.Public(),
		playlist.Collaborative(),
		nullable(playlist.RemoteID()),
		playlist.Version(),
		now,
		playlist.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlist.ID())
	}

	return nil
}

// Delete soft-deletes a playlist by ID and removes its track memberships
func (r *PlaylistRepository) Delete(id string) error {
	now := time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE playlists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	if _, err := tx.Exec(`DELETE FROM playlist_tracks WHERE playlist_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear playlist tracks: %w", err)
	}

	return tx.Commit()
}

// List retrieves all playlists matching the given criteria, excluding soft-deleted playlists
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.PersistedPlaylist, error) {
	query := `
		SELECT id, sequence, name, description, image_ref, public, collaborative, remote_id, version, created_at, updated_at, deleted_at
		FROM playlists
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND name = ?"
		args = append(args, name)
	}

	if linked, ok := criteria["linked"].(bool); ok {
		if linked {
			query += " AND remote_id IS NOT NULL"
		} else {
			query += " AND remote_id IS NULL"
		}
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.PersistedPlaylist
	for rows.Next() {
		playlist, err := scanPlaylist(rows.Scan)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// Tracks returns the playlist's tracks in their stored order.
func (r *PlaylistRepository) Tracks(playlistID string) ([]*models.PersistedTrack, error) {
	query := `
		SELECT t.id, t.sequence, t.external_id, t.title, t.artist, t.album, t.duration_seconds, t.image_ref, t.created_at, t.updated_at, t.deleted_at
		FROM playlist_tracks pt
		JOIN tracks t ON t.id = pt.track_id
		WHERE pt.playlist_id = ? AND t.deleted_at IS NULL
		ORDER BY pt.position ASC
	`

	rows, err := r.db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.PersistedTrack
	for rows.Next() {
		track, err := scanTrack(rows.Scan)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// SetTracks replaces the playlist's track membership with the given ordered track ids.
//
// The rewrite happens in one transaction so readers never observe a half-replaced list.
func (r *PlaylistRepository) SetTracks(playlistID string, trackIDs []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM playlist_tracks WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("failed to clear playlist tracks: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for position, trackID := range trackIDs {
		if _, err := stmt.Exec(playlistID, trackID, position); err != nil {
			return fmt.Errorf("failed to insert playlist track at position %d: %w", position, err)
		}
	}

	return tx.Commit()
}

// scanPlaylist scans a playlist row via the given scan function
func scanPlaylist(scan func(dest ...any) error) (*models.PersistedPlaylist, error) {
	var (
		id            string
		sequence      int
		name          string
		description   string
		imageRef      string
		public        bool
		collaborative bool
		remoteID      sql.NullString
		version       int
		createdAt     time.Time
		updatedAt     time.Time
		deletedAt     sql.NullTime
	)

	err := scan(&id, &sequence, &name, &description, &imageRef, &public, &collaborative, &remoteID, &version, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	dto := models.Playlist{
		Name:          name,
		Description:   description,
		ImageRef:      imageRef,
		Public:        public,
		Collaborative: collaborative,
	}

	playlist := models.NewPersistedPlaylist(sequence, dto)
	playlist.SetID(id)
	playlist.SetVersion(version)
	playlist.SetCreatedAt(createdAt)
	playlist.SetUpdatedAt(updatedAt)
	if remoteID.Valid {
		playlist.SetRemoteID(remoteID.String)
	}
	if deletedAt.Valid {
		playlist.SetDeletedAt(&deletedAt.Time)
	}

	return playlist, nil
}

// scanOne scans a single row into a [models.PersistedPlaylist]
func (r *PlaylistRepository) scanOne(row *sql.Row) (*models.PersistedPlaylist, error) {
	return scanPlaylist(row.Scan)
}

// nullable converts an empty string to a NULL for storage.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
