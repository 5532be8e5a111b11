package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/psync/internal/models"
	"github.com/desertthunder/psync/internal/shared"
)

// TrackRepository implements models.Repository[*models.PersistedTrack] for local track storage.
//
// Tracks are deduplicated by external id via a partial unique index.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new track into the database with generated ID and sequence
func (r *TrackRepository) Create(track *models.PersistedTrack) error {
	sequence, err := NextSequence(r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	track.SetID(id)

	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO tracks (id, sequence, external_id, title, artist, album, duration_seconds, image_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		nullable(track.ExternalID()),
		track.Title(),
		track.Artist(),
		track.Album(),
		track.DurationSeconds(),
		track.ImageRef(),
		track.CreatedAt(),
		track.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	return nil
}

// Get retrieves a track by ID, excluding soft-deleted tracks
func (r *TrackRepository) Get(id string) (*models.PersistedTrack, error) {
	query := `
		SELECT id, sequence, external_id, title, artist, album, duration_seconds, image_ref, created_at, updated_at, deleted_at
		FROM tracks
		WHERE id = ? AND deleted_at IS NULL
	`

	return scanTrack(r.db.QueryRow(query, id).Scan)
}

// GetByExternalID retrieves a track by its remote external id
func (r *TrackRepository) GetByExternalID(externalID string) (*models.PersistedTrack, error) {
	query := `
		SELECT id, sequence, external_id, title, artist, album, duration_seconds, image_ref, created_at, updated_at, deleted_at
		FROM tracks
		WHERE external_id = ? AND deleted_at IS NULL
	`

	return scanTrack(r.db.QueryRow(query, externalID).Scan)
}

// EnsureByExternalID returns the track with the given external id, creating it
// from the DTO when absent. Used during pull syncs to import remote-only tracks.
func (r *TrackRepository) EnsureByExternalID(externalID string, dto models.Track) (*models.PersistedTrack, error) {
	if externalID == "" {
		return nil, fmt.Errorf("%w: external id required", shared.ErrInvalidInput)
	}

	existing, err := r.GetByExternalID(externalID)
	if err == nil {
		return existing, nil
	}

	dto.ExternalID = externalID
	track := models.NewPersistedTrack(0, dto)
	if err := r.Create(track); err != nil {
		// Lost a race against a concurrent insert: the unique index holds, re-read.
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return r.GetByExternalID(externalID)
		}
		return nil, fmt.Errorf("failed to ensure track: %w", err)
	}

	return track, nil
}

// Update modifies an existing track in the database
func (r *TrackRepository) Update(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	track.SetUpdatedAt(now)

	query := `
		UPDATE tracks
		SET external_id = ?, title = ?, artist = ?, album = ?, duration_seconds = ?, image_ref = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		nullable(track.ExternalID()),
		track.Title(),
		track.Artist(),
		track.Album(),
		track.DurationSeconds(),
		track.ImageRef(),
		now,
		track.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, track.ID())
	}

	return nil
}

// Delete soft-deletes a track by ID
func (r *TrackRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE tracks
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}

	return nil
}

// List retrieves all tracks matching the given criteria, excluding soft-deleted tracks
func (r *TrackRepository) List(criteria map[string]any) ([]*models.PersistedTrack, error) {
	query := `
		SELECT id, sequence, external_id, title, artist, album, duration_seconds, image_ref, created_at, updated_at, deleted_at
		FROM tracks
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if artist, ok := criteria["artist"].(string); ok && artist != "" {
		query += " AND artist = ?"
		args = append(args, artist)
	}

	if syncable, ok := criteria["syncable"].(bool); ok && syncable {
		query += " AND external_id IS NOT NULL"
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
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

// scanTrack scans a track row via the given scan function
func scanTrack(scan func(dest ...any) error) (*models.PersistedTrack, error) {
	var (
		id              string
		sequence        int
		externalID      sql.NullString
		title           string
		artist          string
		album           string
		durationSeconds int
		imageRef        string
		createdAt       time.Time
		updatedAt       time.Time
		deletedAt       sql.NullTime
	)

	err := scan(&id, &sequence, &externalID, &title, &artist, &album, &durationSeconds, &imageRef, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	dto := models.Track{
		ExternalID:      externalID.String,
		Title:           title,
		Artist:          artist,
		Album:           album,
		DurationSeconds: durationSeconds,
		ImageRef:        imageRef,
	}

	track := models.NewPersistedTrack(sequence, dto)
	track.SetID(id)
	track.SetCreatedAt(createdAt)
	track.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		track.SetDeletedAt(&deletedAt.Time)
	}

	return track, nil
}
