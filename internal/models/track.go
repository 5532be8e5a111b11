package models

import (
	"fmt"
	"time"
)

// Track is the metadata DTO for a song.
//
// ExternalID is the remote service's track id. A track without an external id
// is local-only and cannot participate in remote sync until one is assigned.
type Track struct {
	ID              string
	ExternalID      string
	Title           string
	Artist          string
	Album           string
	DurationSeconds int
	ImageRef        string
}

// PersistedTrack is a locally stored track, deduplicated by external id.
type PersistedTrack struct {
	id        string
	sequence  int
	dto       Track
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPersistedTrack creates a new track entity from a metadata DTO.
func NewPersistedTrack(sequence int, dto Track) *PersistedTrack {
	now := time.Now()
	return &PersistedTrack{
		sequence:  sequence,
		dto:       dto,
		createdAt: now,
		updatedAt: now,
	}
}

func (t *PersistedTrack) ID() string            { return t.id }
func (t *PersistedTrack) Sequence() int         { return t.sequence }
func (t *PersistedTrack) ExternalID() string    { return t.dto.ExternalID }
func (t *PersistedTrack) Title() string         { return t.dto.Title }
func (t *PersistedTrack) Artist() string        { return t.dto.Artist }
func (t *PersistedTrack) Album() string         { return t.dto.Album }
func (t *PersistedTrack) DurationSeconds() int  { return t.dto.DurationSeconds }
func (t *PersistedTrack) ImageRef() string      { return t.dto.ImageRef }
func (t *PersistedTrack) CreatedAt() time.Time  { return t.createdAt }
func (t *PersistedTrack) UpdatedAt() time.Time  { return t.updatedAt }
func (t *PersistedTrack) DeletedAt() *time.Time { return t.deletedAt }

// Syncable reports whether this track can participate in remote sync.
func (t *PersistedTrack) Syncable() bool { return t.dto.ExternalID != "" }

// DTO returns the track metadata as a [Track] value.
func (t *PersistedTrack) DTO() Track {
	dto := t.dto
	dto.ID = t.id
	return dto
}

func (t *PersistedTrack) SetID(id string)              { t.id = id }
func (t *PersistedTrack) SetExternalID(externalID string) { t.dto.ExternalID = externalID }
func (t *PersistedTrack) SetUpdatedAt(ts time.Time)    { t.updatedAt = ts }
func (t *PersistedTrack) SetDeletedAt(ts *time.Time)   { t.deletedAt = ts }
func (t *PersistedTrack) SetCreatedAt(ts time.Time)    { t.createdAt = ts }

// Validate checks if the track's data is valid.
func (t *PersistedTrack) Validate() error {
	if t.dto.Title == "" {
		return fmt.Errorf("track title is required")
	}
	if t.dto.DurationSeconds < 0 {
		return fmt.Errorf("track duration cannot be negative")
	}
	return nil
}
