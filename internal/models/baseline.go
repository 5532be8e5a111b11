package models

import (
	"fmt"
	"time"
)

// Baseline is the last fully successful sync snapshot for a playlist.
//
// It records the remote id, metadata, and ordered track external ids as they
// stood when local and remote were last known to agree, and serves as the
// pivot for three-way diffing. A baseline is only ever written whole: a
// partially applied sync never commits one.
type Baseline struct {
	playlistID  string
	remoteID    string
	name        string
	description string
	trackIDs    []string // ordered remote track external ids
	syncedAt    time.Time
}

// NewBaseline creates a baseline snapshot for a playlist.
func NewBaseline(playlistID, remoteID, name, description string, trackIDs []string, syncedAt time.Time) *Baseline {
	ids := make([]string, len(trackIDs))
	copy(ids, trackIDs)
	return &Baseline{
		playlistID:  playlistID,
		remoteID:    remoteID,
		name:        name,
		description: description,
		trackIDs:    ids,
		syncedAt:    syncedAt,
	}
}

func (b *Baseline) PlaylistID() string  { return b.playlistID }
func (b *Baseline) RemoteID() string    { return b.remoteID }
func (b *Baseline) Name() string        { return b.name }
func (b *Baseline) Description() string { return b.description }
func (b *Baseline) SyncedAt() time.Time { return b.syncedAt }

// TrackIDs returns the ordered track external ids recorded at sync time.
func (b *Baseline) TrackIDs() []string {
	ids := make([]string, len(b.trackIDs))
	copy(ids, b.trackIDs)
	return ids
}

// TrackSet returns the recorded track ids as a membership set.
func (b *Baseline) TrackSet() map[string]struct{} {
	set := make(map[string]struct{}, len(b.trackIDs))
	for _, id := range b.trackIDs {
		set[id] = struct{}{}
	}
	return set
}

// Validate checks if the baseline's data is valid.
func (b *Baseline) Validate() error {
	if b.playlistID == "" {
		return fmt.Errorf("baseline playlist id is required")
	}
	if b.remoteID == "" {
		return fmt.Errorf("baseline remote id is required")
	}
	if b.syncedAt.IsZero() {
		return fmt.Errorf("baseline sync time is required")
	}
	return nil
}
