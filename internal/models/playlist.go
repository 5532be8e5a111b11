package models

import (
	"fmt"
	"time"
)

// Playlist is the metadata DTO for a playlist, local or remote.
type Playlist struct {
	ID            string
	Name          string
	Description   string
	ImageRef      string // Cover source: URL, data URI, or local path
	Public        bool
	Collaborative bool
	TrackCount    int
}

// PersistedPlaylist is the locally editable playlist copy.
//
// A playlist may be bound to at most one remote playlist at a time via its
// remote id. The binding is cleared when the remote copy is confirmed deleted
// or dropped from the owning account's library, and re-established on recreate.
type PersistedPlaylist struct {
	id        string
	sequence  int
	remoteID  string // empty means not bound to a remote playlist
	version   int
	dto       Playlist
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPersistedPlaylist creates a new playlist entity from a metadata DTO.
func NewPersistedPlaylist(sequence int, dto Playlist) *PersistedPlaylist {
	now := time.Now()
	return &PersistedPlaylist{
		sequence:  sequence,
		dto:       dto,
		createdAt: now,
		updatedAt: now,
	}
}

func (p *PersistedPlaylist) ID() string            { return p.id }
func (p *PersistedPlaylist) Sequence() int         { return p.sequence }
func (p *PersistedPlaylist) RemoteID() string      { return p.remoteID }
func (p *PersistedPlaylist) Version() int          { return p.version }
func (p *PersistedPlaylist) Name() string          { return p.dto.Name }
func (p *PersistedPlaylist) Description() string   { return p.dto.Description }
func (p *PersistedPlaylist) ImageRef() string      { return p.dto.ImageRef }
func (p *PersistedPlaylist) Public() bool          { return p.dto.Public }
func (p *PersistedPlaylist) Collaborative() bool   { return p.dto.Collaborative }
func (p *PersistedPlaylist) CreatedAt() time.Time  { return p.createdAt }
func (p *PersistedPlaylist) UpdatedAt() time.Time  { return p.updatedAt }
func (p *PersistedPlaylist) DeletedAt() *time.Time { return p.deletedAt }

// HasRemote reports whether this playlist is currently bound to a remote playlist.
func (p *PersistedPlaylist) HasRemote() bool { return p.remoteID != "" }

// DTO returns the playlist metadata as a [Playlist] value.
func (p *PersistedPlaylist) DTO() Playlist { return p.dto }

func (p *PersistedPlaylist) SetID(id string)              { p.id = id }
func (p *PersistedPlaylist) SetName(name string)          { p.dto.Name = name }
func (p *PersistedPlaylist) SetDescription(desc string)   { p.dto.Description = desc }
func (p *PersistedPlaylist) SetImageRef(ref string)       { p.dto.ImageRef = ref }
func (p *PersistedPlaylist) SetPublic(public bool)        { p.dto.Public = public }
func (p *PersistedPlaylist) SetCollaborative(c bool)      { p.dto.Collaborative = c }
func (p *PersistedPlaylist) SetVersion(v int)             { p.version = v }
func (p *PersistedPlaylist) SetUpdatedAt(t time.Time)     { p.updatedAt = t }
func (p *PersistedPlaylist) SetDeletedAt(t *time.Time)    { p.deletedAt = t }
func (p *PersistedPlaylist) SetCreatedAt(t time.Time)     { p.createdAt = t }
func (p *PersistedPlaylist) SetRemoteID(remoteID string)  { p.remoteID = remoteID }

// ClearRemoteID drops the remote binding, returning the playlist to unbound state.
func (p *PersistedPlaylist) ClearRemoteID() { p.remoteID = "" }

// BumpVersion increments the local edit counter.
func (p *PersistedPlaylist) BumpVersion() { p.version++ }

// Validate checks if the playlist's data is valid.
func (p *PersistedPlaylist) Validate() error {
	if p.dto.Name == "" {
		return fmt.Errorf("playlist name is required")
	}
	return nil
}
