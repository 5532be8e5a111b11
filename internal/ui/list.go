package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/psync/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// playlistEntry is the library row the picker operates on.
type playlistEntry struct {
	id         string
	name       string
	desc       string
	remoteID   string
	trackCount int
}

// playlistItem wraps [playlistEntry] to implement [list.Item].
type playlistItem struct {
	entry playlistEntry
}

func (i playlistItem) FilterValue() string { return i.entry.name }
func (i playlistItem) Title() string {
	if i.entry.remoteID != "" {
		return fmt.Sprintf("⇄ %s", i.entry.name)
	}
	return i.entry.name
}
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.entry.trackCount)
	if i.entry.remoteID == "" {
		desc = fmt.Sprintf("%s • never pushed", desc)
	}
	if i.entry.desc != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.entry.desc)
	}
	return desc
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	desc := i.track.Artist
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	return desc
}
