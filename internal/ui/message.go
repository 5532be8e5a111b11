package ui

import (
	"github.com/desertthunder/psync/internal/models"
	"github.com/desertthunder/psync/internal/tasks"
)

// playlistsLoadedMsg carries the local library listing.
type playlistsLoadedMsg struct {
	playlists []playlistEntry
	err       error
}

// tracksLoadedMsg carries one playlist's ordered tracks.
type tracksLoadedMsg struct {
	entry  playlistEntry
	tracks []models.Track
	err    error
}

// progressMsg wraps one reconciliation progress update.
type progressMsg tasks.ProgressUpdate

// syncDoneMsg carries the final outcome of a sync run.
type syncDoneMsg struct {
	result *tasks.SyncResult
	err    error
}
