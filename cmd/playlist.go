package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/psync/internal/formatter"
	"github.com/desertthunder/psync/internal/models"
	"github.com/desertthunder/psync/internal/shared"
	"github.com/desertthunder/psync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// playlistRow is the list/show output shape.
type playlistRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	RemoteID    string `json:"remote_id,omitempty"`
	Public      bool   `json:"public"`
	Version     int    `json:"version"`
	TrackCount  int    `json:"track_count"`
}

// PlaylistList lists local playlists, optionally filtered by name or binding.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	criteria := map[string]any{}
	if name := cmd.String("name"); name != "" {
		criteria["name"] = name
	}
	if cmd.Bool("linked") {
		criteria["linked"] = true
	}

	playlists, err := r.playlists.List(criteria)
	if err != nil {
		return err
	}

	rows := make([]playlistRow, 0, len(playlists))
	for _, pl := range playlists {
		tracks, err := r.playlists.Tracks(pl.ID())
		if err != nil {
			return err
		}
		rows = append(rows, playlistRow{
			ID:          pl.ID(),
			Name:        pl.Name(),
			Description: pl.Description(),
			RemoteID:    pl.RemoteID(),
			Public:      pl.Public(),
			Version:     pl.Version(),
			TrackCount:  len(tracks),
		})
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	if len(rows) == 0 {
		return r.writePlain("No playlists. Create one with 'psync playlist create'.\n")
	}

	for _, row := range rows {
		marker := " "
		if row.RemoteID != "" {
			marker = "⇄"
		}
		r.writePlain("%s %s  %s (%d tracks)\n", marker, row.ID, row.Name, row.TrackCount)
	}
	return nil
}

// PlaylistShow prints one playlist with its ordered tracks.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	pl, err := r.playlists.Get(id)
	if err != nil {
		return err
	}
	tracks, err := r.playlists.Tracks(id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type trackRow struct {
			ID         string `json:"id"`
			ExternalID string `json:"external_id,omitempty"`
			Title      string `json:"title"`
			Artist     string `json:"artist"`
			Album      string `json:"album,omitempty"`
			Duration   int    `json:"duration_seconds"`
		}
		out := struct {
			playlistRow
			Tracks []trackRow `json:"tracks"`
		}{
			playlistRow: playlistRow{
				ID: pl.ID(), Name: pl.Name(), Description: pl.Description(),
				RemoteID: pl.RemoteID(), Public: pl.Public(), Version: pl.Version(),
				TrackCount: len(tracks),
			},
		}
		for _, tr := range tracks {
			out.Tracks = append(out.Tracks, trackRow{
				ID: tr.ID(), ExternalID: tr.ExternalID(), Title: tr.Title(),
				Artist: tr.Artist(), Album: tr.Album(), Duration: tr.DurationSeconds(),
			})
		}
		return r.writeJSON(out, true)
	}

	dto := pl.DTO()
	dto.ID = pl.ID()
	dtos := make([]models.Track, 0, len(tracks))
	for _, tr := range tracks {
		dtos = append(dtos, tr.DTO())
	}
	return r.writePlain("%s", formatter.ExportToText(dto, dtos))
}

// PlaylistCreate creates a new local playlist, unbound until its first push.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	pl := models.NewPersistedPlaylist(0, models.Playlist{
		Name:        name,
		Description: cmd.String("description"),
		Public:      cmd.Bool("public"),
		ImageRef:    cmd.String("image"),
	})

	if err := r.playlists.Create(pl); err != nil {
		return err
	}

	r.logger.Info("playlist created", "id", pl.ID(), "name", pl.Name())
	return r.writePlain("✓ Created %s (%s)\n", pl.Name(), pl.ID())
}

// PlaylistImport creates a local playlist bound to an existing remote
// playlist and immediately pulls its state.
func (r *Runner) PlaylistImport(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	remoteID := cmd.StringArg("remote-id")
	if remoteID == "" {
		return fmt.Errorf("%w: remote playlist id", shared.ErrMissingArgument)
	}

	if existing, err := r.playlists.GetByRemoteID(remoteID); err == nil {
		return fmt.Errorf("%w: remote %s already bound to %q", shared.ErrInvalidArgument, remoteID, existing.Name())
	}

	// Placeholder name; the pull below replaces it with the remote's.
	pl := models.NewPersistedPlaylist(0, models.Playlist{Name: remoteID})
	pl.SetRemoteID(remoteID)
	if err := r.playlists.Create(pl); err != nil {
		return err
	}

	result, err := r.runWithProgress(ctx, func(progress chan tasks.ProgressUpdate) (*tasks.SyncResult, error) {
		return r.engine.Pull(ctx, progress, pl.ID())
	})
	if err != nil {
		return fmt.Errorf("import pull failed: %w", err)
	}

	return r.writePlain("%s", formatter.FormatSyncResult(result))
}

// PlaylistExport writes a playlist export to disk as CSV (with a metadata
// JSON sidecar) or plain text.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	pl, err := r.playlists.Get(id)
	if err != nil {
		return err
	}
	tracks, err := r.playlists.Tracks(id)
	if err != nil {
		return err
	}

	dto := pl.DTO()
	dto.ID = pl.ID()
	dtos := make([]models.Track, 0, len(tracks))
	for _, tr := range tracks {
		dtos = append(dtos, tr.DTO())
	}

	switch strings.ToLower(cmd.String("format")) {
	case "csv":
		result, err := formatter.WriteCSVExport(dto, dtos, cmd.String("output"))
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported tracks to %s\n", result.TracksFile)
		return r.writePlain("✓ Exported metadata to %s\n", result.MetadataFile)
	case "txt", "text":
		return r.writePlain("%s", formatter.ExportToText(dto, dtos))
	default:
		return fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, cmd.String("format"))
	}
}

// PlaylistDelete deletes a local playlist. Unless --keep-remote is set, the
// bound remote playlist is emptied and unfollowed first, best-effort.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	if cmd.Bool("keep-remote") {
		pl, err := r.playlists.Get(id)
		if err != nil {
			return err
		}
		if err := r.baselines.Delete(id); err != nil {
			return err
		}
		if err := r.playlists.Delete(id); err != nil {
			return err
		}
		return r.writePlain("✓ Deleted %s locally, remote copy kept\n", pl.Name())
	}

	result, err := r.runWithProgress(ctx, func(progress chan tasks.ProgressUpdate) (*tasks.SyncResult, error) {
		return r.engine.Delete(ctx, progress, id)
	})
	if err != nil {
		return err
	}

	r.writePlain("✓ Deleted %s\n", result.PlaylistName)
	for _, msg := range result.ErrorMessages() {
		r.writePlain("  ! %s\n", msg)
	}
	return nil
}
