package formatter

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/psync/internal/models"
	"github.com/desertthunder/psync/internal/tasks"
	helpers "github.com/desertthunder/psync/internal/testing"
)

func TestFormatDiff(t *testing.T) {
	t.Run("in sync", func(t *testing.T) {
		out := FormatDiff("Mix", &tasks.PlaylistDiff{
			RemoteState: tasks.RemoteActive,
			HasBaseline: true,
			InSync:      true,
		})
		if !strings.Contains(out, "✓ In sync") {
			t.Errorf("expected in-sync marker, got:\n%s", out)
		}
	})

	t.Run("diverged", func(t *testing.T) {
		out := FormatDiff("Mix", &tasks.PlaylistDiff{
			RemoteState:   tasks.RemoteActive,
			HasBaseline:   true,
			OnlyLocal:     []string{"C"},
			OnlyRemote:    []string{"D"},
			NameMismatch:  true,
			RemoteChanged: tasks.ChangeFlags{Name: true, Tracks: true},
			LocalChanged:  tasks.ChangeFlags{Tracks: true},
		})

		for _, want := range []string{"+ C", "- D", "Name differs", "Changed remotely since last sync: name, tracks", "Changed locally since last sync: tracks"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("never synced", func(t *testing.T) {
		out := FormatDiff("Mix", &tasks.PlaylistDiff{RemoteState: tasks.RemoteMissing})
		if !strings.Contains(out, "Never synced") {
			t.Errorf("expected bootstrap note, got:\n%s", out)
		}
		if !strings.Contains(out, "missing") {
			t.Errorf("expected remote state, got:\n%s", out)
		}
	})
}

func TestFormatSyncResult(t *testing.T) {
	t.Run("clean run", func(t *testing.T) {
		out := FormatSyncResult(&tasks.SyncResult{
			PlaylistName:  "Mix",
			Direction:     tasks.DirectionPush,
			Recreated:     true,
			TracksAdded:   3,
			ImageUploaded: true,
		})
		for _, want := range []string{"Mix (push)", "Remote playlist created", "+3 -0", "Cover image uploaded", "✓ Sync complete"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("with warnings", func(t *testing.T) {
		out := FormatSyncResult(&tasks.SyncResult{
			PlaylistName: "Mix",
			Direction:    tasks.DirectionPull,
			Errors:       []error{errors.New("cover upload failed")},
		})
		if !strings.Contains(out, "1 warning(s)") {
			t.Errorf("expected warning count, got:\n%s", out)
		}
	})
}

func TestExportToCSV(t *testing.T) {
	tracks := []models.Track{
		{ID: "t1", ExternalID: "ext1", Title: "Song, with comma", Artist: "Artist", Album: "Album", DurationSeconds: 215},
		{ID: "t2", ExternalID: "ext2", Title: "Other", Artist: "Band", DurationSeconds: 180},
	}

	data, err := ExportToCSV(tracks)
	if err != nil {
		t.Fatalf("failed to export CSV: %v", err)
	}

	out := string(data)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 records, got %d lines", len(lines))
	}
	if lines[0] != "ID,ExternalID,Title,Artist,Album,Duration" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"Song, with comma"`) {
		t.Errorf("comma field must be quoted: %s", lines[1])
	}
}

func TestExportToText(t *testing.T) {
	playlist := models.Playlist{Name: "Mix", Description: "desc", Public: true}
	tracks := []models.Track{{Title: "Song", Artist: "Artist", DurationSeconds: 65}}

	out := string(ExportToText(playlist, tracks))
	for _, want := range []string{"Playlist: Mix", "Visibility: Public", "1. Artist - Song [1:05]"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestWriteCSVExport(t *testing.T) {
	dir := t.TempDir()
	playlist := models.Playlist{ID: "pl1", Name: "Mix"}
	tracks := []models.Track{{ID: "t1", Title: "Song", Artist: "Artist"}}

	base := filepath.Join(dir, "pl1")
	result, err := WriteCSVExport(playlist, tracks, base)
	if err != nil {
		t.Fatalf("failed to write export: %v", err)
	}

	helpers.AssertFileExists(t, result.TracksFile)
	helpers.AssertFileExists(t, result.MetadataFile)

	meta := helpers.MustReadFile(t, result.MetadataFile)
	if !strings.Contains(meta, `"Name": "Mix"`) {
		t.Errorf("expected playlist metadata, got:\n%s", meta)
	}
}
