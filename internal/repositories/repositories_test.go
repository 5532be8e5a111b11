package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/psync/internal/models"
	"github.com/desertthunder/psync/internal/shared"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestNextSequence(t *testing.T) {
	db := testDB(t)

	first, err := NextSequence(db, "playlists")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	second, err := NextSequence(db, "playlists")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}

	if second != first+1 {
		t.Errorf("expected sequence to increment, got %d then %d", first, second)
	}
}

func TestPlaylistRepository(t *testing.T) {
	db := testDB(t)
	repo := NewPlaylistRepository(db)

	t.Run("Create and Get", func(t *testing.T) {
		pl := models.NewPersistedPlaylist(0, models.Playlist{Name: "Morning Mix", Description: "Easy start"})
		if err := repo.Create(pl); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		if pl.ID() == "" {
			t.Fatal("expected generated id")
		}

		got, err := repo.Get(pl.ID())
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if got.Name() != "Morning Mix" || got.Description() != "Easy start" {
			t.Errorf("unexpected playlist data: %s / %s", got.Name(), got.Description())
		}
		if got.HasRemote() {
			t.Error("new playlist should have no remote binding")
		}
	})

	t.Run("Remote binding round trip", func(t *testing.T) {
		pl := models.NewPersistedPlaylist(0, models.Playlist{Name: "Linked"})
		if err := repo.Create(pl); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		pl.SetRemoteID("remote-xyz")
		if err := repo.Update(pl); err != nil {
			t.Fatalf("failed to update playlist: %v", err)
		}

		got, err := repo.GetByRemoteID("remote-xyz")
		if err != nil {
			t.Fatalf("failed to get by remote id: %v", err)
		}
		if got.ID() != pl.ID() {
			t.Errorf("expected playlist %s, got %s", pl.ID(), got.ID())
		}

		got.ClearRemoteID()
		if err := repo.Update(got); err != nil {
			t.Fatalf("failed to clear remote id: %v", err)
		}
		if _, err := repo.GetByRemoteID("remote-xyz"); err == nil {
			t.Error("expected lookup to fail after clearing remote id")
		}
	})

	t.Run("SetTracks preserves order", func(t *testing.T) {
		trackRepo := NewTrackRepository(db)
		pl := models.NewPersistedPlaylist(0, models.Playlist{Name: "Ordered"})
		if err := repo.Create(pl); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		var ids []string
		for _, title := range []string{"First", "Second", "Third"} {
			tr := models.NewPersistedTrack(0, models.Track{Title: title, ExternalID: "ext-" + title})
			if err := trackRepo.Create(tr); err != nil {
				t.Fatalf("failed to create track: %v", err)
			}
			ids = append(ids, tr.ID())
		}

		// Store reversed, expect reversed back
		reversed := []string{ids[2], ids[1], ids[0]}
		if err := repo.SetTracks(pl.ID(), reversed); err != nil {
			t.Fatalf("failed to set tracks: %v", err)
		}

		tracks, err := repo.Tracks(pl.ID())
		if err != nil {
			t.Fatalf("failed to get tracks: %v", err)
		}
		if len(tracks) != 3 {
			t.Fatalf("expected 3 tracks, got %d", len(tracks))
		}
		for i, want := range []string{"Third", "Second", "First"} {
			if tracks[i].Title() != want {
				t.Errorf("position %d: expected %s, got %s", i, want, tracks[i].Title())
			}
		}

		// Replacing again must not accumulate rows
		if err := repo.SetTracks(pl.ID(), ids[:1]); err != nil {
			t.Fatalf("failed to replace tracks: %v", err)
		}
		tracks, err = repo.Tracks(pl.ID())
		if err != nil {
			t.Fatalf("failed to get tracks: %v", err)
		}
		if len(tracks) != 1 || tracks[0].Title() != "First" {
			t.Errorf("expected single track First, got %d tracks", len(tracks))
		}
	})

	t.Run("Delete excludes from queries", func(t *testing.T) {
		pl := models.NewPersistedPlaylist(0, models.Playlist{Name: "Doomed"})
		if err := repo.Create(pl); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		if err := repo.Delete(pl.ID()); err != nil {
			t.Fatalf("failed to delete playlist: %v", err)
		}
		if _, err := repo.Get(pl.ID()); err == nil {
			t.Error("expected get to fail after delete")
		}
	})
}

func TestTrackRepositoryEnsureByExternalID(t *testing.T) {
	db := testDB(t)
	repo := NewTrackRepository(db)

	first, err := repo.EnsureByExternalID("ext-123", models.Track{Title: "Imported"})
	if err != nil {
		t.Fatalf("failed to ensure track: %v", err)
	}

	second, err := repo.EnsureByExternalID("ext-123", models.Track{Title: "Imported Again"})
	if err != nil {
		t.Fatalf("failed to ensure track twice: %v", err)
	}

	if first.ID() != second.ID() {
		t.Errorf("expected same track, got %s and %s", first.ID(), second.ID())
	}
	if second.Title() != "Imported" {
		t.Errorf("second ensure should not overwrite, got title %s", second.Title())
	}

	if _, err := repo.EnsureByExternalID("", models.Track{Title: "No ID"}); err == nil {
		t.Error("expected error for empty external id")
	}
}

func TestBaselineRepository(t *testing.T) {
	db := testDB(t)
	repo := NewBaselineRepository(db)

	t.Run("missing baseline returns nil", func(t *testing.T) {
		got, err := repo.Get("absent")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Error("expected nil baseline for unsynced playlist")
		}
	})

	t.Run("Put and Get round trip", func(t *testing.T) {
		syncedAt := time.Now().Truncate(time.Second)
		b := models.NewBaseline("pl1", "remote1", "Mix", "desc", []string{"a", "b"}, syncedAt)
		if err := repo.Put(b); err != nil {
			t.Fatalf("failed to put baseline: %v", err)
		}

		got, err := repo.Get("pl1")
		if err != nil {
			t.Fatalf("failed to get baseline: %v", err)
		}
		if got == nil {
			t.Fatal("expected baseline")
		}
		if got.RemoteID() != "remote1" || got.Name() != "Mix" {
			t.Errorf("unexpected baseline: %s / %s", got.RemoteID(), got.Name())
		}
		ids := got.TrackIDs()
		if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
			t.Errorf("unexpected track ids: %v", ids)
		}
	})

	t.Run("Put replaces previous snapshot", func(t *testing.T) {
		b := models.NewBaseline("pl1", "remote2", "Renamed", "", []string{"c"}, time.Now())
		if err := repo.Put(b); err != nil {
			t.Fatalf("failed to replace baseline: %v", err)
		}

		got, err := repo.Get("pl1")
		if err != nil {
			t.Fatalf("failed to get baseline: %v", err)
		}
		if got.RemoteID() != "remote2" || len(got.TrackIDs()) != 1 {
			t.Errorf("expected replaced baseline, got %s with %d tracks", got.RemoteID(), len(got.TrackIDs()))
		}
	})
}

func TestCredentialRepository(t *testing.T) {
	db := testDB(t)
	repo := NewCredentialRepository(db)

	t.Run("missing credential is NotConnected", func(t *testing.T) {
		_, err := repo.Get("nobody")
		if !errors.Is(err, shared.ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
	})

	t.Run("Put, Get, DropTokens", func(t *testing.T) {
		expiry := time.Now().Add(time.Hour).Truncate(time.Second)
		cred := models.NewCredential("acct1", "access", "refresh", expiry)
		if err := repo.Put(cred); err != nil {
			t.Fatalf("failed to put credential: %v", err)
		}

		got, err := repo.Get("acct1")
		if err != nil {
			t.Fatalf("failed to get credential: %v", err)
		}
		if got.AccessToken() != "access" || got.RefreshToken() != "refresh" {
			t.Errorf("unexpected tokens: %s / %s", got.AccessToken(), got.RefreshToken())
		}

		if err := repo.DropTokens("acct1"); err != nil {
			t.Fatalf("failed to drop tokens: %v", err)
		}

		got, err = repo.Get("acct1")
		if err != nil {
			t.Fatalf("account row should survive token drop: %v", err)
		}
		if got.Connected() {
			t.Error("expected credential to be disconnected")
		}
	})

	t.Run("First returns oldest account", func(t *testing.T) {
		got, err := repo.First()
		if err != nil {
			t.Fatalf("failed to get first credential: %v", err)
		}
		if got.AccountID() != "acct1" {
			t.Errorf("expected acct1, got %s", got.AccountID())
		}
	})
}
