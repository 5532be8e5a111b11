package tasks

import (
	"reflect"
	"testing"
	"time"

	"github.com/desertthunder/psync/internal/models"
	"github.com/desertthunder/psync/internal/services"
)

func activeRemote(name, description string, trackIDs ...string) *services.RemoteSnapshot {
	return &services.RemoteSnapshot{
		RemoteID:         "remote1",
		Name:             name,
		Description:      description,
		TrackExternalIDs: trackIDs,
		Exists:           true,
		InLibrary:        true,
	}
}

func baselineOf(name, description string, trackIDs ...string) *models.Baseline {
	return models.NewBaseline("pl1", "remote1", name, description, trackIDs, time.Now())
}

func TestComputeDiffRemoteState(t *testing.T) {
	local := LocalState{Name: "Mix"}

	tests := []struct {
		name   string
		remote *services.RemoteSnapshot
		want   RemoteState
	}{
		{"nil snapshot", nil, RemoteMissing},
		{"deleted remote", &services.RemoteSnapshot{RemoteID: "remote1"}, RemoteMissing},
		{"orphaned remote", &services.RemoteSnapshot{RemoteID: "remote1", Exists: true}, RemoteOrphaned},
		{"active remote", activeRemote("Mix", ""), RemoteActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := ComputeDiff(nil, local, tt.remote)
			if diff.RemoteState != tt.want {
				t.Errorf("expected %s, got %s", tt.want, diff.RemoteState)
			}
		})
	}
}

func TestComputeDiffTrackAttribution(t *testing.T) {
	// baseline={A,B}, local={A,B,C}, remote={A,B,D}: disjoint additions on
	// both sides, no conflict.
	baseline := baselineOf("Mix", "", "A", "B")
	local := LocalState{Name: "Mix", TrackExternalIDs: []string{"A", "B", "C"}}
	remote := activeRemote("Mix", "", "A", "B", "D")

	diff := ComputeDiff(baseline, local, remote)

	if !reflect.DeepEqual(diff.OnlyLocal, []string{"C"}) {
		t.Errorf("expected onlyLocal={C}, got %v", diff.OnlyLocal)
	}
	if !reflect.DeepEqual(diff.OnlyRemote, []string{"D"}) {
		t.Errorf("expected onlyRemote={D}, got %v", diff.OnlyRemote)
	}
	if !diff.RemoteChanged.Tracks {
		t.Error("expected remote track change: D is new since baseline")
	}
	if !diff.LocalChanged.Tracks {
		t.Error("expected local track change: C is new since baseline")
	}
	if diff.InSync {
		t.Error("diverged playlist must not report in sync")
	}
}

func TestComputeDiffRemovalAttribution(t *testing.T) {
	t.Run("remote removed a baseline track", func(t *testing.T) {
		baseline := baselineOf("Mix", "", "A", "B")
		local := LocalState{Name: "Mix", TrackExternalIDs: []string{"A", "B"}}
		remote := activeRemote("Mix", "", "A")

		diff := ComputeDiff(baseline, local, remote)
		if !diff.RemoteChanged.Tracks {
			t.Error("dropping B remotely is a remote change")
		}
		if diff.LocalChanged.Tracks {
			t.Error("local still matches the baseline")
		}
	})

	t.Run("local removed a baseline track", func(t *testing.T) {
		baseline := baselineOf("Mix", "", "A", "B")
		local := LocalState{Name: "Mix", TrackExternalIDs: []string{"A"}}
		remote := activeRemote("Mix", "", "A", "B")

		diff := ComputeDiff(baseline, local, remote)
		if !diff.LocalChanged.Tracks {
			t.Error("dropping B locally is a local change")
		}
		if diff.RemoteChanged.Tracks {
			t.Error("remote still matches the baseline")
		}
	})
}

func TestComputeDiffMetadataPrecedence(t *testing.T) {
	// baseline "X", local "Y", remote "Z": both moved, remote wins attribution.
	baseline := baselineOf("X", "")
	local := LocalState{Name: "Y"}
	remote := activeRemote("Z", "")

	diff := ComputeDiff(baseline, local, remote)

	if !diff.RemoteChanged.Name {
		t.Error("expected remote name change")
	}
	if diff.LocalChanged.Name {
		t.Error("remote changes take precedence, local must not be attributed")
	}
	if !diff.NameMismatch {
		t.Error("expected raw name mismatch")
	}
}

func TestComputeDiffLocalOnlyMetadataChange(t *testing.T) {
	baseline := baselineOf("X", "")
	local := LocalState{Name: "Y"}
	remote := activeRemote("X", "")

	diff := ComputeDiff(baseline, local, remote)

	if diff.RemoteChanged.Name {
		t.Error("remote matches baseline, no remote change")
	}
	if !diff.LocalChanged.Name {
		t.Error("expected local name change")
	}
}

func TestComputeDiffDescriptionNormalization(t *testing.T) {
	tests := []struct {
		name                     string
		baseline, local, remote  string
		wantMismatch, wantRemote bool
	}{
		{"trailing CRLF is not divergence", "Hello\r\n", "Hello\r\n", "Hello", false, false},
		{"whitespace-only vs empty", "", "   ", "", false, false},
		{"line ending style is not divergence", "a\r\nb", "a\r\nb", "a\nb", false, false},
		{"real content change registers", "Hello", "Hello", "Goodbye", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := ComputeDiff(
				baselineOf("Mix", tt.baseline),
				LocalState{Name: "Mix", Description: tt.local},
				activeRemote("Mix", tt.remote),
			)
			if diff.DescriptionMismatch != tt.wantMismatch {
				t.Errorf("mismatch=%v, want %v", diff.DescriptionMismatch, tt.wantMismatch)
			}
			if diff.RemoteChanged.Description != tt.wantRemote {
				t.Errorf("remoteChanged=%v, want %v", diff.RemoteChanged.Description, tt.wantRemote)
			}
		})
	}
}

func TestComputeDiffNoBaseline(t *testing.T) {
	local := LocalState{
		Name:             "Fresh",
		Description:      "Never synced",
		TrackExternalIDs: []string{"A", "B"},
	}

	diff := ComputeDiff(nil, local, nil)

	if diff.HasBaseline {
		t.Error("expected no baseline")
	}
	if !diff.LocalChanged.Name || !diff.LocalChanged.Description || !diff.LocalChanged.Tracks {
		t.Errorf("first sync must report all local fields as changed, got %+v", diff.LocalChanged)
	}
	if diff.RemoteChanged.Any() {
		t.Errorf("no remote attribution without a baseline, got %+v", diff.RemoteChanged)
	}
	if diff.InSync {
		t.Error("missing remote must not report in sync")
	}
}

func TestComputeDiffInSync(t *testing.T) {
	baseline := baselineOf("Mix", "desc", "A", "B")
	local := LocalState{Name: "Mix", Description: "desc", TrackExternalIDs: []string{"A", "B"}}

	t.Run("matching active remote", func(t *testing.T) {
		diff := ComputeDiff(baseline, local, activeRemote("Mix", "desc", "A", "B"))
		if !diff.InSync {
			t.Errorf("expected in sync, got %+v", diff)
		}
	})

	t.Run("orphaned remote is never in sync", func(t *testing.T) {
		remote := activeRemote("Mix", "desc", "A", "B")
		remote.InLibrary = false
		diff := ComputeDiff(baseline, local, remote)
		if diff.InSync {
			t.Error("orphaned remote must not report in sync")
		}
	})

	t.Run("same set different order is in sync", func(t *testing.T) {
		diff := ComputeDiff(baseline, local, activeRemote("Mix", "desc", "B", "A"))
		if !diff.InSync {
			t.Error("track comparison is set-based, order alone is not divergence")
		}
	})
}
