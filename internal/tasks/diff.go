package tasks

import (
	"github.com/desertthunder/psync/internal/models"
	"github.com/desertthunder/psync/internal/services"
	"github.com/desertthunder/psync/internal/shared"
)

// RemoteState classifies the remote side of a playlist binding.
type RemoteState int

const (
	// RemoteMissing means no remote playlist exists for the binding (never
	// created, or deleted remotely).
	RemoteMissing RemoteState = iota
	// RemoteOrphaned means the remote playlist exists but is no longer in
	// the account's library.
	RemoteOrphaned
	// RemoteActive means the remote playlist exists and is in the library.
	RemoteActive
)

func (s RemoteState) String() string {
	switch s {
	case RemoteMissing:
		return "missing"
	case RemoteOrphaned:
		return "orphaned"
	case RemoteActive:
		return "active"
	default:
		return ""
	}
}

// ChangeFlags marks which playlist fields diverged from the baseline on one side.
type ChangeFlags struct {
	Name        bool
	Description bool
	Tracks      bool
}

// Any reports whether any field diverged.
func (f ChangeFlags) Any() bool {
	return f.Name || f.Description || f.Tracks
}

// LocalState is the local playlist content fed into the diff, already
// restricted to tracks that carry an external id.
type LocalState struct {
	Name             string
	Description      string
	TrackExternalIDs []string // ordered
}

// PlaylistDiff is the three-way comparison of baseline, local, and remote.
type PlaylistDiff struct {
	RemoteState RemoteState

	// Raw divergence, independent of any baseline.
	OnlyLocal           []string // external ids present locally, absent remotely
	OnlyRemote          []string // external ids present remotely, absent locally
	NameMismatch        bool
	DescriptionMismatch bool

	// Attribution against the baseline. Zero-valued when HasBaseline is false.
	HasBaseline   bool
	RemoteChanged ChangeFlags
	LocalChanged  ChangeFlags

	InSync bool
}

// ComputeDiff performs the three-way comparison between the last synced
// baseline, the current local playlist, and the current remote snapshot.
//
// Attribution follows a single rule: a field counts as remote-changed iff the
// remote value differs from the baseline, and as local-changed only when the
// local value differs from the baseline while the remote does not. Remote
// changes take precedence, never local, since the remote is the designated
// source of truth.
//
// With no baseline (first sync) every divergent local field is reported as
// local-changed and no remote attribution is computed, since there is nothing
// to attribute against. A nil remote or a snapshot with Exists=false is a
// missing remote, not an error.
func ComputeDiff(baseline *models.Baseline, local LocalState, remote *services.RemoteSnapshot) PlaylistDiff {
	diff := PlaylistDiff{HasBaseline: baseline != nil}

	switch {
	case remote == nil || !remote.Exists:
		diff.RemoteState = RemoteMissing
	case !remote.InLibrary:
		diff.RemoteState = RemoteOrphaned
	default:
		diff.RemoteState = RemoteActive
	}

	var remoteIDs []string
	if remote != nil && remote.Exists {
		remoteIDs = remote.TrackExternalIDs
	}

	remoteSet := toSet(remoteIDs)
	localSet := toSet(local.TrackExternalIDs)

	for _, id := range local.TrackExternalIDs {
		if !remoteSet[id] {
			diff.OnlyLocal = append(diff.OnlyLocal, id)
		}
	}
	for _, id := range remoteIDs {
		if !localSet[id] {
			diff.OnlyRemote = append(diff.OnlyRemote, id)
		}
	}

	localDesc := shared.NormalizeDescription(local.Description)
	var remoteName, remoteDesc string
	if remote != nil && remote.Exists {
		remoteName = remote.Name
		remoteDesc = shared.NormalizeDescription(remote.Description)
		diff.NameMismatch = local.Name != remote.Name
		diff.DescriptionMismatch = localDesc != remoteDesc
	}

	if baseline == nil {
		diff.LocalChanged = ChangeFlags{
			Name:        local.Name != "",
			Description: localDesc != "",
			Tracks:      len(local.TrackExternalIDs) > 0,
		}
	} else {
		baseDesc := shared.NormalizeDescription(baseline.Description())
		baseSet := baseline.TrackSet()

		diff.RemoteChanged.Name = remoteName != baseline.Name()
		diff.RemoteChanged.Description = remoteDesc != baseDesc
		diff.LocalChanged.Name = local.Name != baseline.Name() && !diff.RemoteChanged.Name
		diff.LocalChanged.Description = localDesc != baseDesc && !diff.RemoteChanged.Description

		// A side changed the track set if it gained a track the baseline
		// never had, or if the other side still has a baseline track this
		// side dropped.
		for _, id := range diff.OnlyRemote {
			if _, inBase := baseSet[id]; !inBase {
				diff.RemoteChanged.Tracks = true
			} else {
				diff.LocalChanged.Tracks = true
			}
		}
		for _, id := range diff.OnlyLocal {
			if _, inBase := baseSet[id]; !inBase {
				diff.LocalChanged.Tracks = true
			} else {
				diff.RemoteChanged.Tracks = true
			}
		}
	}

	diff.InSync = len(diff.OnlyLocal) == 0 &&
		len(diff.OnlyRemote) == 0 &&
		!diff.NameMismatch &&
		!diff.DescriptionMismatch &&
		diff.RemoteState == RemoteActive

	return diff
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
