// Package services wraps the remote music service's HTTP API and manages its credentials.
//
// # Gateway Interface
//
// [Gateway] is a typed wrapper over the remote playlist API. It classifies
// failures but never retries: 404 maps to [shared.ErrRemoteNotFound], 401 to
// [shared.ErrUnauthorized], 403 to [shared.ErrForbidden] with the reason text,
// 413 to [shared.ErrPayloadTooLarge]. Other 4xx statuses are terminal, while
// 5xx and transport failures wrap [shared.ErrRetryable] so callers can decide
// on retry policy.
//
// # Token Lifecycle
//
// [TokenManager.ObtainValidToken] is the single entry point for credentials.
// It checks stored expiry, refreshes through the OAuth token endpoint when
// needed, and persists rotated refresh tokens. Refreshes are single-flight
// per account: concurrent callers share one network call, since a provider
// that rotates refresh tokens on use would otherwise invalidate the loser.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotConnected] : no stored credential for the account
//   - [shared.ErrRefreshFailed] : refresh endpoint rejected the stored refresh token
//   - [shared.ErrRemoteNotFound] : playlist id unknown to the remote
//   - [shared.ErrRetryable] : transient transport or server failure
package services

import (
	"context"

	"github.com/desertthunder/psync/internal/models"
	"golang.org/x/oauth2"
)

// RemoteSnapshot is the remote playlist state fetched once per sync cycle.
//
// Tracks carries the full remote metadata in playlist order; TrackExternalIDs
// is the same order reduced to ids for set comparisons.
type RemoteSnapshot struct {
	RemoteID         string
	Name             string
	Description      string
	Tracks           []models.Track // ordered
	TrackExternalIDs []string       // ordered
	Exists           bool
	InLibrary        bool
}

// PlaylistMeta carries playlist metadata for create and update calls.
type PlaylistMeta struct {
	Name          string
	Description   string
	Public        bool
	Collaborative bool
}

// BatchError records a failed page within a paged track operation.
type BatchError struct {
	Page int
	Err  error
}

// BatchReport summarizes a paged track operation. Failed pages are recorded
// and later pages still run, so Applied can be smaller than the request.
type BatchReport struct {
	Pages   int
	Applied int // tracks applied by successful pages
	Errors  []BatchError
}

// Failed reports whether any page of the operation failed.
func (r *BatchReport) Failed() bool { return len(r.Errors) > 0 }

// Gateway defines the typed wrapper over the remote playlist API.
//
// All operations require a valid token, threaded explicitly rather than held
// as client state. Implementations classify failures but never retry.
type Gateway interface {
	// FetchSnapshot retrieves the remote playlist state. A deleted remote is
	// reported as a snapshot with Exists=false, not an error. InLibrary is
	// left false; callers combine with IsFollowedBy.
	FetchSnapshot(ctx context.Context, token *oauth2.Token, remoteID string) (*RemoteSnapshot, error)

	// CreatePlaylist creates a new remote playlist owned by the account and returns its remote id.
	CreatePlaylist(ctx context.Context, token *oauth2.Token, accountID string, meta PlaylistMeta) (string, error)

	// UpdateMetadata pushes name, description, and visibility to the remote playlist.
	UpdateMetadata(ctx context.Context, token *oauth2.Token, remoteID string, meta PlaylistMeta) error

	// ReplaceTracks replaces the remote track list with the given order.
	// The first page replaces, remaining pages append, preserving order
	// across page boundaries.
	ReplaceTracks(ctx context.Context, token *oauth2.Token, remoteID string, externalIDs []string) (*BatchReport, error)

	// RemoveTracks deletes the given tracks from the remote playlist, paged.
	RemoveTracks(ctx context.Context, token *oauth2.Token, remoteID string, externalIDs []string) (*BatchReport, error)

	// IsFollowedBy reports whether the account still has the playlist in its library.
	IsFollowedBy(ctx context.Context, token *oauth2.Token, remoteID, accountID string) (bool, error)

	// Unfollow removes the playlist from the account's library.
	Unfollow(ctx context.Context, token *oauth2.Token, remoteID string) error

	// UploadCoverImage uploads a pre-normalized JPEG as the playlist cover.
	UploadCoverImage(ctx context.Context, token *oauth2.Token, remoteID string, image []byte) error

	// CurrentAccount returns the remote account id for the token, used as an identity probe.
	CurrentAccount(ctx context.Context, token *oauth2.Token) (string, error)

	// Name returns the name of the remote service (e.g., "Spotify")
	Name() string
}
