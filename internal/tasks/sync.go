// Package tasks implements playlist reconciliation between the local library
// and the remote service.
//
// The core abstraction is [SyncEngine], which orchestrates push and pull
// reconciliation, remote cleanup on delete, and read-only diff status.
// Operations emit progress updates via channels for non-blocking status
// reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/psync/internal/models"
	"github.com/desertthunder/psync/internal/services"
	"github.com/desertthunder/psync/internal/shared"
	"golang.org/x/oauth2"
)

// Direction selects which side of a playlist binding wins a reconciliation.
type Direction string

const (
	// DirectionPush forces local state onto the remote playlist.
	DirectionPush Direction = "push"
	// DirectionPull forces remote state onto the local playlist.
	DirectionPull Direction = "pull"
)

// SyncResult is the structured outcome of one reconciliation run.
//
// Partial progress is always reported: a failed run still carries the counts
// of what was applied before the failure, and best-effort step failures are
// recorded in Errors without aborting the run.
type SyncResult struct {
	PlaylistID      string
	PlaylistName    string
	Direction       Direction
	Recreated       bool // a new remote playlist was created this run
	TracksAdded     int
	TracksRemoved   int
	MetadataUpdated bool
	ImageUploaded   bool
	Errors          []error // non-fatal step failures
}

// ErrorMessages renders the recorded step failures for display.
func (r *SyncResult) ErrorMessages() []string {
	msgs := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		msgs[i] = err.Error()
	}
	return msgs
}

// PlaylistStore is the playlist persistence surface the engine depends on.
type PlaylistStore interface {
	Get(id string) (*models.PersistedPlaylist, error)
	Update(playlist *models.PersistedPlaylist) error
	Delete(id string) error
	Tracks(playlistID string) ([]*models.PersistedTrack, error)
	SetTracks(playlistID string, trackIDs []string) error
}

// TrackStore resolves remote tracks to local entities during pull.
type TrackStore interface {
	EnsureByExternalID(externalID string, dto models.Track) (*models.PersistedTrack, error)
}

// BaselineStore persists the last fully reconciled snapshot per playlist.
type BaselineStore interface {
	Get(playlistID string) (*models.Baseline, error)
	Put(baseline *models.Baseline) error
	Delete(playlistID string) error
}

// TokenSource yields a valid access token for the account.
type TokenSource interface {
	ObtainValidToken(ctx context.Context, accountID string) (*oauth2.Token, error)
}

// CoverNormalizer converts a cover image reference into an upload-ready JPEG.
type CoverNormalizer interface {
	Normalize(ctx context.Context, input string) ([]byte, error)
}

// SyncEngine defines reconciliation operations for bound playlists.
//
// Steps within one run execute strictly in order; runs for different
// playlists may execute concurrently. Callers must serialize concurrent runs
// for the same playlist id, racing pushes can double-create remote playlists.
type SyncEngine interface {
	// Push forces the local playlist state onto its remote counterpart,
	// creating a new remote playlist when the binding is missing or orphaned.
	Push(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) (*SyncResult, error)

	// Pull forces the remote playlist state onto the local copy.
	Pull(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) (*SyncResult, error)

	// Delete removes the local playlist after best-effort remote cleanup.
	Delete(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) (*SyncResult, error)

	// DiffStatus computes the three-way diff without mutating either side.
	DiffStatus(ctx context.Context, playlistID string) (*PlaylistDiff, error)

	// SyncAll reconciles multiple playlists concurrently.
	SyncAll(ctx context.Context, progress chan<- ProgressUpdate, direction Direction, ids []string, opts BulkSyncOpts) (*BulkSyncResult, error)
}

// PlaylistEngine implements [SyncEngine] against a store, a gateway, and a
// token source.
type PlaylistEngine struct {
	playlists  PlaylistStore
	tracks     TrackStore
	baselines  BaselineStore
	tokens     TokenSource
	gateway    services.Gateway
	normalizer CoverNormalizer
	accountID  string
	logger     *log.Logger
	now        func() time.Time
}

// PlaylistEngineOpts contains the dependencies for a [PlaylistEngine].
type PlaylistEngineOpts struct {
	Playlists  PlaylistStore
	Tracks     TrackStore
	Baselines  BaselineStore
	Tokens     TokenSource
	Gateway    services.Gateway
	Normalizer CoverNormalizer
	AccountID  string
	Logger     *log.Logger
}

// NewPlaylistEngine creates a new PlaylistEngine with the provided dependencies.
func NewPlaylistEngine(opts PlaylistEngineOpts) *PlaylistEngine {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &PlaylistEngine{
		playlists:  opts.Playlists,
		tracks:     opts.Tracks,
		baselines:  opts.Baselines,
		tokens:     opts.Tokens,
		gateway:    opts.Gateway,
		normalizer: opts.Normalizer,
		accountID:  opts.AccountID,
		logger:     logger,
		now:        time.Now,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// checkpoint reports cancellation between major steps. Paged batches are not
// interrupted mid-batch; already-applied remote mutations are never rolled back.
func checkpoint(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", shared.ErrCancelled, ctx.Err())
	default:
		return nil
	}
}

// localState loads the playlist and reduces its tracks to the sync surface.
// Tracks without an external id cannot participate and are excluded.
func (e *PlaylistEngine) localState(playlistID string) (*models.PersistedPlaylist, LocalState, error) {
	pl, err := e.playlists.Get(playlistID)
	if err != nil {
		return nil, LocalState{}, err
	}

	tracks, err := e.playlists.Tracks(playlistID)
	if err != nil {
		return nil, LocalState{}, err
	}

	state := LocalState{Name: pl.Name(), Description: pl.Description()}
	for _, tr := range tracks {
		if tr.Syncable() {
			state.TrackExternalIDs = append(state.TrackExternalIDs, tr.ExternalID())
		}
	}

	return pl, state, nil
}

// resolveToken obtains a valid access token, mapping failure to the terminal
// needs-reconnect outcome.
func (e *PlaylistEngine) resolveToken(ctx context.Context) (*oauth2.Token, error) {
	token, err := e.tokens.ObtainValidToken(ctx, e.accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNeedsReconnect, err)
	}
	return token, nil
}

// fetchRemote loads the remote snapshot for a bound playlist, including the
// library follow check. An unbound playlist yields a nil snapshot.
func (e *PlaylistEngine) fetchRemote(ctx context.Context, token *oauth2.Token, pl *models.PersistedPlaylist) (*services.RemoteSnapshot, error) {
	if !pl.HasRemote() {
		return nil, nil
	}

	snap, err := e.gateway.FetchSnapshot(ctx, token, pl.RemoteID())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remote playlist: %w", err)
	}

	if snap.Exists {
		inLibrary, err := e.gateway.IsFollowedBy(ctx, token, pl.RemoteID(), e.accountID)
		if err != nil {
			return nil, fmt.Errorf("failed to check playlist library state: %w", err)
		}
		snap.InLibrary = inLibrary
	}

	return snap, nil
}

// Push forces local playlist state onto the remote, creating a fresh remote
// playlist when the stored binding points at a deleted or orphaned one.
//
// Metadata and cover upload failures are recorded and do not abort the run.
// Track replacement pages past individual failures; when any page fails the
// baseline is not committed and the run reports [shared.ErrPartialFailure],
// so the next diff still sees the divergence.
func (e *PlaylistEngine) Push(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) (*SyncResult, error) {
	result := &SyncResult{PlaylistID: playlistID, Direction: DirectionPush}

	pl, local, err := e.localState(playlistID)
	if err != nil {
		return result, err
	}
	result.PlaylistName = pl.Name()

	token, err := e.resolveToken(ctx)
	if err != nil {
		e.sendProgress(progress, failedUpdate(err))
		return result, err
	}

	e.sendProgress(progress, fetchingRemoteUpdate(pl.Name()))
	snap, err := e.fetchRemote(ctx, token, pl)
	if err != nil {
		e.sendProgress(progress, failedUpdate(err))
		return result, err
	}

	if err := checkpoint(ctx); err != nil {
		return result, err
	}

	if snap == nil || !snap.Exists || !snap.InLibrary {
		e.sendProgress(progress, recreatingUpdate(pl.Name()))

		if pl.HasRemote() {
			e.logger.Info("remote playlist gone, recreating", "playlist", pl.Name(), "state", remoteStateOf(snap))
			pl.ClearRemoteID()
		}

		remoteID, err := e.gateway.CreatePlaylist(ctx, token, e.accountID, e.meta(pl))
		if err != nil {
			e.sendProgress(progress, failedUpdate(err))
			return result, fmt.Errorf("failed to create remote playlist: %w", err)
		}

		pl.SetRemoteID(remoteID)
		if err := e.playlists.Update(pl); err != nil {
			return result, fmt.Errorf("failed to store remote binding: %w", err)
		}

		result.Recreated = true
		snap = &services.RemoteSnapshot{RemoteID: remoteID, Exists: true, InLibrary: true}
	} else {
		// Metadata push is best-effort; a freshly created playlist already
		// carries it from the create call.
		if err := e.gateway.UpdateMetadata(ctx, token, pl.RemoteID(), e.meta(pl)); err != nil {
			e.logger.Warn("metadata push failed", "playlist", pl.Name(), "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("metadata push failed: %w", err))
		} else {
			result.MetadataUpdated = true
		}
	}

	if err := checkpoint(ctx); err != nil {
		return result, err
	}

	e.uploadCover(ctx, progress, token, pl, result)

	if err := checkpoint(ctx); err != nil {
		return result, err
	}

	remoteSet := toSet(snap.TrackExternalIDs)
	localSet := toSet(local.TrackExternalIDs)
	for _, id := range local.TrackExternalIDs {
		if !remoteSet[id] {
			result.TracksAdded++
		}
	}
	for _, id := range snap.TrackExternalIDs {
		if !localSet[id] {
			result.TracksRemoved++
		}
	}

	e.sendProgress(progress, reconcilingUpdate(1, 1, fmt.Sprintf("Replacing remote tracks (%d)...", len(local.TrackExternalIDs))))
	report, err := e.gateway.ReplaceTracks(ctx, token, pl.RemoteID(), local.TrackExternalIDs)
	if err != nil {
		e.sendProgress(progress, failedUpdate(err))
		return result, fmt.Errorf("failed to replace remote tracks: %w", err)
	}
	if report.Failed() {
		for _, batchErr := range report.Errors {
			result.Errors = append(result.Errors, fmt.Errorf("track page %d failed: %w", batchErr.Page, batchErr.Err))
		}
		// The remote track list is now unknown territory; committing a
		// baseline here would hide the divergence from the next diff.
		err := fmt.Errorf("%w: %d of %d track pages failed", shared.ErrPartialFailure, len(report.Errors), report.Pages)
		e.sendProgress(progress, failedUpdate(err))
		return result, err
	}

	if err := checkpoint(ctx); err != nil {
		return result, err
	}

	e.sendProgress(progress, committingUpdate(pl.Name()))
	baseline := models.NewBaseline(pl.ID(), pl.RemoteID(), pl.Name(), pl.Description(), local.TrackExternalIDs, e.now())
	if err := e.baselines.Put(baseline); err != nil {
		return result, fmt.Errorf("failed to commit baseline: %w", err)
	}

	e.sendProgress(progress, doneUpdate(result))
	return result, nil
}

// Pull forces remote playlist state onto the local copy: metadata is
// imported, remote-only tracks are created locally, local tracks absent from
// the remote are removed, and the local order is rewritten to match remote.
func (e *PlaylistEngine) Pull(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) (*SyncResult, error) {
	result := &SyncResult{PlaylistID: playlistID, Direction: DirectionPull}

	pl, local, err := e.localState(playlistID)
	if err != nil {
		return result, err
	}
	result.PlaylistName = pl.Name()

	if !pl.HasRemote() {
		return result, fmt.Errorf("%w: playlist %q has no remote binding", shared.ErrRemoteNotFound, pl.Name())
	}

	token, err := e.resolveToken(ctx)
	if err != nil {
		e.sendProgress(progress, failedUpdate(err))
		return result, err
	}

	e.sendProgress(progress, fetchingRemoteUpdate(pl.Name()))
	snap, err := e.fetchRemote(ctx, token, pl)
	if err != nil {
		e.sendProgress(progress, failedUpdate(err))
		return result, err
	}
	if !snap.Exists {
		return result, fmt.Errorf("%w: remote playlist %s is gone", shared.ErrRemoteNotFound, pl.RemoteID())
	}

	if err := checkpoint(ctx); err != nil {
		return result, err
	}

	remoteDesc := shared.NormalizeDescription(snap.Description)
	if pl.Name() != snap.Name || shared.NormalizeDescription(pl.Description()) != remoteDesc {
		pl.SetName(snap.Name)
		pl.SetDescription(remoteDesc)
		pl.BumpVersion()
		if err := e.playlists.Update(pl); err != nil {
			return result, fmt.Errorf("failed to import remote metadata: %w", err)
		}
		result.MetadataUpdated = true
	}

	localSet := toSet(local.TrackExternalIDs)
	remoteSet := toSet(snap.TrackExternalIDs)
	for _, id := range snap.TrackExternalIDs {
		if !localSet[id] {
			result.TracksAdded++
		}
	}
	for _, id := range local.TrackExternalIDs {
		if !remoteSet[id] {
			result.TracksRemoved++
		}
	}

	e.sendProgress(progress, reconcilingUpdate(1, 1, fmt.Sprintf("Importing %d remote tracks...", len(snap.Tracks))))

	localIDs := make([]string, 0, len(snap.Tracks))
	for _, dto := range snap.Tracks {
		tr, err := e.tracks.EnsureByExternalID(dto.ExternalID, dto)
		if err != nil {
			return result, fmt.Errorf("failed to resolve track %s: %w", dto.ExternalID, err)
		}
		localIDs = append(localIDs, tr.ID())
	}

	if err := e.playlists.SetTracks(pl.ID(), localIDs); err != nil {
		return result, fmt.Errorf("failed to rewrite local track list: %w", err)
	}

	if err := checkpoint(ctx); err != nil {
		return result, err
	}

	e.sendProgress(progress, committingUpdate(pl.Name()))
	baseline := models.NewBaseline(pl.ID(), pl.RemoteID(), snap.Name, remoteDesc, snap.TrackExternalIDs, e.now())
	if err := e.baselines.Put(baseline); err != nil {
		return result, fmt.Errorf("failed to commit baseline: %w", err)
	}

	e.sendProgress(progress, doneUpdate(result))
	return result, nil
}

// Delete removes the local playlist after best-effort remote cleanup: the
// remote track list is page-deleted and the playlist unfollowed. Cleanup
// failures are recorded but never block the local deletion.
func (e *PlaylistEngine) Delete(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) (*SyncResult, error) {
	result := &SyncResult{PlaylistID: playlistID, Direction: DirectionPush}

	pl, err := e.playlists.Get(playlistID)
	if err != nil {
		return result, err
	}
	result.PlaylistName = pl.Name()

	if pl.HasRemote() {
		e.cleanupRemote(ctx, progress, pl, result)
	}

	if err := e.baselines.Delete(playlistID); err != nil {
		return result, fmt.Errorf("failed to delete baseline: %w", err)
	}
	if err := e.playlists.Delete(playlistID); err != nil {
		return result, fmt.Errorf("failed to delete playlist: %w", err)
	}

	e.sendProgress(progress, doneUpdate(result))
	return result, nil
}

// cleanupRemote empties and unfollows the remote playlist, recording failures.
func (e *PlaylistEngine) cleanupRemote(ctx context.Context, progress chan<- ProgressUpdate, pl *models.PersistedPlaylist, result *SyncResult) {
	token, err := e.resolveToken(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("remote cleanup skipped: %w", err))
		return
	}

	e.sendProgress(progress, fetchingRemoteUpdate(pl.Name()))
	snap, err := e.gateway.FetchSnapshot(ctx, token, pl.RemoteID())
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("remote cleanup skipped: %w", err))
		return
	}
	if !snap.Exists {
		return
	}

	e.sendProgress(progress, reconcilingUpdate(1, 1, fmt.Sprintf("Removing %d remote tracks...", len(snap.TrackExternalIDs))))
	report, err := e.gateway.RemoveTracks(ctx, token, pl.RemoteID(), snap.TrackExternalIDs)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("remote track cleanup failed: %w", err))
	} else {
		result.TracksRemoved = report.Applied
		for _, batchErr := range report.Errors {
			result.Errors = append(result.Errors, fmt.Errorf("track page %d failed: %w", batchErr.Page, batchErr.Err))
		}
	}

	if err := e.gateway.Unfollow(ctx, token, pl.RemoteID()); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("unfollow failed: %w", err))
	}
}

// DiffStatus computes the three-way diff for a playlist without mutating
// either side. Safe to poll.
func (e *PlaylistEngine) DiffStatus(ctx context.Context, playlistID string) (*PlaylistDiff, error) {
	pl, local, err := e.localState(playlistID)
	if err != nil {
		return nil, err
	}

	baseline, err := e.baselines.Get(playlistID)
	if err != nil {
		return nil, err
	}

	var snap *services.RemoteSnapshot
	if pl.HasRemote() {
		token, err := e.resolveToken(ctx)
		if err != nil {
			return nil, err
		}
		snap, err = e.fetchRemote(ctx, token, pl)
		if err != nil {
			return nil, err
		}
	}

	diff := ComputeDiff(baseline, local, snap)
	return &diff, nil
}

// uploadCover normalizes and uploads the playlist cover, best-effort.
func (e *PlaylistEngine) uploadCover(ctx context.Context, progress chan<- ProgressUpdate, token *oauth2.Token, pl *models.PersistedPlaylist, result *SyncResult) {
	if pl.ImageRef() == "" || e.normalizer == nil {
		return
	}

	e.sendProgress(progress, uploadingUpdate(pl.Name()))

	image, err := e.normalizer.Normalize(ctx, pl.ImageRef())
	if err != nil {
		e.logger.Warn("cover normalization failed", "playlist", pl.Name(), "error", err)
		result.Errors = append(result.Errors, fmt.Errorf("cover normalization failed: %w", err))
		return
	}

	if err := e.gateway.UploadCoverImage(ctx, token, pl.RemoteID(), image); err != nil {
		e.logger.Warn("cover upload failed", "playlist", pl.Name(), "error", err)
		result.Errors = append(result.Errors, fmt.Errorf("cover upload failed: %w", err))
		return
	}

	result.ImageUploaded = true
}

// meta builds the remote metadata payload from the local playlist.
func (e *PlaylistEngine) meta(pl *models.PersistedPlaylist) services.PlaylistMeta {
	return services.PlaylistMeta{
		Name:          pl.Name(),
		Description:   shared.NormalizeDescription(pl.Description()),
		Public:        pl.Public(),
		Collaborative: pl.Collaborative(),
	}
}

func remoteStateOf(snap *services.RemoteSnapshot) string {
	switch {
	case snap == nil || !snap.Exists:
		return RemoteMissing.String()
	case !snap.InLibrary:
		return RemoteOrphaned.String()
	default:
		return RemoteActive.String()
	}
}
