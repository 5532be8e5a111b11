package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/psync/internal/shared"
	"golang.org/x/time/rate"
)

// BulkSyncOpts contains configuration for bulk playlist reconciliation.
type BulkSyncOpts struct {
	NumWorkers int     // Concurrent workers (default: 5)
	RateLimit  float64 // Playlist starts per second (default: 5)
}

// PlaylistSyncResult pairs one playlist's reconciliation outcome with its error.
type PlaylistSyncResult struct {
	PlaylistID string
	Result     *SyncResult
	Success    bool
	Error      error
}

// BulkSyncResult summarizes a bulk reconciliation run.
type BulkSyncResult struct {
	TotalPlaylists  int
	SuccessfulSyncs int
	FailedSyncs     int
	Results         []PlaylistSyncResult
}

type playlistSyncJob struct {
	index      int
	playlistID string
}

// SyncAll reconciles multiple playlists concurrently with rate limiting and
// progress tracking.
//
// Playlist ids are deduplicated before dispatch so one run never reconciles
// the same playlist from two workers. Individual playlist failures are
// recorded and do not stop the rest of the batch.
func (e *PlaylistEngine) SyncAll(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	direction Direction,
	ids []string,
	opts BulkSyncOpts,
) (*BulkSyncResult, error) {
	if e.gateway == nil {
		return nil, fmt.Errorf("%w: gateway not initialized", shared.ErrServiceUnavailable)
	}
	if direction != DirectionPush && direction != DirectionPull {
		return nil, fmt.Errorf("%w: unknown direction %q", shared.ErrInvalidArgument, direction)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	ids = dedupe(ids)

	result := &BulkSyncResult{
		TotalPlaylists: len(ids),
		Results:        make([]PlaylistSyncResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan playlistSyncJob, len(ids))
	results := make(chan PlaylistSyncResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.syncWorker(ctx, &wg, direction, jobs, results)
	}

	go func() {
		defer close(jobs)
		for i, playlistID := range ids {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := limiter.Wait(ctx); err != nil {
				return
			}

			e.sendProgress(progress, syncAllUpdate(i+1, len(ids), playlistID))
			jobs <- playlistSyncJob{index: i, playlistID: playlistID}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		name := res.PlaylistID
		if res.Result != nil && res.Result.PlaylistName != "" {
			name = res.Result.PlaylistName
		}

		if res.Success {
			result.SuccessfulSyncs++
			e.sendProgress(progress, syncAllCompletedUpdate(completed, len(ids), name, res.Result))
		} else {
			result.FailedSyncs++
			e.sendProgress(progress, syncAllFailedUpdate(completed, len(ids), name, res.Error))
		}
	}

	return result, nil
}

// syncWorker is a worker goroutine that reconciles playlists from the jobs channel.
func (e *PlaylistEngine) syncWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	direction Direction,
	jobs <-chan playlistSyncJob,
	results chan<- PlaylistSyncResult,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var res *SyncResult
		var err error
		if direction == DirectionPull {
			res, err = e.Pull(ctx, nil, job.playlistID)
		} else {
			res, err = e.Push(ctx, nil, job.playlistID)
		}

		results <- PlaylistSyncResult{
			PlaylistID: job.playlistID,
			Result:     res,
			Success:    err == nil,
			Error:      err,
		}
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
