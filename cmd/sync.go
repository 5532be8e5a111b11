package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/psync/internal/formatter"
	"github.com/desertthunder/psync/internal/shared"
	"github.com/desertthunder/psync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// runWithProgress runs one engine operation while draining its progress
// channel to the output writer.
func (r *Runner) runWithProgress(ctx context.Context, op func(chan tasks.ProgressUpdate) (*tasks.SyncResult, error)) (*tasks.SyncResult, error) {
	progress := make(chan tasks.ProgressUpdate, 50)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := op(progress)
	close(progress)
	wg.Wait()

	return result, err
}

// SyncPush forces the local playlist state onto its remote counterpart.
func (r *Runner) SyncPush(ctx context.Context, cmd *cli.Command) error {
	return r.runDirection(ctx, cmd, tasks.DirectionPush)
}

// SyncPull forces the remote playlist state onto the local copy.
func (r *Runner) SyncPull(ctx context.Context, cmd *cli.Command) error {
	return r.runDirection(ctx, cmd, tasks.DirectionPull)
}

func (r *Runner) runDirection(ctx context.Context, cmd *cli.Command, direction tasks.Direction) error {
	if err := r.connect(); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	result, err := r.runWithProgress(ctx, func(progress chan tasks.ProgressUpdate) (*tasks.SyncResult, error) {
		if direction == tasks.DirectionPull {
			return r.engine.Pull(ctx, progress, id)
		}
		return r.engine.Push(ctx, progress, id)
	})
	if result != nil && result.PlaylistName != "" {
		r.writePlain("%s", formatter.FormatSyncResult(result))
	}
	return err
}

// SyncStatus prints the three-way diff for a playlist without mutating
// either side.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
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

	diff, err := r.engine.DiffStatus(ctx, id)
	if err != nil {
		return err
	}

	return r.writePlain("%s", formatter.FormatDiff(pl.Name(), diff))
}

// SyncAll reconciles every linked playlist concurrently in the given direction.
func (r *Runner) SyncAll(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	direction := tasks.Direction(cmd.String("direction"))

	playlists, err := r.playlists.List(map[string]any{"linked": true})
	if err != nil {
		return err
	}
	if len(playlists) == 0 {
		return r.writePlain("No linked playlists to sync.\n")
	}

	ids := make([]string, 0, len(playlists))
	for _, pl := range playlists {
		ids = append(ids, pl.ID())
	}

	opts := tasks.BulkSyncOpts{
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	}
	if opts.NumWorkers == 0 {
		opts.NumWorkers = r.config.Sync.Workers
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = r.config.Sync.RateLimit
	}

	progress := make(chan tasks.ProgressUpdate, 100)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := r.engine.SyncAll(ctx, progress, direction, ids, opts)
	close(progress)
	wg.Wait()
	if err != nil {
		return err
	}

	return r.writePlain("%s", formatter.FormatBulkResult(result))
}
