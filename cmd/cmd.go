// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles database initialization and config creation.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.SetupDatabase,
	}
}

// authCommand handles account linking and token lifecycle.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the linked Spotify account",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Link a Spotify account via the OAuth authorization code flow",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "timeout",
						Usage: "Seconds to wait for the browser authorization",
						Value: 180,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the linked account and verify its token against the remote",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Drop stored tokens, keeping the account row for re-linking",
				Action: r.AuthLogout,
			},
		},
	}
}

// playlistCommand handles local library operations.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage the local playlist library",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List local playlists",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Filter by name substring",
					},
					&cli.BoolFlag{
						Name:  "linked",
						Usage: "Only playlists bound to a remote",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistList,
			},
			{
				Name:  "show",
				Usage: "Show one playlist with its tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistShow,
			},
			{
				Name:  "create",
				Usage: "Create a local playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Playlist description",
					},
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Make the remote copy public on first push",
					},
					&cli.StringFlag{
						Name:  "image",
						Usage: "Cover image source (URL, data URI, or base64)",
					},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:  "import",
				Usage: "Create a local playlist bound to an existing remote playlist and pull it",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "remote-id"},
				},
				Action: r.PlaylistImport,
			},
			{
				Name:  "export",
				Usage: "Export a playlist to CSV or plain text",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output base path (defaults to the playlist id)",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: csv or txt",
						Value: "csv",
					},
				},
				Action: r.PlaylistExport,
			},
			{
				Name:  "delete",
				Usage: "Delete a local playlist after best-effort remote cleanup",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "keep-remote",
						Usage: "Skip emptying and unfollowing the remote copy",
					},
				},
				Action: r.PlaylistDelete,
			},
		},
	}
}

// syncCommand handles reconciliation between the local library and the remote.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Reconcile playlists with the remote service",
		Commands: []*cli.Command{
			{
				Name:  "push",
				Usage: "Force local playlist state onto the remote",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.SyncPush,
			},
			{
				Name:  "pull",
				Usage: "Force remote playlist state onto the local copy",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.SyncPull,
			},
			{
				Name:  "status",
				Usage: "Show the three-way diff without changing either side",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.SyncStatus,
			},
			{
				Name:  "all",
				Usage: "Reconcile every linked playlist concurrently",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "direction",
						Usage: "push or pull",
						Value: "push",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent playlists (max 10)",
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Playlist starts per second",
					},
				},
				Action: r.SyncAll,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive playlist management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for playlist sync",
		Action:  r.TUI,
	}
}
