package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/psync/internal/artwork"
	"github.com/desertthunder/psync/internal/repositories"
	"github.com/desertthunder/psync/internal/services"
	"github.com/desertthunder/psync/internal/shared"
	"github.com/desertthunder/psync/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Database-backed dependencies are built lazily via [Runner.connect], so
// commands that never touch the library (setup, auth login) work before a
// database exists.
type Runner struct {
	config     *shared.Config
	gateway    services.Gateway
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db          *sql.DB
	playlists   *repositories.PlaylistRepository
	tracks      *repositories.TrackRepository
	baselines   *repositories.BaselineRepository
	credentials *repositories.CredentialRepository
	tokens      *services.TokenManager
	engine      *tasks.PlaylistEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Gateway    services.Gateway
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Gateway == nil {
		opts.Gateway = services.NewSpotifyGateway(services.SpotifyGatewayOpts{
			HTTPClient: opts.HTTPClient,
			RateLimit:  opts.Config.Sync.RateLimit,
			Timeout:    opts.Config.Sync.RequestTimeoutDuration(),
		})
	}

	return &Runner{
		config:     opts.Config,
		gateway:    opts.Gateway,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the runner's logger, used by the TUI to redirect logs to a file.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// connect opens the database and wires the repositories, token manager, and
// sync engine. Idempotent; later calls reuse the open connection.
//
// The engine's account binding comes from the first stored credential. An
// unauthenticated library still connects, sync operations then fail with
// [shared.ErrNotConnected] instead of blocking read-only commands.
func (r *Runner) connect() error {
	if r.db != nil {
		return nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database (run 'psync setup' first): %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.db = db
	r.playlists = repositories.NewPlaylistRepository(db)
	r.tracks = repositories.NewTrackRepository(db)
	r.baselines = repositories.NewBaselineRepository(db)
	r.credentials = repositories.NewCredentialRepository(db)

	conf := r.oauthConfig()
	r.tokens = services.NewTokenManager(r.credentials, conf, r.logger)

	accountID := ""
	if cred, err := r.credentials.First(); err == nil {
		accountID = cred.AccountID()
	}

	r.engine = tasks.NewPlaylistEngine(tasks.PlaylistEngineOpts{
		Playlists:  r.playlists,
		Tracks:     r.tracks,
		Baselines:  r.baselines,
		Tokens:     r.tokens,
		Gateway:    r.gateway,
		Normalizer: artwork.NewNormalizer(r.config.Sync.ImageByteBudget, r.httpClient),
		AccountID:  accountID,
		Logger:     r.logger,
	})

	return nil
}

// close releases the database connection if one was opened.
func (r *Runner) close() {
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
}

func (r *Runner) oauthConfig() *oauth2.Config {
	creds := r.config.Credentials.Spotify
	return services.NewOAuthConfig(creds.ClientID, creds.ClientSecret, creds.RedirectURI)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistCommand, syncCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
