package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/psync/internal/server"
	"github.com/desertthunder/psync/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the OAuth authorization code flow: it opens the provider's
// consent page in a browser, receives the redirect on a short-lived local
// server, and stores the resulting tokens against the remote account id.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: set credentials.spotify in config.toml", shared.ErrMissingCredentials)
	}

	if err := r.connect(); err != nil {
		return err
	}

	conf := r.oauthConfig()
	state := shared.GenerateID()
	handler := server.NewOAuthHandler(conf, state)

	authURL := handler.AuthURL()
	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL to authorize:\n%s\n", authURL)
	} else if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		r.writePlain("Open this URL to authorize:\n%s\n", authURL)
	} else {
		r.writePlain("Waiting for authorization in your browser...\n")
	}

	timeout := time.Duration(cmd.Int("timeout")) * time.Second
	serverCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	result, err := server.RunCallbackServer(serverCtx, addr, handler, r.logger)
	if err != nil {
		return err
	}
	if result.Error() != nil {
		return fmt.Errorf("authorization failed: %w", result.Error())
	}

	accountID, err := r.gateway.CurrentAccount(ctx, result.Token)
	if err != nil {
		return fmt.Errorf("failed to resolve account identity: %w", err)
	}

	if err := r.tokens.Store(accountID, result.Token); err != nil {
		return fmt.Errorf("failed to store tokens: %w", err)
	}

	r.logger.Info("account linked", "account", accountID)
	return r.writePlain("✓ Linked %s account %s\n", r.gateway.Name(), accountID)
}

// AuthStatus reports the linked account and probes the remote identity
// endpoint to verify the stored token still works.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	cred, err := r.credentials.First()
	if errors.Is(err, shared.ErrNotConnected) {
		return r.writePlain("✗ No account linked. Run 'psync auth login'.\n")
	}
	if err != nil {
		return err
	}

	r.writePlain("Account: %s\n", cred.AccountID())
	if !cred.Connected() {
		return r.writePlain("✗ Tokens dropped, account needs reconnect\n")
	}
	if !cred.ExpiresAt().IsZero() {
		r.writePlain("Token expires: %s\n", cred.ExpiresAt().Format(time.RFC3339))
	}

	if _, err := r.tokens.Verify(ctx, r.gateway, cred.AccountID()); err != nil {
		r.logger.Warn("identity probe failed", "error", err)
		return r.writePlain("✗ Token rejected by %s, run 'psync auth login'\n", r.gateway.Name())
	}

	return r.writePlain("✓ Token accepted by %s\n", r.gateway.Name())
}

// AuthLogout drops the stored token material while keeping the account row,
// so a later login to the same account reattaches existing bindings.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	cred, err := r.credentials.First()
	if errors.Is(err, shared.ErrNotConnected) {
		return r.writePlain("No account linked.\n")
	}
	if err != nil {
		return err
	}

	if err := r.credentials.DropTokens(cred.AccountID()); err != nil {
		return fmt.Errorf("failed to drop tokens: %w", err)
	}

	r.logger.Info("tokens dropped", "account", cred.AccountID())
	return r.writePlain("✓ Logged out of %s\n", cred.AccountID())
}
