package services

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/psync/internal/models"
	"github.com/desertthunder/psync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// CredentialStore persists account credentials for the token manager.
type CredentialStore interface {
	Get(accountID string) (*models.Credential, error)
	Put(cred *models.Credential) error
	DropTokens(accountID string) error
}

// TokenManager is the single entry point for obtaining usable access tokens.
//
// Refreshes are single-flight per account: when several goroutines find the
// same token expired, one performs the network refresh and the rest share its
// result. This matters for providers that rotate the refresh token on every
// use, where a second concurrent refresh would submit an already-consumed
// refresh token and invalidate the account.
type TokenManager struct {
	store  CredentialStore
	conf   *oauth2.Config
	group  singleflight.Group
	logger *log.Logger
	now    func() time.Time
}

// NewTokenManager creates a token manager backed by the given credential store.
func NewTokenManager(store CredentialStore, conf *oauth2.Config, logger *log.Logger) *TokenManager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &TokenManager{
		store:  store,
		conf:   conf,
		logger: logger,
		now:    time.Now,
	}
}

// ObtainValidToken returns an access token that is valid at the time of the
// call, refreshing through the OAuth token endpoint if the stored one has
// expired.
//
// An account with no stored credential returns [shared.ErrNotConnected]. A
// failed refresh drops the stored token material and returns
// [shared.ErrRefreshFailed], so the account reports as needing reconnection
// rather than failing the same way on every subsequent call.
func (m *TokenManager) ObtainValidToken(ctx context.Context, accountID string) (*oauth2.Token, error) {
	cred, err := m.store.Get(accountID)
	if err != nil {
		return nil, err
	}
	if !cred.Connected() {
		return nil, fmt.Errorf("%w: %s", shared.ErrNeedsReconnect, accountID)
	}

	if !cred.ExpiredAt(m.now()) {
		return &oauth2.Token{
			AccessToken:  cred.AccessToken(),
			RefreshToken: cred.RefreshToken(),
			Expiry:       cred.ExpiresAt(),
		}, nil
	}

	token, err, _ := m.group.Do(accountID, func() (any, error) {
		return m.refresh(ctx, accountID)
	})
	if err != nil {
		return nil, err
	}

	return token.(*oauth2.Token), nil
}

// refresh exchanges the stored refresh token for new token material and
// persists the result, including a rotated refresh token when the provider
// returns one.
func (m *TokenManager) refresh(ctx context.Context, accountID string) (*oauth2.Token, error) {
	// Re-read inside the flight: a concurrent winner may already have
	// refreshed and persisted fresh tokens.
	cred, err := m.store.Get(accountID)
	if err != nil {
		return nil, err
	}
	if !cred.ExpiredAt(m.now()) {
		return &oauth2.Token{
			AccessToken:  cred.AccessToken(),
			RefreshToken: cred.RefreshToken(),
			Expiry:       cred.ExpiresAt(),
		}, nil
	}

	if cred.RefreshToken() == "" {
		if dropErr := m.store.DropTokens(accountID); dropErr != nil {
			m.logger.Error("failed to drop tokens", "account", accountID, "error", dropErr)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, shared.ErrNoRefreshToken)
	}

	m.logger.Debug("refreshing access token", "account", accountID)

	stale := &oauth2.Token{
		RefreshToken: cred.RefreshToken(),
		Expiry:       time.Now().Add(-time.Hour), // force a refresh
	}
	fresh, err := m.conf.TokenSource(ctx, stale).Token()
	if err != nil {
		if dropErr := m.store.DropTokens(accountID); dropErr != nil {
			m.logger.Error("failed to drop tokens", "account", accountID, "error", dropErr)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	cred.SetTokens(fresh.AccessToken, fresh.RefreshToken, fresh.Expiry)
	if err := m.store.Put(cred); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	m.logger.Debug("refreshed access token", "account", accountID, "expires_at", fresh.Expiry)

	return fresh, nil
}

// Store persists a newly authorized token for an account, replacing any
// previous credential.
func (m *TokenManager) Store(accountID string, token *oauth2.Token) error {
	cred := models.NewCredential(accountID, token.AccessToken, token.RefreshToken, token.Expiry)
	return m.store.Put(cred)
}

// Verify probes the remote identity endpoint with a valid token and reports
// the account id it resolves to.
func (m *TokenManager) Verify(ctx context.Context, gateway Gateway, accountID string) (string, error) {
	token, err := m.ObtainValidToken(ctx, accountID)
	if err != nil {
		return "", err
	}
	return gateway.CurrentAccount(ctx, token)
}
