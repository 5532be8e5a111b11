package models

import (
	"fmt"
	"time"
)

// expirySkew guards against using a token that expires mid-request.
const expirySkew = 30 * time.Second

// Credential holds the remote account's OAuth tokens.
//
// The account id survives a token drop so a later re-link can be matched back
// to the same remote account.
type Credential struct {
	accountID    string
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

// NewCredential creates a credential for a remote account.
func NewCredential(accountID, accessToken, refreshToken string, expiresAt time.Time) *Credential {
	now := time.Now()
	return &Credential{
		accountID:    accountID,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiresAt:    expiresAt,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (c *Credential) AccountID() string    { return c.accountID }
func (c *Credential) AccessToken() string  { return c.accessToken }
func (c *Credential) RefreshToken() string { return c.refreshToken }
func (c *Credential) ExpiresAt() time.Time { return c.expiresAt }
func (c *Credential) CreatedAt() time.Time { return c.createdAt }
func (c *Credential) UpdatedAt() time.Time { return c.updatedAt }

// Connected reports whether any token material is stored for the account.
func (c *Credential) Connected() bool {
	return c.accessToken != "" || c.refreshToken != ""
}

// ExpiredAt reports whether the access token must not be used at the given instant.
func (c *Credential) ExpiredAt(now time.Time) bool {
	if c.accessToken == "" {
		return true
	}
	if c.expiresAt.IsZero() {
		return false
	}
	return !now.Add(expirySkew).Before(c.expiresAt)
}

// SetTokens replaces the stored token material. An empty refreshToken keeps
// the previous one, matching providers that only rotate refresh tokens
// occasionally.
func (c *Credential) SetTokens(accessToken, refreshToken string, expiresAt time.Time) {
	c.accessToken = accessToken
	if refreshToken != "" {
		c.refreshToken = refreshToken
	}
	c.expiresAt = expiresAt
	c.updatedAt = time.Now()
}

// DropTokens clears token material but keeps the account id for re-link detection.
func (c *Credential) DropTokens() {
	c.accessToken = ""
	c.refreshToken = ""
	c.expiresAt = time.Time{}
	c.updatedAt = time.Now()
}

func (c *Credential) SetCreatedAt(t time.Time) { c.createdAt = t }
func (c *Credential) SetUpdatedAt(t time.Time) { c.updatedAt = t }

// Validate checks if the credential's data is valid.
func (c *Credential) Validate() error {
	if c.accountID == "" {
		return fmt.Errorf("credential account id is required")
	}
	return nil
}
