package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/psync/internal/models"
	"github.com/desertthunder/psync/internal/shared"
)

// CredentialRepository persists remote account tokens, one row per account.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new CredentialRepository with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get retrieves the credential for a remote account.
func (r *CredentialRepository) Get(accountID string) (*models.Credential, error) {
	query := `
		SELECT account_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM credentials
		WHERE account_id = ?
	`

	var (
		acct         string
		accessToken  string
		refreshToken string
		expiresAt    sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := r.db.QueryRow(query, accountID).Scan(&acct, &accessToken, &refreshToken, &expiresAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotConnected, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}

	cred := models.NewCredential(acct, accessToken, refreshToken, expiresAt.Time)
	cred.SetCreatedAt(createdAt)
	cred.SetUpdatedAt(updatedAt)

	return cred, nil
}

// First returns the first stored credential, for single-account CLI use.
func (r *CredentialRepository) First() (*models.Credential, error) {
	var accountID string
	err := r.db.QueryRow(`SELECT account_id FROM credentials ORDER BY created_at ASC LIMIT 1`).Scan(&accountID)
	if err == sql.ErrNoRows {
		return nil, shared.ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}
	return r.Get(accountID)
}

// Put writes the credential for an account, replacing any previous row.
func (r *CredentialRepository) Put(cred *models.Credential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO credentials (account_id, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	var expiresAt any
	if !cred.ExpiresAt().IsZero() {
		expiresAt = cred.ExpiresAt()
	}

	_, err := r.db.Exec(query,
		cred.AccountID(),
		cred.AccessToken(),
		cred.RefreshToken(),
		expiresAt,
		cred.CreatedAt(),
		cred.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}

	return nil
}

// DropTokens clears the token material for an account while keeping the row,
// so a later re-link can be matched back to the same remote account.
func (r *CredentialRepository) DropTokens(accountID string) error {
	query := `
		UPDATE credentials
		SET access_token = '', refresh_token = '', expires_at = NULL, updated_at = ?
		WHERE account_id = ?
	`

	result, err := r.db.Exec(query, time.Now(), accountID)
	if err != nil {
		return fmt.Errorf("failed to drop tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrNotConnected, accountID)
	}

	return nil
}

// Delete removes the credential row entirely.
func (r *CredentialRepository) Delete(accountID string) error {
	if _, err := r.db.Exec(`DELETE FROM credentials WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
