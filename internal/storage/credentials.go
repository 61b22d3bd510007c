package storage

import (
	"database/sql"
	"fmt"

	"github.com/adirathodd/titan-trading/internal/models"
)

// CredentialRepository persists the session credential set. The table holds
// at most one row; Save replaces it wholesale so storage never ends up with
// a partial session.
type CredentialRepository struct {
	db        *DB
	encryptor *Encryptor
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(db *DB, encryptor *Encryptor) *CredentialRepository {
	return &CredentialRepository{db: db, encryptor: encryptor}
}

// Save persists the full credential set atomically, replacing any previous
// session.
func (r *CredentialRepository) Save(creds *models.StoredCredentials) error {
	accessCipher, accessNonce, err := r.encryptor.Encrypt(creds.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypting access token: %w", err)
	}
	refreshCipher, refreshNonce, err := r.encryptor.Encrypt(creds.RefreshToken)
	if err != nil {
		return fmt.Errorf("encrypting refresh token: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO credentials (id, access_token, access_nonce, refresh_token, refresh_nonce, username, cash, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			access_nonce = excluded.access_nonce,
			refresh_token = excluded.refresh_token,
			refresh_nonce = excluded.refresh_nonce,
			username = excluded.username,
			cash = excluded.cash,
			updated_at = excluded.updated_at
	`, accessCipher, accessNonce, refreshCipher, refreshNonce, creds.Username, creds.Cash)
	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

// Load retrieves the persisted credential set. Returns nil when no session
// is stored.
func (r *CredentialRepository) Load() (*models.StoredCredentials, error) {
	var (
		accessCipher, accessNonce   []byte
		refreshCipher, refreshNonce []byte
		username                    string
		cash                        float64
	)
	err := r.db.QueryRow(`
		SELECT access_token, access_nonce, refresh_token, refresh_nonce, username, cash
		FROM credentials
		WHERE id = 1
	`).Scan(&accessCipher, &accessNonce, &refreshCipher, &refreshNonce, &username, &cash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	accessToken, err := r.encryptor.Decrypt(accessCipher, accessNonce)
	if err != nil {
		return nil, fmt.Errorf("decrypting access token: %w", err)
	}
	refreshToken, err := r.encryptor.Decrypt(refreshCipher, refreshNonce)
	if err != nil {
		return nil, fmt.Errorf("decrypting refresh token: %w", err)
	}

	return &models.StoredCredentials{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Username:     username,
		Cash:         cash,
	}, nil
}

// UpdateCash replaces the persisted cash balance. Credentials are untouched.
// A no-op when no session is stored.
func (r *CredentialRepository) UpdateCash(cash float64) error {
	_, err := r.db.Exec(`
		UPDATE credentials SET cash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1
	`, cash)
	if err != nil {
		return fmt.Errorf("updating cash: %w", err)
	}
	return nil
}

// Clear removes the persisted session. Idempotent.
func (r *CredentialRepository) Clear() error {
	_, err := r.db.Exec(`DELETE FROM credentials WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}
