package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Settings is the per-session configuration of the analysis client: which
// endpoint to call and which credential to send. Credential is plaintext
// in memory and sealed at rest.
type Settings struct {
	SessionKey string
	Endpoint   string
	Credential string
	UpdatedAt  time.Time
}

// HasCredential reports whether a credential is configured.
func (s *Settings) HasCredential() bool {
	return strings.TrimSpace(s.Credential) != ""
}

// CredentialSealer encrypts credentials for storage.
type CredentialSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

type SettingsService struct {
	DB              *sql.DB
	Sealer          CredentialSealer
	DefaultEndpoint string
}

func NewSettingsService(db *sql.DB, sealer CredentialSealer, defaultEndpoint string) *SettingsService {
	return &SettingsService{
		DB:              db,
		Sealer:          sealer,
		DefaultEndpoint: defaultEndpoint,
	}
}

// BySession returns the stored settings or ErrSettingsNotFound.
func (ss *SettingsService) BySession(ctx context.Context, sessionKey string) (*Settings, error) {
	query := `
		SELECT endpoint, credential_sealed, updated_at
		FROM settings
		WHERE session_key = $1
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	s := &Settings{SessionKey: sessionKey}
	var sealed string
	err := ss.DB.QueryRowContext(ctx, query, sessionKey).Scan(&s.Endpoint, &sealed, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("settings by session: %w", err)
	}

	s.Credential, err = ss.Sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("settings by session: %w", err)
	}
	return s, nil
}

// Load returns the stored settings, falling back to defaults for a
// session that never saved any.
func (ss *SettingsService) Load(ctx context.Context, sessionKey string) (*Settings, error) {
	s, err := ss.BySession(ctx, sessionKey)
	if errors.Is(err, ErrSettingsNotFound) {
		return &Settings{SessionKey: sessionKey, Endpoint: ss.DefaultEndpoint}, nil
	}
	return s, err
}

// Save upserts the settings for s.SessionKey.
func (ss *SettingsService) Save(ctx context.Context, s *Settings) error {
	s.Endpoint = strings.TrimSpace(s.Endpoint)
	s.Credential = strings.TrimSpace(s.Credential)

	sealed, err := ss.Sealer.Seal(s.Credential)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	query := `
		INSERT INTO settings (session_key, endpoint, credential_sealed)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_key) DO UPDATE SET
			endpoint = EXCLUDED.endpoint,
			credential_sealed = EXCLUDED.credential_sealed,
			updated_at = NOW()
		RETURNING updated_at
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err = ss.DB.QueryRowContext(ctx, query, s.SessionKey, s.Endpoint, sealed).Scan(&s.UpdatedAt)
	if err != nil {
		return translate("save settings", err, ErrInvalidSettings)
	}
	return nil
}

// Delete removes the settings of a session. Missing rows are not an error.
func (ss *SettingsService) Delete(ctx context.Context, sessionKey string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := ss.DB.ExecContext(ctx, `DELETE FROM settings WHERE session_key = $1`, sessionKey)
	if err != nil {
		return fmt.Errorf("delete settings: %w", err)
	}
	return nil
}
