package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/onnwee/streamwatch/crypto"
)

// SetAccessToken stores a short-lived bearer token for a platform with an
// explicit expiry. Tokens are kept apart from the durable settings record so
// they are never serialized alongside it. A zero expiry defaults to 7 days.
func SetAccessToken(ctx context.Context, dbx *sql.DB, platform, token string, expiresAt time.Time) error {
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(7 * 24 * time.Hour)
	}
	encVersion := 0
	enc, err := getEncryptor()
	if err != nil {
		return err
	}
	stored := token
	if enc != nil {
		encVersion = 1
		if stored, err = crypto.EncryptString(enc, token); err != nil {
			return fmt.Errorf("encrypt access token: %w", err)
		}
	}
	_, err = dbx.ExecContext(ctx,
		`INSERT INTO access_tokens (platform, token, expires_at, encryption_version, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (platform) DO UPDATE SET
		   token = EXCLUDED.token,
		   expires_at = EXCLUDED.expires_at,
		   encryption_version = EXCLUDED.encryption_version,
		   updated_at = NOW()`,
		platform, stored, expiresAt, encVersion)
	if err != nil {
		return fmt.Errorf("set access token %s: %w", platform, err)
	}
	return nil
}

// GetAccessToken returns the stored token and its expiry for a platform.
// A missing or expired token yields ("", zero time, nil).
func GetAccessToken(ctx context.Context, dbx *sql.DB, platform string) (string, time.Time, error) {
	var token string
	var expiresAt time.Time
	var encVersion int
	row := dbx.QueryRowContext(ctx,
		`SELECT COALESCE(token,''), expires_at, COALESCE(encryption_version, 0)
		 FROM access_tokens WHERE platform = $1`, platform)
	err := row.Scan(&token, &expiresAt, &encVersion)
	if err == sql.ErrNoRows {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("get access token %s: %w", platform, err)
	}
	if !expiresAt.After(time.Now()) {
		return "", time.Time{}, nil
	}
	if encVersion >= 1 {
		enc, err := getEncryptor()
		if err != nil {
			return "", time.Time{}, err
		}
		if enc == nil {
			return "", time.Time{}, fmt.Errorf("access token for %s is encrypted but ENCRYPTION_KEY is not set", platform)
		}
		if token, err = crypto.DecryptString(enc, token); err != nil {
			return "", time.Time{}, fmt.Errorf("decrypt access token: %w", err)
		}
	}
	return token, expiresAt, nil
}
