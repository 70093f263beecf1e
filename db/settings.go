package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/onnwee/streamwatch/crypto"
	"github.com/onnwee/streamwatch/live"
)

// LoadSettings reads the durable settings record for a platform. A missing
// record yields zero-value settings, not an error; an adapter given empty
// settings simply reports no live channels. The returned AccessToken field
// is always empty; callers merge in a fresh token from GetAccessToken.
func LoadSettings(ctx context.Context, dbx *sql.DB, platform string) (live.Settings, error) {
	s := live.Settings{Platform: platform}
	var secret, refresh, channelsJSON string
	var encVersion int
	row := dbx.QueryRowContext(ctx,
		`SELECT COALESCE(client_id,''), COALESCE(client_secret,''), COALESCE(refresh_token,''),
		        COALESCE(api_key,''), channels::text, COALESCE(encryption_version, 0)
		 FROM platform_settings WHERE platform = $1`, platform)
	err := row.Scan(&s.ClientID, &secret, &refresh, &s.APIKey, &channelsJSON, &encVersion)
	if err == sql.ErrNoRows {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("load settings %s: %w", platform, err)
	}
	if encVersion >= 1 {
		enc, err := getEncryptor()
		if err != nil {
			return s, err
		}
		if enc == nil {
			return s, fmt.Errorf("settings for %s are encrypted but ENCRYPTION_KEY is not set", platform)
		}
		if secret, err = crypto.DecryptString(enc, secret); err != nil {
			return s, fmt.Errorf("decrypt client secret: %w", err)
		}
		if refresh, err = crypto.DecryptString(enc, refresh); err != nil {
			return s, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}
	s.ClientSecret = secret
	s.RefreshToken = refresh
	if channelsJSON != "" {
		if err := json.Unmarshal([]byte(channelsJSON), &s.Channels); err != nil {
			return s, fmt.Errorf("decode channels: %w", err)
		}
	}
	return s, nil
}

// SaveSettings persists settings for a platform with read-merge-write
// semantics: the current record is loaded, fields present in the update
// overwrite it, and everything else is preserved. The in-memory AccessToken
// is never written to the durable record; short-lived tokens live in the
// access_tokens table only.
//
// The read and the write are not one atomic statement. Concurrent saves for
// different platforms touch disjoint rows; concurrent saves for the same
// platform are last-writer-wins on the merged fields.
func SaveSettings(ctx context.Context, dbx *sql.DB, platform string, update live.Settings) error {
	current, err := LoadSettings(ctx, dbx, platform)
	if err != nil {
		return err
	}
	merged := mergeSettings(current, update)

	secret, refresh := merged.ClientSecret, merged.RefreshToken
	encVersion := 0
	enc, err := getEncryptor()
	if err != nil {
		return err
	}
	if enc != nil {
		encVersion = 1
		if secret, err = crypto.EncryptString(enc, secret); err != nil {
			return fmt.Errorf("encrypt client secret: %w", err)
		}
		if refresh, err = crypto.EncryptString(enc, refresh); err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
	}
	channelsJSON, err := json.Marshal(merged.Channels)
	if err != nil {
		return fmt.Errorf("encode channels: %w", err)
	}

	_, err = dbx.ExecContext(ctx,
		`INSERT INTO platform_settings (platform, client_id, client_secret, refresh_token, api_key, channels, encryption_version, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, NOW())
		 ON CONFLICT (platform) DO UPDATE SET
		   client_id = EXCLUDED.client_id,
		   client_secret = EXCLUDED.client_secret,
		   refresh_token = EXCLUDED.refresh_token,
		   api_key = EXCLUDED.api_key,
		   channels = EXCLUDED.channels,
		   encryption_version = EXCLUDED.encryption_version,
		   updated_at = NOW()`,
		platform, merged.ClientID, secret, refresh, merged.APIKey, string(channelsJSON), encVersion)
	if err != nil {
		return fmt.Errorf("save settings %s: %w", platform, err)
	}
	return nil
}

// mergeSettings applies a partial update onto the current record. Empty
// string fields in the update keep the current value; a nil channel list
// keeps the current list, a non-nil one (including empty) replaces it.
func mergeSettings(current, update live.Settings) live.Settings {
	merged := current
	merged.Platform = current.Platform
	if update.ClientID != "" {
		merged.ClientID = update.ClientID
	}
	if update.ClientSecret != "" {
		merged.ClientSecret = update.ClientSecret
	}
	if update.RefreshToken != "" {
		merged.RefreshToken = update.RefreshToken
	}
	if update.APIKey != "" {
		merged.APIKey = update.APIKey
	}
	if update.Channels != nil {
		merged.Channels = update.Channels
	}
	if merged.Channels == nil {
		merged.Channels = []live.ChannelRef{}
	}
	merged.AccessToken = ""
	return merged
}
