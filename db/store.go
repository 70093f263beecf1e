package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/onnwee/streamwatch/live"
)

// Snapshot kv keys shared by the poll orchestrator, the notifier, and the
// status endpoint.
const (
	KeyLiveState  = "live_state"
	KeyLastPollAt = "last_poll_at"
)

// Store bundles the data access helpers behind one receiver so components
// can depend on the narrow interfaces they declare (token store, settings
// store, snapshot store) instead of *sql.DB.
type Store struct {
	DB *sql.DB
}

func NewStore(dbx *sql.DB) *Store { return &Store{DB: dbx} }

func (s *Store) LoadSettings(ctx context.Context, platform string) (live.Settings, error) {
	return LoadSettings(ctx, s.DB, platform)
}

func (s *Store) SaveSettings(ctx context.Context, platform string, update live.Settings) error {
	return SaveSettings(ctx, s.DB, platform, update)
}

// SaveRefreshToken persists a rotated refresh token into the durable record
// via the merge-save path, leaving all other fields intact.
func (s *Store) SaveRefreshToken(ctx context.Context, platform, refreshToken string) error {
	return SaveSettings(ctx, s.DB, platform, live.Settings{RefreshToken: refreshToken})
}

func (s *Store) SetAccessToken(ctx context.Context, platform, token string, expiresAt time.Time) error {
	return SetAccessToken(ctx, s.DB, platform, token, expiresAt)
}

func (s *Store) GetAccessToken(ctx context.Context, platform string) (string, time.Time, error) {
	return GetAccessToken(ctx, s.DB, platform)
}

// SetLiveState replaces the consolidated snapshot and stamps the poll time.
func (s *Store) SetLiveState(ctx context.Context, state live.State, polledAt time.Time) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode live state: %w", err)
	}
	if err := SetKV(ctx, s.DB, KeyLiveState, string(raw)); err != nil {
		return err
	}
	return SetKV(ctx, s.DB, KeyLastPollAt, polledAt.UTC().Format(time.RFC3339))
}

// GetLiveState returns the last persisted snapshot, or a zero snapshot when
// no poll has completed yet.
func (s *Store) GetLiveState(ctx context.Context) (live.State, error) {
	var state live.State
	raw, err := GetKV(ctx, s.DB, KeyLiveState)
	if err != nil {
		return state, err
	}
	if raw == "" {
		return state, nil
	}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return state, fmt.Errorf("decode live state: %w", err)
	}
	return state, nil
}

// LastPollAt returns the timestamp of the last completed poll, zero when none.
func (s *Store) LastPollAt(ctx context.Context) (time.Time, error) {
	raw, err := GetKV(ctx, s.DB, KeyLastPollAt)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last poll timestamp: %w", err)
	}
	return t, nil
}
