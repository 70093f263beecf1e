// Package server exposes the HTTP API handlers.
package server

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/onnwee/streamwatch/live"
	"github.com/onnwee/streamwatch/twitchapi"
)

const (
	// Maximum number of OAuth states to keep in memory
	maxOAuthStates = 10000
)

// SettingsStore is the persistence surface the HTTP handlers need. It is
// satisfied by db.Store.
type SettingsStore interface {
	LoadSettings(ctx context.Context, platform string) (live.Settings, error)
	SaveSettings(ctx context.Context, platform string, update live.Settings) error
	SaveRefreshToken(ctx context.Context, platform, refreshToken string) error
	SetAccessToken(ctx context.Context, platform, token string, expiresAt time.Time) error
	GetAccessToken(ctx context.Context, platform string) (string, time.Time, error)
	GetLiveState(ctx context.Context) (live.State, error)
	LastPollAt(ctx context.Context) (time.Time, error)
}

// Poller triggers an immediate poll cycle.
type Poller interface {
	RunOnce(ctx context.Context)
}

// Deps carries the handler dependencies beyond the raw DB handle.
type Deps struct {
	Store  SettingsStore
	Poller Poller
	// Twitch is used for the OAuth code exchange; its AuthBase can be
	// pointed at a test server.
	Twitch *twitchapi.Client
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db         *sql.DB
	ctx        context.Context
	store      SettingsStore
	poller     Poller
	twitch     *twitchapi.Client
	stateStore map[string]time.Time
	verifiers  map[string]string
	stateMu    sync.RWMutex
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(ctx context.Context, db *sql.DB, deps Deps) *Handlers {
	twitch := deps.Twitch
	if twitch == nil {
		twitch = &twitchapi.Client{}
	}
	return &Handlers{
		db:         db,
		ctx:        ctx,
		store:      deps.Store,
		poller:     deps.Poller,
		twitch:     twitch,
		stateStore: make(map[string]time.Time),
		verifiers:  make(map[string]string),
	}
}

// cleanExpiredStates removes expired OAuth states from the store.
// This should be called with stateMu locked.
func (h *Handlers) cleanExpiredStates() {
	now := time.Now()
	for state, expiry := range h.stateStore {
		if now.After(expiry) {
			delete(h.stateStore, state)
		}
	}
}

// addOAuthState adds a new OAuth state to the store with cleanup if needed.
func (h *Handlers) addOAuthState(state string, expiry time.Time) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	// Clean expired states periodically to prevent unbounded growth
	if len(h.stateStore)%100 == 0 {
		h.cleanExpiredStates()
	}

	// Refuse new states over the cap rather than grow without bound.
	if len(h.stateStore) >= maxOAuthStates {
		return
	}

	h.stateStore[state] = expiry
}

// consumeOAuthState validates and removes a state value, returning whether it
// was known and unexpired.
func (h *Handlers) consumeOAuthState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	exp, ok := h.stateStore[state]
	if !ok {
		return false
	}
	delete(h.stateStore, state)
	return !time.Now().After(exp)
}
