package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/streamwatch/live"
)

type platformStatus struct {
	Configured      bool   `json:"configured"`
	Channels        int    `json:"channels"`
	Live            int    `json:"live"`
	HasAccessToken  bool   `json:"has_access_token"`
	HasRefreshToken bool   `json:"has_refresh_token"`
	TokenExpiresAt  string `json:"token_expires_at,omitempty"`
}

// HandleStatus returns a lightweight summary: per-platform configuration and
// token health plus the latest live snapshot.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	resp := map[string]any{}

	state, err := h.store.GetLiveState(ctx)
	if err != nil {
		slog.Warn("status: live state read failed", slog.Any("err", err))
	}
	liveCounts := map[string]int{
		live.PlatformTwitch:  len(state.Twitch),
		live.PlatformKick:    len(state.Kick),
		live.PlatformYouTube: len(state.YouTube),
	}

	platforms := map[string]platformStatus{}
	for _, platform := range live.Platforms {
		st, err := h.store.LoadSettings(ctx, platform)
		if err != nil {
			slog.Warn("status: settings read failed", slog.String("platform", platform), slog.Any("err", err))
			continue
		}
		ps := platformStatus{
			Configured:      st.ClientID != "" || st.APIKey != "",
			Channels:        len(st.Channels),
			Live:            liveCounts[platform],
			HasRefreshToken: st.RefreshToken != "",
		}
		if token, expiresAt, err := h.store.GetAccessToken(ctx, platform); err == nil && token != "" {
			ps.HasAccessToken = true
			ps.TokenExpiresAt = expiresAt.UTC().Format(time.RFC3339)
		}
		platforms[platform] = ps
	}
	resp["platforms"] = platforms
	resp["live"] = state

	if last, err := h.store.LastPollAt(ctx); err == nil && !last.IsZero() {
		resp["last_poll_at"] = last.UTC().Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
