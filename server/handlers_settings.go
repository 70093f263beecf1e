package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/streamwatch/live"
)

type settingsPayload struct {
	ClientID     string            `json:"client_id"`
	ClientSecret string            `json:"client_secret"`
	RefreshToken string            `json:"refresh_token"`
	APIKey       string            `json:"api_key"`
	Channels     []live.ChannelRef `json:"channels"`
}

type settingsView struct {
	Platform        string            `json:"platform"`
	ClientID        string            `json:"client_id,omitempty"`
	HasClientSecret bool              `json:"has_client_secret"`
	HasRefreshToken bool              `json:"has_refresh_token"`
	HasAPIKey       bool              `json:"has_api_key"`
	Channels        []live.ChannelRef `json:"channels"`
}

// HandleSettings serves GET and PUT for /settings/{platform}. Reads never
// return secret values, only presence flags. Writes merge into the stored
// record: empty fields keep their current values, so channels can be updated
// without re-sending credentials.
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	platform := strings.TrimPrefix(r.URL.Path, "/settings/")
	switch platform {
	case live.PlatformTwitch, live.PlatformKick, live.PlatformYouTube:
	default:
		http.Error(w, "unknown platform", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		st, err := h.store.LoadSettings(r.Context(), platform)
		if err != nil {
			slog.Error("settings read failed", slog.String("platform", platform), slog.Any("err", err))
			http.Error(w, "settings read failed", http.StatusInternalServerError)
			return
		}
		view := settingsView{
			Platform:        platform,
			ClientID:        st.ClientID,
			HasClientSecret: st.ClientSecret != "",
			HasRefreshToken: st.RefreshToken != "",
			HasAPIKey:       st.APIKey != "",
			Channels:        st.Channels,
		}
		if view.Channels == nil {
			view.Channels = []live.ChannelRef{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	case http.MethodPut:
		var body settingsPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		update := live.Settings{
			Platform:     platform,
			ClientID:     strings.TrimSpace(body.ClientID),
			ClientSecret: strings.TrimSpace(body.ClientSecret),
			RefreshToken: strings.TrimSpace(body.RefreshToken),
			APIKey:       strings.TrimSpace(body.APIKey),
			Channels:     body.Channels,
		}
		if err := h.store.SaveSettings(r.Context(), platform, update); err != nil {
			slog.Error("settings save failed", slog.String("platform", platform), slog.Any("err", err))
			http.Error(w, "settings save failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandlePoll triggers an immediate poll cycle. The cycle runs in the
// background; the handler acknowledges without waiting for it.
func (h *Handlers) HandlePoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.poller == nil {
		http.Error(w, "poller not configured", http.StatusServiceUnavailable)
		return
	}
	go h.poller.RunOnce(h.ctx)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "poll started"})
}
