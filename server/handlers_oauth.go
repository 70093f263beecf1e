package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	kicksdk "github.com/glichtv/kick-sdk"

	"github.com/onnwee/streamwatch/live"
	"github.com/onnwee/streamwatch/twitchapi"
)

func defaultTwitchScopes() []string {
	if v := os.Getenv("TWITCH_SCOPES"); v != "" {
		return strings.Fields(v)
	}
	return nil
}

// HandleTwitchOAuthStart initiates the Twitch OAuth flow by redirecting to Twitch.
func (h *Handlers) HandleTwitchOAuthStart(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.LoadSettings(r.Context(), live.PlatformTwitch)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	redirectURI := os.Getenv("TWITCH_REDIRECT_URI")
	if st.ClientID == "" || redirectURI == "" {
		http.Error(w, "oauth not configured (need twitch client_id + TWITCH_REDIRECT_URI)", http.StatusBadRequest)
		return
	}
	state, err := h.newOAuthState("")
	if err != nil {
		http.Error(w, "state gen error", 500)
		return
	}
	cfg := twitchapi.OAuthConfig(st.ClientID, st.ClientSecret, redirectURI, defaultTwitchScopes())
	http.Redirect(w, r, cfg.AuthCodeURL(state), http.StatusFound)
}

// HandleTwitchOAuthCallback handles the OAuth callback from Twitch and stores tokens.
func (h *Handlers) HandleTwitchOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		http.Error(w, "missing code/state", 400)
		return
	}
	if _, ok := h.consumeOAuthVerifier(state); !ok {
		http.Error(w, "invalid state", 400)
		return
	}
	ctx := r.Context()
	st, err := h.store.LoadSettings(ctx, live.PlatformTwitch)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	res, err := h.twitch.ExchangeAuthCode(ctx, st.ClientID, st.ClientSecret, code, os.Getenv("TWITCH_REDIRECT_URI"))
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if err := h.store.SaveRefreshToken(ctx, live.PlatformTwitch, res.RefreshToken); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if err := h.store.SetAccessToken(ctx, live.PlatformTwitch, res.AccessToken, twitchapi.ComputeExpiry(res.ExpiresIn)); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"status": "ok", "scopes": res.Scope, "expires_in": res.ExpiresIn}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

func (h *Handlers) kickSDK(st live.Settings) *kicksdk.Client {
	return kicksdk.NewClient(
		kicksdk.WithCredentials(kicksdk.Credentials{
			ClientID:     st.ClientID,
			ClientSecret: st.ClientSecret,
			RedirectURI:  os.Getenv("KICK_REDIRECT_URI"),
		}),
	)
}

// HandleKickOAuthStart initiates the Kick OAuth flow. Kick requires PKCE, so
// a code verifier is stored alongside the state for the callback.
func (h *Handlers) HandleKickOAuthStart(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.LoadSettings(r.Context(), live.PlatformKick)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if st.ClientID == "" || os.Getenv("KICK_REDIRECT_URI") == "" {
		http.Error(w, "oauth not configured (need kick client_id + KICK_REDIRECT_URI)", http.StatusBadRequest)
		return
	}
	verifier, err := generateCodeVerifier()
	if err != nil {
		http.Error(w, "verifier gen error", 500)
		return
	}
	state, err := h.newOAuthState(verifier)
	if err != nil {
		http.Error(w, "state gen error", 500)
		return
	}
	authURL := h.kickSDK(st).OAuth().AuthorizationURL(kicksdk.AuthorizationURLInput{
		ResponseType:  "code",
		State:         state,
		Scopes:        []kicksdk.OAuthScope{kicksdk.ScopeUserRead, kicksdk.ScopeChannelRead},
		CodeChallenge: generateCodeChallenge(verifier),
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleKickOAuthCallback handles the OAuth callback from Kick and stores tokens.
func (h *Handlers) HandleKickOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		http.Error(w, "missing code/state", 400)
		return
	}
	verifier, ok := h.consumeOAuthVerifier(state)
	if !ok {
		http.Error(w, "invalid state", 400)
		return
	}
	ctx := r.Context()
	st, err := h.store.LoadSettings(ctx, live.PlatformKick)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	resp, err := h.kickSDK(st).OAuth().ExchangeCode(ctx, kicksdk.ExchangeCodeInput{
		Code:         code,
		GrantType:    "authorization_code",
		CodeVerifier: verifier,
	})
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	payload := resp.Payload
	if err := h.store.SaveRefreshToken(ctx, live.PlatformKick, payload.RefreshToken); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	expiresAt := time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	if err := h.store.SetAccessToken(ctx, live.PlatformKick, payload.AccessToken, expiresAt); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"status": "ok", "scope": payload.Scope, "expires_in": payload.ExpiresIn}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

func generateCodeVerifier() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func generateCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (h *Handlers) newOAuthState(verifier string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := hex.EncodeToString(b)
	h.addOAuthState(state, time.Now().Add(10*time.Minute))
	if verifier != "" {
		h.stateMu.Lock()
		h.verifiers[state] = verifier
		h.stateMu.Unlock()
	}
	return state, nil
}

func (h *Handlers) consumeOAuthVerifier(state string) (string, bool) {
	ok := h.consumeOAuthState(state)
	h.stateMu.Lock()
	verifier := h.verifiers[state]
	delete(h.verifiers, state)
	h.stateMu.Unlock()
	return verifier, ok
}
