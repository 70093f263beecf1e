package kickapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/onnwee/streamwatch/live"
	"github.com/onnwee/streamwatch/testutil"
)

type recordingTokenStore struct {
	accessToken  string
	refreshToken string
}

func (r *recordingTokenStore) SetAccessToken(_ context.Context, _, token string, _ time.Time) error {
	r.accessToken = token
	return nil
}

func (r *recordingTokenStore) SaveRefreshToken(_ context.Context, _, refreshToken string) error {
	r.refreshToken = refreshToken
	return nil
}

func kickChannel(id int, slug string, isLive bool) map[string]any {
	return map[string]any{
		"broadcaster_user_id": id,
		"slug":                slug,
		"stream_title":        "playing games",
		"category":            map[string]any{"name": "IRL"},
		"stream": map[string]any{
			"is_live":      isLive,
			"viewer_count": 55,
			"start_time":   time.Now().Add(-25 * time.Minute).UTC().Format(time.RFC3339),
		},
	}
}

func TestCheckLiveNoChannelsConfigured(t *testing.T) {
	c := &Client{}
	entries, err := c.CheckLive(context.Background(), live.Settings{})
	if err != nil || len(entries) != 0 {
		t.Fatalf("got (%v, %v), want empty without error", entries, err)
	}
}

func TestCheckLiveFiltersOffline(t *testing.T) {
	m := testutil.NewMockPlatformServer(t)
	m.MockKickChannelsResponse([]map[string]any{
		kickChannel(7, "seven", true),
		kickChannel(8, "eight", false),
	})
	respond := m.Handlers["/public/v1/channels"]
	m.Handlers["/public/v1/channels"] = func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query()["broadcaster_user_id"]; len(got) != 2 {
			t.Errorf("broadcaster_user_id params = %v", got)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected auth header without token: %q", r.Header.Get("Authorization"))
		}
		respond(w, r)
	}

	c := &Client{APIBase: m.URL}
	entries, err := c.CheckLive(context.Background(), live.Settings{
		Channels: []live.ChannelRef{{ID: "7", Slug: "seven"}, {ID: "8", Slug: "eight"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v, want only the live channel", entries)
	}
	e := entries[0]
	if e.PlatformKey != "kick-7" || e.URL != "https://kick.com/seven" || e.Game != "IRL" {
		t.Errorf("entry = %+v", e)
	}
	if e.Uptime != "25m" {
		t.Errorf("uptime = %s", e.Uptime)
	}
}

func TestCheckLiveRefreshRetry(t *testing.T) {
	var channelCalls int
	m := testutil.NewMockPlatformServer(t)
	m.Handlers["/public/v1/channels"] = func(w http.ResponseWriter, r *http.Request) {
		channelCalls++
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{kickChannel(9, "nine", true)}})
	}
	m.MockTokenResponse("/oauth/token", "fresh", "rotated", 7200)
	grant := m.Handlers["/oauth/token"]
	m.Handlers["/oauth/token"] = func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.Form.Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %s", r.Form.Get("grant_type"))
		}
		// PKCE verifier must not appear in refresh grants.
		if r.Form.Get("code_verifier") != "" {
			t.Error("refresh grant carried a code_verifier")
		}
		grant(w, r)
	}

	store := &recordingTokenStore{}
	c := &Client{APIBase: m.URL, AuthBase: m.URL, Tokens: store}
	entries, err := c.CheckLive(context.Background(), live.Settings{
		ClientID:     "c",
		ClientSecret: "s",
		RefreshToken: "rt",
		AccessToken:  "stale",
		Channels:     []live.ChannelRef{{ID: "9"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].PlatformKey != "kick-9" {
		t.Fatalf("entries = %+v", entries)
	}
	if channelCalls != 2 {
		t.Errorf("channel calls = %d, want 2", channelCalls)
	}
	if store.accessToken != "fresh" || store.refreshToken != "rotated" {
		t.Errorf("token store = %+v", store)
	}
}

func TestCheckLiveAuthFailureWithoutRefreshCreds(t *testing.T) {
	m := testutil.NewMockPlatformServer(t)
	m.Handlers["/public/v1/channels"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}

	c := &Client{APIBase: m.URL}
	_, err := c.CheckLive(context.Background(), live.Settings{
		AccessToken: "whatever",
		Channels:    []live.ChannelRef{{ID: "1"}},
	})
	if err == nil {
		t.Fatal("expected error when no refresh credentials exist")
	}
}
