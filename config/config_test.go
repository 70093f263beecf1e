package config

import (
	"testing"
	"time"

	"github.com/onnwee/streamwatch/live"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("ListenAddr default: %q", cfg.ListenAddr)
	}
	if cfg.PollInterval != time.Minute {
		t.Fatalf("PollInterval default: %v", cfg.PollInterval)
	}
	if cfg.TokenRefreshInterval != 3*time.Hour+30*time.Minute {
		t.Fatalf("TokenRefreshInterval default: %v", cfg.TokenRefreshInterval)
	}
	if cfg.DBDsn == "" {
		t.Fatal("DBDsn default missing")
	}
}

func TestLoadIntervalOverride(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "30s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Fatalf("PollInterval: %v", cfg.PollInterval)
	}
}

func TestLoadRejectsBadInterval(t *testing.T) {
	t.Setenv("NOTIFY_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparsable interval")
	}
}

func TestParseChannels(t *testing.T) {
	refs := parseChannels(" 123:alpha , 456 ,, 789:beta ")
	if len(refs) != 3 {
		t.Fatalf("got %d refs: %+v", len(refs), refs)
	}
	if refs[0].ID != "123" || refs[0].Login != "alpha" || refs[0].Slug != "alpha" {
		t.Fatalf("first ref: %+v", refs[0])
	}
	if refs[1].ID != "456" || refs[1].Login != "" {
		t.Fatalf("second ref: %+v", refs[1])
	}
}

func TestPlatformSettings(t *testing.T) {
	t.Setenv("TWITCH_CLIENT_ID", "cid")
	t.Setenv("TWITCH_CLIENT_SECRET", "secret")
	t.Setenv("TWITCH_CHANNELS", "1:alpha")
	t.Setenv("YOUTUBE_API_KEY", "key")
	t.Setenv("YOUTUBE_CHANNELS", "UC123")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	seeds := cfg.PlatformSettings()
	tw, ok := seeds[live.PlatformTwitch]
	if !ok || tw.ClientID != "cid" || len(tw.Channels) != 1 {
		t.Fatalf("twitch seed: %+v", tw)
	}
	yt, ok := seeds[live.PlatformYouTube]
	if !ok || yt.APIKey != "key" || yt.Channels[0].ID != "UC123" {
		t.Fatalf("youtube seed: %+v", yt)
	}
	if _, ok := seeds[live.PlatformKick]; ok {
		t.Fatal("kick should not be seeded without credentials")
	}
}
