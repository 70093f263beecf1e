package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/onnwee/streamwatch/db"
	"github.com/onnwee/streamwatch/live"
	"github.com/onnwee/streamwatch/testutil"
)

func TestSettingsRoundTrip(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	ctx := context.Background()

	err := db.SaveSettings(ctx, dbx, live.PlatformTwitch, live.Settings{
		ClientID:     "cid",
		ClientSecret: "csecret",
		RefreshToken: "rt1",
		Channels:     []live.ChannelRef{{ID: "42", Login: "streamer"}},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.LoadSettings(ctx, dbx, live.PlatformTwitch)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ClientID != "cid" || got.ClientSecret != "csecret" || got.RefreshToken != "rt1" {
		t.Errorf("loaded settings = %+v", got)
	}
	if len(got.Channels) != 1 || got.Channels[0].ID != "42" {
		t.Errorf("channels = %+v", got.Channels)
	}
	if got.AccessToken != "" {
		t.Errorf("durable record produced an access token: %q", got.AccessToken)
	}
}

func TestSaveSettingsMergePreservesOtherPlatforms(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	ctx := context.Background()

	if err := db.SaveSettings(ctx, dbx, live.PlatformTwitch, live.Settings{ClientID: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveSettings(ctx, dbx, live.PlatformKick, live.Settings{ClientID: "k", RefreshToken: "kr"}); err != nil {
		t.Fatal(err)
	}

	// Partial update for twitch must leave kick untouched and keep twitch's client id.
	if err := db.SaveSettings(ctx, dbx, live.PlatformTwitch, live.Settings{
		Channels: []live.ChannelRef{{ID: "1", Login: "one"}},
	}); err != nil {
		t.Fatal(err)
	}

	tw, err := db.LoadSettings(ctx, dbx, live.PlatformTwitch)
	if err != nil {
		t.Fatal(err)
	}
	if tw.ClientID != "x" {
		t.Errorf("twitch client id = %q, want x", tw.ClientID)
	}
	if len(tw.Channels) != 1 {
		t.Errorf("twitch channels = %+v", tw.Channels)
	}
	kick, err := db.LoadSettings(ctx, dbx, live.PlatformKick)
	if err != nil {
		t.Fatal(err)
	}
	if kick.ClientID != "k" || kick.RefreshToken != "kr" {
		t.Errorf("kick settings changed: %+v", kick)
	}
}

func TestLoadSettingsMissingPlatform(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	got, err := db.LoadSettings(context.Background(), dbx, live.PlatformYouTube)
	if err != nil {
		t.Fatalf("missing record should not error: %v", err)
	}
	if got.ClientID != "" || len(got.Channels) != 0 {
		t.Errorf("expected zero settings, got %+v", got)
	}
}

func TestAccessTokenExpiry(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	ctx := context.Background()

	if err := db.SetAccessToken(ctx, dbx, live.PlatformTwitch, "tok", time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	tok, exp, err := db.GetAccessToken(ctx, dbx, live.PlatformTwitch)
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok" || !exp.After(time.Now()) {
		t.Errorf("got token %q expiry %v", tok, exp)
	}

	// Expired tokens read back as empty.
	if err := db.SetAccessToken(ctx, dbx, live.PlatformKick, "stale", time.Now().Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	tok, _, err = db.GetAccessToken(ctx, dbx, live.PlatformKick)
	if err != nil {
		t.Fatal(err)
	}
	if tok != "" {
		t.Errorf("expired token returned %q, want empty", tok)
	}
}

func TestKVRoundTrip(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	ctx := context.Background()

	if v, err := db.GetKV(ctx, dbx, "absent"); err != nil || v != "" {
		t.Fatalf("GetKV(absent) = (%q, %v)", v, err)
	}
	if err := db.SetKV(ctx, dbx, "live_state", `{"twitch":[]}`); err != nil {
		t.Fatal(err)
	}
	if err := db.SetKV(ctx, dbx, "live_state", `{"twitch":[{"platform_key":"twitch-1"}]}`); err != nil {
		t.Fatal(err)
	}
	v, err := db.GetKV(ctx, dbx, "live_state")
	if err != nil {
		t.Fatal(err)
	}
	if v != `{"twitch":[{"platform_key":"twitch-1"}]}` {
		t.Errorf("kv value = %s", v)
	}
}
