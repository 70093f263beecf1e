// Package live holds the domain types shared by the platform adapters, the
// poll orchestrator, and the notifier: per-platform settings, normalized
// live entries, and the consolidated snapshot written on every poll cycle.
package live

import (
	"fmt"
	"time"
)

// Platform identifiers used as keys in settings, token storage, and snapshots.
const (
	PlatformTwitch  = "twitch"
	PlatformKick    = "kick"
	PlatformYouTube = "youtube"
)

// Platforms lists all supported platforms in snapshot order.
var Platforms = []string{PlatformTwitch, PlatformKick, PlatformYouTube}

// ChannelRef identifies one configured channel. Which fields are set depends
// on the platform: Twitch uses ID (user id) and Login, Kick uses ID
// (broadcaster user id) and Slug, YouTube uses ID (channel id) only.
type ChannelRef struct {
	ID    string `json:"id"`
	Login string `json:"login,omitempty"`
	Slug  string `json:"slug,omitempty"`
}

// Settings is the in-memory per-platform configuration used for a poll.
// AccessToken is materialized from short-lived token storage when settings
// are loaded and is never written back to the durable record.
type Settings struct {
	Platform     string       `json:"platform"`
	ClientID     string       `json:"client_id"`
	ClientSecret string       `json:"client_secret,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	APIKey       string       `json:"api_key,omitempty"`
	AccessToken  string       `json:"-"`
	Channels     []ChannelRef `json:"channels"`
}

// Entry is the normalized result of a single live channel check.
type Entry struct {
	PlatformKey string `json:"platform_key"`
	DisplayName string `json:"display_name"`
	Title       string `json:"title"`
	Game        string `json:"game,omitempty"`
	Viewers     int    `json:"viewers,omitempty"`
	StartedAt   string `json:"started_at"`
	Uptime      string `json:"uptime"`
	URL         string `json:"url"`
}

// State is the full snapshot written by each poll cycle. It is replaced
// wholesale, never merged; a platform that failed contributes an empty list.
type State struct {
	Twitch  []Entry `json:"twitch"`
	Kick    []Entry `json:"kick"`
	YouTube []Entry `json:"youtube"`
}

// Keys returns the set of platform keys currently live in the snapshot.
func (s State) Keys() map[string]struct{} {
	out := make(map[string]struct{}, len(s.Twitch)+len(s.Kick)+len(s.YouTube))
	for _, list := range [][]Entry{s.Twitch, s.Kick, s.YouTube} {
		for _, e := range list {
			out[e.PlatformKey] = struct{}{}
		}
	}
	return out
}

// Key builds the stable cross-poll identity for a channel. The prefix is the
// platform name except for YouTube, which uses the historical "yt" prefix.
func Key(platform, id string) string {
	if platform == PlatformYouTube {
		return "yt-" + id
	}
	return platform + "-" + id
}

// FormatUptime renders elapsed wall-clock time since startedAt (RFC3339) as
// "{h}h {m}m", or "{m}m" when under an hour. Negative elapsed time (clock
// skew) clamps to zero; an unparseable timestamp yields the empty string.
func FormatUptime(startedAt string, now time.Time) string {
	t, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return ""
	}
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
