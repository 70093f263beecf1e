package live

import (
	"fmt"
	"testing"
	"time"
)

func TestFormatUptime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		startedAt string
		want      string
	}{
		{
			name:      "under an hour",
			startedAt: "2025-06-01T11:35:00Z",
			want:      "25m",
		},
		{
			name:      "over an hour",
			startedAt: "2025-06-01T09:17:00Z",
			want:      "2h 43m",
		},
		{
			name:      "exactly one hour",
			startedAt: "2025-06-01T11:00:00Z",
			want:      "1h 0m",
		},
		{
			name:      "just started",
			startedAt: "2025-06-01T12:00:00Z",
			want:      "0m",
		},
		{
			name:      "start in the future clamps to zero",
			startedAt: "2025-06-01T12:30:00Z",
			want:      "0m",
		},
		{
			name:      "malformed timestamp",
			startedAt: "not-a-timestamp",
			want:      "",
		},
		{
			name:      "empty timestamp",
			startedAt: "",
			want:      "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatUptime(tt.startedAt, now); got != tt.want {
				t.Errorf("FormatUptime(%q) = %q, want %q", tt.startedAt, got, tt.want)
			}
		})
	}
}

func TestFormatUptimeMonotonic(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	startedAt := start.Format(time.RFC3339)
	prevHours, prevMins := -1, -1
	for elapsed := time.Minute; elapsed <= 5*time.Hour; elapsed += 17 * time.Minute {
		got := FormatUptime(startedAt, start.Add(elapsed))
		var h, m int
		if elapsed >= time.Hour {
			if _, err := fmt.Sscanf(got, "%dh %dm", &h, &m); err != nil {
				t.Fatalf("unexpected format %q at elapsed %v: %v", got, elapsed, err)
			}
		} else {
			if _, err := fmt.Sscanf(got, "%dm", &m); err != nil {
				t.Fatalf("unexpected format %q at elapsed %v: %v", got, elapsed, err)
			}
		}
		if h < prevHours || (h == prevHours && m < prevMins) {
			t.Fatalf("uptime not monotonic: %dh%dm after %dh%dm", h, m, prevHours, prevMins)
		}
		prevHours, prevMins = h, m
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		platform string
		id       string
		want     string
	}{
		{PlatformTwitch, "42", "twitch-42"},
		{PlatformKick, "123", "kick-123"},
		{PlatformYouTube, "UCabc", "yt-UCabc"},
	}
	for _, tt := range tests {
		if got := Key(tt.platform, tt.id); got != tt.want {
			t.Errorf("Key(%s, %s) = %s, want %s", tt.platform, tt.id, got, tt.want)
		}
	}
}

func TestStateKeys(t *testing.T) {
	st := State{
		Twitch: []Entry{{PlatformKey: "twitch-1"}, {PlatformKey: "twitch-2"}},
		Kick:   []Entry{{PlatformKey: "kick-9"}},
	}
	keys := st.Keys()
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(keys))
	}
	for _, k := range []string{"twitch-1", "twitch-2", "kick-9"} {
		if _, ok := keys[k]; !ok {
			t.Errorf("missing key %s", k)
		}
	}
}
