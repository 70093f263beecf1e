package youtubeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onnwee/streamwatch/live"
)

func searchResult(videoID, channelTitle, title string) map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{
				"id": map[string]any{"kind": "youtube#video", "videoId": videoID},
				"snippet": map[string]any{
					"channelTitle": channelTitle,
					"title":        title,
					"publishedAt":  time.Now().Add(-40 * time.Minute).UTC().Format(time.RFC3339),
					"liveBroadcastContent": "live",
				},
			},
		},
	}
}

func TestCheckLiveMissingConfig(t *testing.T) {
	c := &Client{}
	tests := []struct {
		name string
		st   live.Settings
	}{
		{"no api key", live.Settings{Channels: []live.ChannelRef{{ID: "UC1"}}}},
		{"no channels", live.Settings{APIKey: "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := c.CheckLive(context.Background(), tt.st)
			if err != nil || len(entries) != 0 {
				t.Fatalf("got (%v, %v), want empty without error", entries, err)
			}
		})
	}
}

// One search request per channel; a server error on one channel is skipped
// without aborting the scan of the remaining channels.
func TestCheckLivePerChannelIsolation(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		channelID := r.URL.Query().Get("channelId")
		calls = append(calls, channelID)
		if r.URL.Query().Get("eventType") != "live" || r.URL.Query().Get("type") != "video" {
			t.Errorf("query = %v", r.URL.Query())
		}
		if r.URL.Query().Get("key") != "api-key" {
			t.Errorf("missing api key param, query = %v", r.URL.Query())
		}
		switch channelID {
		case "UCbroken":
			http.Error(w, `{"error":{"code":500}}`, http.StatusInternalServerError)
		case "UClive":
			_ = json.NewEncoder(w).Encode(searchResult("vid123", "LiveChannel", "streaming now"))
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
		}
	}))
	defer srv.Close()

	c := &Client{Endpoint: srv.URL + "/"}
	entries, err := c.CheckLive(context.Background(), live.Settings{
		APIKey: "api-key",
		Channels: []live.ChannelRef{
			{ID: "UCbroken"},
			{ID: "UClive"},
			{ID: "UCoffline"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) != 3 {
		t.Fatalf("search calls = %v, want one per channel", calls)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v, want one", entries)
	}
	e := entries[0]
	if e.PlatformKey != "yt-UClive" {
		t.Errorf("platform key = %s", e.PlatformKey)
	}
	if e.URL != "https://www.youtube.com/watch?v=vid123" {
		t.Errorf("url = %s", e.URL)
	}
	if e.DisplayName != "LiveChannel" || e.Title != "streaming now" {
		t.Errorf("entry = %+v", e)
	}
}
