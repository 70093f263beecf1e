// Package youtubeapi checks live status for configured YouTube channels via
// the Data API v3 search endpoint. The platform offers no batch live lookup
// and no refresh path: authentication is a static API key, and each channel
// costs one search request filtered to live broadcasts.
package youtubeapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	yt "google.golang.org/api/youtube/v3"
	"google.golang.org/api/option"

	"github.com/onnwee/streamwatch/live"
)

// Client queries the YouTube Data API. Endpoint and HTTPClient exist for
// tests; zero values hit the real API.
type Client struct {
	HTTPClient *http.Client
	Endpoint   string
}

func (c *Client) service(ctx context.Context, apiKey string) (*yt.Service, error) {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	if c.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(c.HTTPClient))
	}
	return yt.NewService(ctx, opts...)
}

// CheckLive scans the configured channels sequentially, taking at most the
// first live search hit per channel. A failed request for one channel is
// logged and skipped; the remaining channels are still checked. Missing API
// key or channel list yields an empty result.
func (c *Client) CheckLive(ctx context.Context, st live.Settings) ([]live.Entry, error) {
	if st.APIKey == "" || len(st.Channels) == 0 {
		return nil, nil
	}
	svc, err := c.service(ctx, st.APIKey)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var out []live.Entry
	for _, ch := range st.Channels {
		if ch.ID == "" {
			continue
		}
		resp, err := svc.Search.List([]string{"snippet"}).
			ChannelId(ch.ID).
			Type("video").
			EventType("live").
			MaxResults(1).
			Context(ctx).
			Do()
		if err != nil {
			slog.Warn("youtube live search failed", slog.String("channel_id", ch.ID), slog.Any("err", err))
			continue
		}
		if len(resp.Items) == 0 {
			continue
		}
		item := resp.Items[0]
		videoID := ""
		if item.Id != nil {
			videoID = item.Id.VideoId
		}
		entry := live.Entry{
			PlatformKey: live.Key(live.PlatformYouTube, ch.ID),
			URL:         "https://www.youtube.com/watch?v=" + videoID,
		}
		if item.Snippet != nil {
			entry.DisplayName = item.Snippet.ChannelTitle
			entry.Title = item.Snippet.Title
			entry.StartedAt = item.Snippet.PublishedAt
			entry.Uptime = live.FormatUptime(item.Snippet.PublishedAt, now)
		}
		out = append(out, entry)
	}
	return out, nil
}
