// Package kickapi checks live status for configured Kick channels via the
// public channels endpoint and refreshes expired user access tokens with a
// plain refresh-token grant. The initial PKCE authorization happens in the
// settings surface; this package only ever sees refresh tokens.
package kickapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/onnwee/streamwatch/live"
)

// TokenStore persists refreshed credentials, mirroring the twitchapi contract.
type TokenStore interface {
	SetAccessToken(ctx context.Context, platform, token string, expiresAt time.Time) error
	SaveRefreshToken(ctx context.Context, platform, refreshToken string) error
}

// Client queries the Kick public API for channel status.
type Client struct {
	HTTPClient *http.Client
	APIBase    string // defaults to https://api.kick.com
	AuthBase   string // defaults to https://id.kick.com
	Tokens     TokenStore
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) apiBase() string {
	if c.APIBase != "" {
		return c.APIBase
	}
	return "https://api.kick.com"
}

type channelsResponse struct {
	Data []struct {
		BroadcasterUserID int    `json:"broadcaster_user_id"`
		Slug              string `json:"slug"`
		StreamTitle       string `json:"stream_title"`
		Category          struct {
			Name string `json:"name"`
		} `json:"category"`
		Stream struct {
			IsLive      bool   `json:"is_live"`
			ViewerCount int    `json:"viewer_count"`
			StartTime   string `json:"start_time"`
		} `json:"stream"`
	} `json:"data"`
}

// CheckLive returns one live.Entry per configured channel the server flags as
// live. Only the channel list is required; an access token is optional but
// lifts rate limits. A 401/403 with refresh credentials available triggers
// the refresh grant and a single retry.
func (c *Client) CheckLive(ctx context.Context, st live.Settings) ([]live.Entry, error) {
	if len(st.Channels) == 0 {
		return nil, nil
	}

	entries, status, err := c.fetchChannels(ctx, st)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		if st.ClientID == "" || st.ClientSecret == "" || st.RefreshToken == "" {
			return nil, fmt.Errorf("kick channels request failed with status %d and no refresh credentials", status)
		}
		if err := c.refreshInto(ctx, &st); err != nil {
			return nil, fmt.Errorf("refresh after %d: %w", status, err)
		}
		entries, status, err = c.fetchChannels(ctx, st)
		if err != nil {
			return nil, err
		}
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("kick channels request failed with status %d", status)
	}
	return entries, nil
}

func (c *Client) refreshInto(ctx context.Context, st *live.Settings) error {
	res, err := c.Refresh(ctx, st.ClientID, st.ClientSecret, st.RefreshToken)
	if err != nil {
		return err
	}
	if c.Tokens != nil {
		if err := c.Tokens.SetAccessToken(ctx, live.PlatformKick, res.AccessToken, ComputeExpiry(res.ExpiresIn)); err != nil {
			return fmt.Errorf("persist access token: %w", err)
		}
		if res.RefreshToken != "" && res.RefreshToken != st.RefreshToken {
			if err := c.Tokens.SaveRefreshToken(ctx, live.PlatformKick, res.RefreshToken); err != nil {
				return fmt.Errorf("persist refresh token: %w", err)
			}
		}
	}
	st.AccessToken = res.AccessToken
	if res.RefreshToken != "" {
		st.RefreshToken = res.RefreshToken
	}
	return nil
}

func (c *Client) fetchChannels(ctx context.Context, st live.Settings) ([]live.Entry, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase()+"/public/v1/channels", nil)
	if err != nil {
		return nil, 0, err
	}
	q := req.URL.Query()
	for _, ch := range st.Channels {
		if ch.ID != "" {
			q.Add("broadcaster_user_id", ch.ID)
		}
	}
	req.URL.RawQuery = q.Encode()
	if st.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+st.AccessToken)
	}

	resp, err := c.http().Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return nil, resp.StatusCode, nil
	}

	var body channelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode channels response: %w", err)
	}
	now := time.Now()
	var out []live.Entry
	for _, ch := range body.Data {
		if !ch.Stream.IsLive {
			continue
		}
		out = append(out, live.Entry{
			PlatformKey: live.Key(live.PlatformKick, strconv.Itoa(ch.BroadcasterUserID)),
			DisplayName: ch.Slug,
			Title:       ch.StreamTitle,
			Game:        ch.Category.Name,
			Viewers:     ch.Stream.ViewerCount,
			StartedAt:   ch.Stream.StartTime,
			Uptime:      live.FormatUptime(ch.Stream.StartTime, now),
			URL:         "https://kick.com/" + ch.Slug,
		})
	}
	return out, resp.StatusCode, nil
}

// ComputeExpiry returns the absolute expiry for an expires_in value,
// defaulting to +60m when the field is missing.
func ComputeExpiry(seconds int) time.Time {
	if seconds <= 0 {
		return time.Now().Add(60 * time.Minute)
	}
	return time.Now().Add(time.Duration(seconds) * time.Second)
}
