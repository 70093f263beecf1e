// Package twitchapi checks live status for configured Twitch channels via the
// Helix streams endpoint and handles the refresh-token grant for expired user
// access tokens.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/onnwee/streamwatch/live"
)

// TokenStore persists refreshed credentials. Access tokens go to short-lived
// storage with an explicit expiry; rotated refresh tokens go to the durable
// settings record. Implementations must never route one into the other.
type TokenStore interface {
	SetAccessToken(ctx context.Context, platform, token string, expiresAt time.Time) error
	SaveRefreshToken(ctx context.Context, platform, refreshToken string) error
}

// Client queries the Helix API for stream status.
type Client struct {
	HTTPClient *http.Client
	APIBase    string // defaults to https://api.twitch.tv
	AuthBase   string // defaults to https://id.twitch.tv
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
	return "https://api.twitch.tv"
}

type streamsResponse struct {
	Data []struct {
		UserID      string    `json:"user_id"`
		UserLogin   string    `json:"user_login"`
		UserName    string    `json:"user_name"`
		GameName    string    `json:"game_name"`
		Title       string    `json:"title"`
		ViewerCount int       `json:"viewer_count"`
		StartedAt   time.Time `json:"started_at"`
	} `json:"data"`
}

// CheckLive returns one live.Entry per configured channel currently live.
// Missing client id or channel list yields an empty result, not an error.
// On a 401/403 the refresh grant runs once and the whole check is retried
// once with the new token; a second authorization failure is returned to the
// caller, which degrades it to an empty result.
func (c *Client) CheckLive(ctx context.Context, st live.Settings) ([]live.Entry, error) {
	if st.ClientID == "" || len(st.Channels) == 0 {
		return nil, nil
	}
	// At most one refresh grant per check, whether it runs eagerly for a
	// missing token or lazily after a 401.
	refreshed := false
	if st.AccessToken == "" {
		if st.RefreshToken == "" || st.ClientSecret == "" {
			return nil, nil
		}
		if err := c.refreshInto(ctx, &st); err != nil {
			return nil, err
		}
		refreshed = true
	}

	entries, status, err := c.fetchStreams(ctx, st)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		if refreshed {
			return nil, fmt.Errorf("twitch streams request failed with status %d after refresh", status)
		}
		if err := c.refreshInto(ctx, &st); err != nil {
			return nil, fmt.Errorf("refresh after %d: %w", status, err)
		}
		entries, status, err = c.fetchStreams(ctx, st)
		if err != nil {
			return nil, err
		}
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("twitch streams request failed with status %d", status)
	}
	return entries, nil
}

// refreshInto performs the refresh grant, persists the results, and swaps the
// new access token into the in-memory settings for the retry.
func (c *Client) refreshInto(ctx context.Context, st *live.Settings) error {
	res, err := c.Refresh(ctx, st.ClientID, st.ClientSecret, st.RefreshToken)
	if err != nil {
		return err
	}
	if c.Tokens != nil {
		if err := c.Tokens.SetAccessToken(ctx, live.PlatformTwitch, res.AccessToken, ComputeExpiry(res.ExpiresIn)); err != nil {
			return fmt.Errorf("persist access token: %w", err)
		}
		if res.RefreshToken != "" && res.RefreshToken != st.RefreshToken {
			if err := c.Tokens.SaveRefreshToken(ctx, live.PlatformTwitch, res.RefreshToken); err != nil {
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

// fetchStreams issues the batched streams query. Authorization failures are
// reported through the status code so the caller can run the refresh path;
// other non-2xx statuses are also returned by status for uniform handling.
func (c *Client) fetchStreams(ctx context.Context, st live.Settings) ([]live.Entry, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase()+"/helix/streams", nil)
	if err != nil {
		return nil, 0, err
	}
	q := req.URL.Query()
	for _, ch := range st.Channels {
		if ch.ID != "" {
			q.Add("user_id", ch.ID)
		} else if ch.Login != "" {
			q.Add("user_login", ch.Login)
		}
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", st.ClientID)
	req.Header.Set("Authorization", "Bearer "+st.AccessToken)

	resp, err := c.http().Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return nil, resp.StatusCode, nil
	}

	var body streamsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode streams response: %w", err)
	}
	now := time.Now()
	out := make([]live.Entry, 0, len(body.Data))
	for _, s := range body.Data {
		started := s.StartedAt.UTC().Format(time.RFC3339)
		out = append(out, live.Entry{
			PlatformKey: live.Key(live.PlatformTwitch, s.UserID),
			DisplayName: s.UserName,
			Title:       s.Title,
			Game:        s.GameName,
			Viewers:     s.ViewerCount,
			StartedAt:   started,
			Uptime:      live.FormatUptime(started, now),
			URL:         "https://twitch.tv/" + s.UserLogin,
		})
	}
	return out, resp.StatusCode, nil
}
