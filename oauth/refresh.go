// Package oauth provides proactive token refresh scheduling for platforms
// whose credentials live in the platform_settings table. It performs jittered
// checks and refreshes when the stored access token is missing or its expiry
// falls within a configured window.
package oauth

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/onnwee/streamwatch/live"
	"github.com/onnwee/streamwatch/telemetry"
)

// Store covers the credential reads and writes a refresher needs.
type Store interface {
	LoadSettings(ctx context.Context, platform string) (live.Settings, error)
	GetAccessToken(ctx context.Context, platform string) (string, time.Time, error)
	SetAccessToken(ctx context.Context, platform, token string, expiresAt time.Time) error
	SaveRefreshToken(ctx context.Context, platform, refreshToken string) error
}

// RefreshFunc performs the platform-specific refresh grant and returns the
// new access token, the rotated refresh token (may be empty if the platform
// does not rotate), and the access token expiry.
type RefreshFunc func(ctx context.Context, st live.Settings) (accessToken, refreshToken string, expiresAt time.Time, err error)

// CheckOnce inspects the stored token for platform and refreshes it when it
// is absent or expires within window. It is a no-op when the platform has no
// refresh credentials configured.
func CheckOnce(ctx context.Context, store Store, platform string, window time.Duration, fn RefreshFunc) error {
	st, err := store.LoadSettings(ctx, platform)
	if err != nil {
		return err
	}
	if st.RefreshToken == "" || st.ClientID == "" {
		return nil
	}
	token, expiresAt, err := store.GetAccessToken(ctx, platform)
	if err != nil {
		return err
	}
	if token != "" && time.Until(expiresAt) > window {
		return nil
	}

	ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
	newAT, newRT, newExp, err := fn(ctx2, st)
	cancel()
	if err != nil {
		telemetry.CountTokenRefresh(platform, "error")
		slog.Warn("token refresh failed", slog.String("platform", platform), slog.Any("err", err))
		return err
	}
	if err := store.SetAccessToken(ctx, platform, newAT, newExp); err != nil {
		slog.Warn("token persist failed", slog.String("platform", platform), slog.Any("err", err))
		return err
	}
	if newRT != "" && newRT != st.RefreshToken {
		if err := store.SaveRefreshToken(ctx, platform, newRT); err != nil {
			slog.Warn("refresh token persist failed", slog.String("platform", platform), slog.Any("err", err))
			return err
		}
	}
	telemetry.CountTokenRefresh(platform, "ok")
	slog.Info("token refreshed", slog.String("platform", platform))
	return nil
}

// StartRefresher launches a goroutine that periodically runs CheckOnce.
// interval: how often to wake up and check. window: refresh when remaining
// lifetime <= window.
func StartRefresher(ctx context.Context, store Store, platform string, interval, window time.Duration, fn RefreshFunc) {
	if interval <= 0 {
		interval = 3*time.Hour + 30*time.Minute
	}
	if window <= 0 {
		window = time.Hour
	}
	// Randomize initial delay to spread load across instances.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
	initialJitter := time.Duration(rand.Int63n(int64(time.Minute)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			if err := CheckOnce(ctx, store, platform, window, fn); err != nil && ctx.Err() == nil {
				slog.Warn("token refresh check failed", slog.String("platform", platform), slog.Any("err", err))
			}
			// Per-iteration jitter (±20% of interval) for scheduling diversity.
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}
		}
	}()
}
