// Package poll implements the polling orchestrator: on every cycle it merges
// durable settings with fresh access tokens, runs the three platform checks
// independently, and replaces the shared live snapshot wholesale. One
// platform failing never blocks the others' results from being recorded.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/streamwatch/live"
	"github.com/onnwee/streamwatch/telemetry"
)

// Checker is the common adapter contract for a platform live check.
type Checker interface {
	CheckLive(ctx context.Context, st live.Settings) ([]live.Entry, error)
}

// Store is the storage surface the orchestrator needs.
type Store interface {
	LoadSettings(ctx context.Context, platform string) (live.Settings, error)
	GetAccessToken(ctx context.Context, platform string) (string, time.Time, error)
	SetLiveState(ctx context.Context, state live.State, polledAt time.Time) error
}

// Outcome is the tagged result of one platform check. The orchestrator
// consumes outcomes uniformly: a failure contributes an empty list to the
// snapshot and is logged, never propagated.
type Outcome struct {
	Platform string
	Entries  []live.Entry
	Err      error
}

// Service runs poll cycles.
type Service struct {
	Store   Store
	Twitch  Checker
	Kick    Checker
	YouTube Checker
}

// PollAll runs one full poll cycle and writes the consolidated snapshot plus
// the poll timestamp, unconditionally, even when every platform came back
// empty. The returned state mirrors what was written.
func (s *Service) PollAll(ctx context.Context) (live.State, error) {
	ctx, span := telemetry.StartSpan(ctx, "poll", "poll.all")
	defer span.End()

	outcomes := s.checkAll(ctx)
	var state live.State
	for _, o := range outcomes {
		if o.Err != nil {
			telemetry.CountPollError(o.Platform)
			slog.Warn("platform check failed", slog.String("platform", o.Platform), slog.Any("err", o.Err))
		}
		telemetry.SetLiveChannels(o.Platform, len(o.Entries))
		switch o.Platform {
		case live.PlatformTwitch:
			state.Twitch = o.Entries
		case live.PlatformKick:
			state.Kick = o.Entries
		case live.PlatformYouTube:
			state.YouTube = o.Entries
		}
	}

	if err := s.Store.SetLiveState(ctx, state, time.Now()); err != nil {
		telemetry.RecordError(span, err)
		return state, err
	}
	if telemetry.PollCycles != nil {
		telemetry.PollCycles.Inc()
	}
	telemetry.SetSpanSuccess(span)
	return state, nil
}

// checkAll fans the three platform checks out concurrently. Each check loads
// its own settings so a settings read failure is isolated to its platform.
func (s *Service) checkAll(ctx context.Context) []Outcome {
	checkers := []struct {
		platform string
		checker  Checker
	}{
		{live.PlatformTwitch, s.Twitch},
		{live.PlatformKick, s.Kick},
		{live.PlatformYouTube, s.YouTube},
	}
	outcomes := make([]Outcome, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func(i int, platform string, checker Checker) {
			defer wg.Done()
			outcomes[i] = s.checkOne(ctx, platform, checker)
		}(i, c.platform, c.checker)
	}
	wg.Wait()
	return outcomes
}

func (s *Service) checkOne(ctx context.Context, platform string, checker Checker) Outcome {
	ctx, span := telemetry.StartSpan(ctx, "poll", "poll.check", telemetry.PlatformAttr(platform))
	defer span.End()
	if checker == nil {
		return Outcome{Platform: platform}
	}
	st, err := s.Store.LoadSettings(ctx, platform)
	if err != nil {
		telemetry.RecordError(span, err)
		return Outcome{Platform: platform, Err: err}
	}
	// Materialize the short-lived token into the in-memory settings only.
	if tok, _, err := s.Store.GetAccessToken(ctx, platform); err != nil {
		slog.Warn("access token read failed", slog.String("platform", platform), slog.Any("err", err))
	} else {
		st.AccessToken = tok
	}
	entries, err := checker.CheckLive(ctx, st)
	if err != nil {
		telemetry.RecordError(span, err)
		return Outcome{Platform: platform, Err: err}
	}
	telemetry.SetSpanSuccess(span)
	return Outcome{Platform: platform, Entries: entries}
}

// RunOnce executes one measured poll cycle, logging the result. Used for both
// scheduled cycles and out-of-band poll_now triggers. Overlapping runs are
// not serialized; the snapshot write is last-writer-wins by design.
func (s *Service) RunOnce(ctx context.Context) {
	var state live.State
	var err error
	d := telemetry.TimeFunc(telemetry.PollDuration, func() {
		state, err = s.PollAll(ctx)
	})
	if err != nil {
		slog.Error("poll cycle failed to persist snapshot", slog.Any("err", err))
		return
	}
	slog.Debug("poll cycle complete",
		slog.Duration("took", d),
		slog.Int("twitch", len(state.Twitch)),
		slog.Int("kick", len(state.Kick)),
		slog.Int("youtube", len(state.YouTube)))
}

// Start runs the polling loop until ctx is canceled. The first cycle fires
// immediately; subsequent cycles follow the interval.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	slog.Info("poller started", slog.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("poller stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}
