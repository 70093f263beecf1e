// Package notify implements the notification differ: it compares the latest
// persisted live snapshot against the set of channels already seen live and
// emits one notification per channel that newly went live.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/streamwatch/live"
	"github.com/onnwee/streamwatch/telemetry"
)

// Store is the snapshot read surface the differ needs.
type Store interface {
	GetLiveState(ctx context.Context) (live.State, error)
}

// Sink delivers one newly-live notification. The entry's PlatformKey is the
// stable notification identity.
type Sink interface {
	Notify(ctx context.Context, e live.Entry) error
}

// Notifier owns the previous-live set. The set lives for the process only:
// after a restart every currently-live channel notifies once more, which is
// the accepted trade-off for not persisting it.
type Notifier struct {
	Store Store
	Sinks []Sink

	mu   sync.Mutex
	prev map[string]struct{}
}

// New returns a Notifier with an empty previous-live set.
func New(store Store, sinks ...Sink) *Notifier {
	return &Notifier{Store: store, Sinks: sinks, prev: make(map[string]struct{})}
}

// CheckLiveChannels reads the latest snapshot, notifies for every platform
// key present now but absent from the previous check, and then replaces the
// previous set unconditionally, regardless of how many sends succeeded. A
// channel that stays live across checks notifies at most once; going offline
// and back live notifies again.
func (n *Notifier) CheckLiveChannels(ctx context.Context) error {
	state, err := n.Store.GetLiveState(ctx)
	if err != nil {
		return err
	}
	current := state.Keys()

	n.mu.Lock()
	var fresh []live.Entry
	for _, list := range [][]live.Entry{state.Twitch, state.Kick, state.YouTube} {
		for _, e := range list {
			if _, seen := n.prev[e.PlatformKey]; !seen {
				fresh = append(fresh, e)
			}
		}
	}
	n.prev = current
	n.mu.Unlock()

	for _, e := range fresh {
		n.send(ctx, e)
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, e live.Entry) {
	if telemetry.NotificationsSent != nil {
		telemetry.NotificationsSent.Inc()
	}
	for _, sink := range n.Sinks {
		if err := sink.Notify(ctx, e); err != nil {
			if telemetry.NotificationFails != nil {
				telemetry.NotificationFails.Inc()
			}
			slog.Warn("notification sink failed", slog.String("key", e.PlatformKey), slog.Any("err", err))
		}
	}
}

// Start runs the notification check loop until ctx is canceled.
func (n *Notifier) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	slog.Info("notifier started", slog.Duration("interval", interval), slog.Int("sinks", len(n.Sinks)))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("notifier stopped")
			return
		case <-ticker.C:
			if err := n.CheckLiveChannels(ctx); err != nil {
				slog.Warn("notification check failed", slog.Any("err", err))
			}
		}
	}
}
