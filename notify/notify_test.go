package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/onnwee/streamwatch/live"
)

type fakeSnapshotStore struct {
	state live.State
	err   error
}

func (f *fakeSnapshotStore) GetLiveState(context.Context) (live.State, error) {
	return f.state, f.err
}

type recordingSink struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (r *recordingSink) Notify(_ context.Context, e live.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, e.PlatformKey)
	return r.err
}

func twitchEntry(id, name string) live.Entry {
	return live.Entry{
		PlatformKey: live.Key(live.PlatformTwitch, id),
		DisplayName: name,
		URL:         "https://twitch.tv/" + name,
	}
}

func TestNotifyOnlyNewlyLive(t *testing.T) {
	store := &fakeSnapshotStore{state: live.State{
		Twitch: []live.Entry{twitchEntry("1", "alpha")},
	}}
	sink := &recordingSink{}
	n := New(store, sink)

	if err := n.CheckLiveChannels(context.Background()); err != nil {
		t.Fatalf("first check: %v", err)
	}
	if len(sink.keys) != 1 || sink.keys[0] != "twitch-1" {
		t.Fatalf("expected one notification for twitch-1, got %v", sink.keys)
	}

	// alpha stays live, beta goes live: exactly one more notification.
	store.state = live.State{Twitch: []live.Entry{
		twitchEntry("1", "alpha"),
		twitchEntry("2", "beta"),
	}}
	if err := n.CheckLiveChannels(context.Background()); err != nil {
		t.Fatalf("second check: %v", err)
	}
	if len(sink.keys) != 2 || sink.keys[1] != "twitch-2" {
		t.Fatalf("expected only twitch-2 on second check, got %v", sink.keys)
	}
}

func TestNotifyAgainAfterOffline(t *testing.T) {
	store := &fakeSnapshotStore{state: live.State{
		Kick: []live.Entry{{PlatformKey: "kick-9", DisplayName: "gamma"}},
	}}
	sink := &recordingSink{}
	n := New(store, sink)

	if err := n.CheckLiveChannels(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	store.state = live.State{}
	if err := n.CheckLiveChannels(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	store.state = live.State{
		Kick: []live.Entry{{PlatformKey: "kick-9", DisplayName: "gamma"}},
	}
	if err := n.CheckLiveChannels(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}

	if len(sink.keys) != 2 {
		t.Fatalf("expected two notifications (live, offline, live again), got %v", sink.keys)
	}
}

func TestNotifyCrossPlatform(t *testing.T) {
	store := &fakeSnapshotStore{state: live.State{
		Twitch:  []live.Entry{twitchEntry("1", "alpha")},
		YouTube: []live.Entry{{PlatformKey: "yt-UC123", DisplayName: "delta"}},
	}}
	sink := &recordingSink{}
	n := New(store, sink)

	if err := n.CheckLiveChannels(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(sink.keys) != 2 {
		t.Fatalf("expected notifications for both platforms, got %v", sink.keys)
	}
}

func TestSinkFailureDoesNotPoisonSet(t *testing.T) {
	store := &fakeSnapshotStore{state: live.State{
		Twitch: []live.Entry{twitchEntry("1", "alpha")},
	}}
	sink := &recordingSink{err: errors.New("send failed")}
	n := New(store, sink)

	if err := n.CheckLiveChannels(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	// Even though the send failed, the channel is recorded as seen and is
	// not re-notified on the next check.
	if err := n.CheckLiveChannels(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(sink.keys) != 1 {
		t.Fatalf("expected a single attempt despite sink failure, got %v", sink.keys)
	}
}

func TestStoreErrorKeepsPreviousSet(t *testing.T) {
	store := &fakeSnapshotStore{state: live.State{
		Twitch: []live.Entry{twitchEntry("1", "alpha")},
	}}
	sink := &recordingSink{}
	n := New(store, sink)

	if err := n.CheckLiveChannels(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}

	store.err = errors.New("db down")
	if err := n.CheckLiveChannels(context.Background()); err == nil {
		t.Fatal("expected error when the snapshot read fails")
	}

	// Recover with the same channel still live: no duplicate notification.
	store.err = nil
	if err := n.CheckLiveChannels(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(sink.keys) != 1 {
		t.Fatalf("expected no duplicate after store error recovery, got %v", sink.keys)
	}
}
