package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()
	if PollCycles == nil || PollErrors == nil || PollDuration == nil || LiveChannels == nil {
		t.Fatal("metrics not initialized")
	}
}

func TestCountersTolerateUse(t *testing.T) {
	Init()
	PollCycles.Inc()
	CountPollError("twitch")
	CountTokenRefresh("kick", "ok")
	CountTokenRefresh("kick", "error")
	SetLiveChannels("youtube", 3)
	NotificationsSent.Inc()
}

func TestTimeFuncRecordsDuration(t *testing.T) {
	Init()
	d := TimeFunc(PollDuration, func() { time.Sleep(5 * time.Millisecond) })
	if d < 5*time.Millisecond {
		t.Errorf("duration = %v, want >= 5ms", d)
	}
	// nil observer is a no-op, not a panic
	if d := TimeFunc(nil, func() {}); d < 0 {
		t.Errorf("duration = %v", d)
	}
}

func TestCorrelationRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("empty context correlation = %q", got)
	}
	ctx = WithCorrelation(ctx, "corr-1")
	if got := GetCorrelation(ctx); got != "corr-1" {
		t.Errorf("correlation = %q, want corr-1", got)
	}
	if l := LoggerWithCorr(ctx); l == nil {
		t.Fatal("nil logger")
	}
}
