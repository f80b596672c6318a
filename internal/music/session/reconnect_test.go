package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/keshon/radio-domme/internal/music/player"
	"github.com/keshon/radio-domme/pkg/jobmgr"
)

func TestIdleStreamReconnects(t *testing.T) {
	streams := &fakeStreams{open: func(call int, _ string) (io.ReadCloser, error) {
		if call == 1 {
			return endingStream(3, io.EOF), nil
		}
		return newLiveStream(), nil
	}}
	env := newTestEnv(t, streams, ReconnectOptions{})

	first, err := env.svc.Play(context.Background(), radioRequest("A", 60))
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, "reconnected session", func() bool {
		h, ok := env.svc.Get("g1")
		return ok && h != first
	})
	h, _ := env.svc.Get("g1")
	if h.Generation() != first.Generation() {
		t.Errorf("restart changed generation %d -> %d", first.Generation(), h.Generation())
	}
	if h.Volume() != 60 || h.Request.Station.Name != "A" {
		t.Errorf("restart lost the request: %+v volume=%d", h.Request, h.Volume())
	}
	if env.tr.conn(0).destroyed.Load() != 1 {
		t.Error("old connection not destroyed")
	}
	if env.tr.live() != 1 {
		t.Errorf("expected one live connection, got %d", env.tr.live())
	}
	if first.State() != StateStopped {
		t.Errorf("old handle in state %s", first.State())
	}
}

func TestStopDuringBackoffCancelsRestart(t *testing.T) {
	streams := &fakeStreams{open: func(call int, _ string) (io.ReadCloser, error) {
		return endingStream(2, io.EOF), nil
	}}
	env := newTestEnv(t, streams, ReconnectOptions{Delay: 150 * time.Millisecond})

	env.svc.Play(context.Background(), radioRequest("A", 50))
	waitFor(t, "scheduled reconnect", func() bool { return env.svc.policy.Pending("g1") })

	if !env.svc.Stop("g1") {
		t.Fatal("Stop must report the idle session")
	}
	time.Sleep(300 * time.Millisecond)

	if env.svc.Has("g1") {
		t.Error("session reinstalled after stop")
	}
	if env.tr.joins() != 1 {
		t.Errorf("expected no rejoin, got %d joins", env.tr.joins())
	}
	if env.svc.policy.Pending("g1") {
		t.Error("reconnect still pending")
	}
}

func TestTransientErrorReconnects(t *testing.T) {
	streams := &fakeStreams{open: func(call int, _ string) (io.ReadCloser, error) {
		if call == 1 {
			return endingStream(2, fmt.Errorf("read tcp: %w", syscall.ECONNRESET)), nil
		}
		return newLiveStream(), nil
	}}
	env := newTestEnv(t, streams, ReconnectOptions{})

	env.svc.Play(context.Background(), radioRequest("A", 50))
	waitFor(t, "second join", func() bool { return env.tr.joins() == 2 && env.svc.Has("g1") })

	select {
	case e := <-env.notifier.ch:
		t.Errorf("unexpected end notification: %v", e.err)
	default:
	}
}

func TestFatalErrorReleasesAndNotifies(t *testing.T) {
	streams := &fakeStreams{open: func(call int, _ string) (io.ReadCloser, error) {
		return endingStream(2, errors.New("invalid data found when processing input")), nil
	}}
	env := newTestEnv(t, streams, ReconnectOptions{})

	env.svc.Play(context.Background(), radioRequest("A", 50))
	e := env.notifier.wait(t)

	var fe *FatalPlayerError
	if !errors.As(e.err, &fe) {
		t.Fatalf("expected FatalPlayerError, got %v", e.err)
	}
	if e.req.TextChannelID != "tc1" || e.req.Station.Name != "A" {
		t.Errorf("notification carries the wrong request: %+v", e.req)
	}
	waitFor(t, "released session", func() bool { return !env.svc.Has("g1") })
	if env.tr.joins() != 1 {
		t.Errorf("fatal errors must not reconnect, got %d joins", env.tr.joins())
	}
	if env.tr.live() != 0 {
		t.Error("voice connection left open")
	}
}

func TestExhaustedBudgetNotifies(t *testing.T) {
	streams := &fakeStreams{open: func(call int, _ string) (io.ReadCloser, error) {
		if call == 1 {
			return endingStream(2, io.EOF), nil
		}
		return nil, errors.New("502 bad gateway")
	}}
	env := newTestEnv(t, streams, ReconnectOptions{MaxAttempts: 2})

	env.svc.Play(context.Background(), radioRequest("A", 50))
	e := env.notifier.wait(t)

	if !errors.Is(e.err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", e.err)
	}
	if got := env.streams.calls.Load(); got != 3 {
		t.Errorf("expected 1 open and 2 retries, got %d opens", got)
	}
	if env.svc.Has("g1") {
		t.Error("session left after exhaustion")
	}
	if env.svc.policy.Attempts("g1") != 0 {
		t.Error("attempt count not cleared")
	}
}

func TestStableSessionResetsAttempts(t *testing.T) {
	streams := &fakeStreams{open: func(call int, _ string) (io.ReadCloser, error) {
		return endingStream(2, io.EOF), nil
	}}
	env := newTestEnv(t, streams, ReconnectOptions{MaxAttempts: 1, StableAfter: time.Nanosecond})

	env.svc.Play(context.Background(), radioRequest("A", 50))
	waitFor(t, "several reconnects", func() bool { return env.tr.joins() >= 4 })

	env.svc.Stop("g1")
	select {
	case e := <-env.notifier.ch:
		t.Errorf("budget must reset after stable playback, got %v", e.err)
	default:
	}
}

func TestStopAsDuringBackoffNeedsOwner(t *testing.T) {
	streams := &fakeStreams{open: func(call int, _ string) (io.ReadCloser, error) {
		if call == 1 {
			return endingStream(2, io.EOF), nil
		}
		return newLiveStream(), nil
	}}
	env := newTestEnv(t, streams, ReconnectOptions{Delay: 200 * time.Millisecond})

	env.svc.Play(context.Background(), radioRequest("A", 50))
	waitFor(t, "scheduled reconnect", func() bool { return env.svc.policy.Pending("g1") })

	if err := env.svc.StopAs("g1", "", "intruder", false); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if !env.svc.policy.Pending("g1") || !env.svc.Has("g1") {
		t.Fatal("rejected stop changed the session")
	}

	if err := env.svc.StopAs("g1", "", "moderator", true); err != nil {
		t.Fatalf("admin stop: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	if env.svc.Has("g1") || env.svc.policy.Pending("g1") {
		t.Error("session survived the admin stop")
	}
	if env.tr.joins() != 1 {
		t.Errorf("expected no rejoin, got %d joins", env.tr.joins())
	}
}

func TestStopAsAfterFailedRestartNeedsOwner(t *testing.T) {
	streams := &fakeStreams{open: func(call int, _ string) (io.ReadCloser, error) {
		if call == 1 {
			return endingStream(2, io.EOF), nil
		}
		return nil, errors.New("dial tcp: connection refused")
	}}
	env := newTestEnv(t, streams, ReconnectOptions{Delay: 100 * time.Millisecond})

	env.svc.Play(context.Background(), radioRequest("A", 50))
	waitFor(t, "failed restart", func() bool {
		return env.streams.calls.Load() >= 2 && !env.svc.Has("g1") && env.svc.policy.Pending("g1")
	})

	for _, who := range []struct {
		user  string
		admin bool
	}{{"intruder", false}, {"u2", false}} {
		if err := env.svc.StopAs("g1", "", who.user, who.admin); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%s: expected ErrUnauthorized, got %v", who.user, err)
		}
	}
	if !env.svc.policy.Pending("g1") {
		t.Fatal("rejected stop cancelled the reconnect")
	}

	if err := env.svc.StopAs("g1", "", "u1", false); err != nil {
		t.Fatalf("requester stop: %v", err)
	}
	opens := env.streams.calls.Load()
	time.Sleep(250 * time.Millisecond)
	if env.svc.policy.Pending("g1") {
		t.Error("reconnect still pending after the requester stopped it")
	}
	if got := env.streams.calls.Load(); got != opens {
		t.Errorf("reconnect kept running: %d -> %d opens", opens, got)
	}
}

func TestStopAsWithoutSessionOrReconnect(t *testing.T) {
	env := newTestEnv(t, nil, ReconnectOptions{})
	if err := env.svc.StopAs("g1", "", "u1", true); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestCloseStopsReconnectsOnSharedJobs(t *testing.T) {
	streams := &fakeStreams{open: func(call int, _ string) (io.ReadCloser, error) {
		if call == 1 {
			return endingStream(2, io.EOF), nil
		}
		return nil, errors.New("dial tcp: connection refused")
	}}
	jobs := jobmgr.NewManager(nil)
	defer jobs.Close()
	svc := NewService(Deps{
		Transport: &fakeTransport{},
		Streams:   streams,
		Media:     fakeMedia{},
		Decode:    identityDecode,
		Jobs:      jobs,
	}, Options{
		Reconnect:     ReconnectOptions{Delay: 20 * time.Millisecond},
		PlayerOptions: []player.Option{player.WithFrameInterval(time.Millisecond)},
	})

	svc.Play(context.Background(), radioRequest("A", 50))
	waitFor(t, "failed restart", func() bool { return streams.calls.Load() >= 2 })

	svc.Close()
	time.Sleep(50 * time.Millisecond)
	opens := streams.calls.Load()
	time.Sleep(150 * time.Millisecond)

	if jobs.Pending(jobName("g1")) {
		t.Error("reconnect still scheduled after Close")
	}
	if got := streams.calls.Load(); got != opens {
		t.Errorf("reconnect kept running after Close: %d -> %d opens", opens, got)
	}
}

func TestSignalsFromReplacedSessionAreIgnored(t *testing.T) {
	env := newTestEnv(t, nil, ReconnectOptions{Delay: 200 * time.Millisecond})

	old, err := env.svc.Play(context.Background(), radioRequest("A", 50))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.Play(context.Background(), radioRequest("B", 50)); err != nil {
		t.Fatal(err)
	}

	obs := env.svc.policy.Observer(old)
	obs.OnIdle()
	obs.OnError(errors.New("invalid data found when processing input"))

	if env.svc.policy.Pending("g1") {
		t.Error("stale idle scheduled a reconnect")
	}
	if env.svc.policy.Attempts("g1") != 0 {
		t.Errorf("stale idle counted an attempt: %d", env.svc.policy.Attempts("g1"))
	}
	time.Sleep(50 * time.Millisecond)
	h, ok := env.svc.Get("g1")
	if !ok || h.Request.Station.Name != "B" {
		t.Fatal("stale fatal error released the new session")
	}
	select {
	case e := <-env.notifier.ch:
		t.Errorf("unexpected end notification: %v", e.err)
	default:
	}
}
