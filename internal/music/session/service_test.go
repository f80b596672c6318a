package session

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/keshon/radio-domme/internal/music/media"
	"github.com/keshon/radio-domme/internal/music/player"
	"github.com/keshon/radio-domme/internal/music/stream"
	"github.com/keshon/radio-domme/internal/radio"
)

type testEnv struct {
	svc      *Service
	tr       *fakeTransport
	streams  *fakeStreams
	notifier *fakeNotifier
}

func newTestEnv(t *testing.T, streams *fakeStreams, ro ReconnectOptions) *testEnv {
	t.Helper()
	if streams == nil {
		streams = &fakeStreams{}
	}
	if ro.Delay == 0 {
		ro.Delay = 20 * time.Millisecond
	}
	env := &testEnv{
		tr:       &fakeTransport{},
		streams:  streams,
		notifier: newFakeNotifier(),
	}
	env.svc = NewService(Deps{
		Transport: env.tr,
		Streams:   streams,
		Media:     fakeMedia{},
		Decode:    identityDecode,
		Notifier:  env.notifier,
	}, Options{
		Reconnect:     ro,
		PlayerOptions: []player.Option{player.WithFrameInterval(time.Millisecond)},
	})
	t.Cleanup(env.svc.Close)
	return env
}

func radioRequest(name string, volume int) Request {
	return Request{
		GuildID:        "g1",
		VoiceChannelID: "vc1",
		TextChannelID:  "tc1",
		RequesterID:    "u1",
		RequesterName:  "alice",
		Kind:           KindRadio,
		Station:        radio.Station{Name: name, URL: "https://radio.example.com/" + name},
		Volume:         volume,
	}
}

func TestPlayRadioStartsSession(t *testing.T) {
	env := newTestEnv(t, nil, ReconnectOptions{})

	h, err := env.svc.Play(context.Background(), radioRequest("Test FM", 80))
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if !env.svc.Has("g1") {
		t.Fatal("expected a session for g1")
	}
	got, _ := env.svc.Get("g1")
	if got != h {
		t.Error("registry holds a different handle")
	}
	if h.Volume() != 80 {
		t.Errorf("expected volume 80, got %d", h.Volume())
	}
	if h.Request.Title() != "Test FM" {
		t.Errorf("unexpected title %q", h.Request.Title())
	}
	if h.State() != StatePlaying {
		t.Errorf("expected playing, got %s", h.State())
	}
	waitFor(t, "frames on the voice connection", func() bool {
		return env.tr.conn(0).frames.Load() > 0
	})
}

func TestPlayRejectsBadInputWithoutSideEffects(t *testing.T) {
	env := newTestEnv(t, nil, ReconnectOptions{})

	noVoice := radioRequest("A", 50)
	noVoice.VoiceChannelID = ""

	ftp := radioRequest("A", 50)
	ftp.Station.URL = "ftp://radio.example.com/a"

	noTrack := radioRequest("A", 50)
	noTrack.Kind = KindYouTube

	badKind := radioRequest("A", 50)
	badKind.Kind = "podcast"

	for name, req := range map[string]Request{"no voice": noVoice, "ftp": ftp, "no track": noTrack, "bad kind": badKind} {
		t.Run(name, func(t *testing.T) {
			_, err := env.svc.Play(context.Background(), req)
			var in *InputError
			if !errors.As(err, &in) {
				t.Fatalf("expected InputError, got %v", err)
			}
		})
	}
	if !errors.Is(func() error { _, err := env.svc.Play(context.Background(), ftp); return err }(), stream.ErrUnsupportedScheme) {
		t.Error("ftp station must wrap ErrUnsupportedScheme")
	}
	if env.svc.Len() != 0 || env.tr.joins() != 0 || env.streams.calls.Load() != 0 {
		t.Error("rejected input must not touch the registry, voice or streams")
	}
}

func TestPlayStreamFailureLeavesNothing(t *testing.T) {
	streams := &fakeStreams{open: func(int, string) (io.ReadCloser, error) {
		return nil, &stream.StatusError{URL: "https://radio.example.com/A", Code: 404}
	}}
	env := newTestEnv(t, streams, ReconnectOptions{})

	_, err := env.svc.Play(context.Background(), radioRequest("A", 50))
	var ce *ConnectError
	if !errors.As(err, &ce) || ce.Op != "open stream" {
		t.Fatalf("expected open stream ConnectError, got %v", err)
	}
	if env.svc.Has("g1") || env.tr.joins() != 0 {
		t.Error("failed stream must not join voice or leave an entry")
	}
}

func TestPlayJoinFailureClosesStream(t *testing.T) {
	live := newLiveStream()
	streams := &fakeStreams{open: func(int, string) (io.ReadCloser, error) { return live, nil }}
	env := newTestEnv(t, streams, ReconnectOptions{})
	env.tr.fail = errors.New("missing permission to connect")

	_, err := env.svc.Play(context.Background(), radioRequest("A", 50))
	var ce *ConnectError
	if !errors.As(err, &ce) || ce.Op != "join voice" {
		t.Fatalf("expected join voice ConnectError, got %v", err)
	}
	select {
	case <-live.closed:
	default:
		t.Error("stream left open after join failure")
	}
	if env.svc.Has("g1") {
		t.Error("entry left after join failure")
	}
}

func TestPlayYouTubeTrack(t *testing.T) {
	env := newTestEnv(t, nil, ReconnectOptions{})

	h, err := env.svc.Play(context.Background(), Request{
		GuildID:        "g1",
		VoiceChannelID: "vc1",
		RequesterID:    "u1",
		Kind:           KindYouTube,
		Track:          media.Track{ID: "5EpyN_6dqyk", Title: "Lo-fi"},
		Volume:         150,
	})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if h.Volume() != stream.MaxVolume {
		t.Errorf("volume not clamped: %d", h.Volume())
	}
	if env.streams.calls.Load() != 0 {
		t.Error("tracks must be opened through the media provider")
	}
}

func TestRapidPlaysKeepTheLast(t *testing.T) {
	env := newTestEnv(t, nil, ReconnectOptions{})

	env.svc.Play(context.Background(), radioRequest("A", 50))
	env.svc.Play(context.Background(), radioRequest("B", 50))

	h, ok := env.svc.Get("g1")
	if !ok || h.Request.Station.Name != "B" {
		t.Fatalf("expected station B to play, got %+v", h)
	}
	if env.tr.live() != 1 {
		t.Errorf("expected one live connection, got %d", env.tr.live())
	}
}

func TestStopAsChecksRequester(t *testing.T) {
	env := newTestEnv(t, nil, ReconnectOptions{})
	env.svc.Play(context.Background(), radioRequest("A", 50))

	if err := env.svc.StopAs("g1", "", "u2", false); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if !env.svc.Has("g1") {
		t.Fatal("unauthorized stop ended the session")
	}
	if err := env.svc.StopAs("g1", KindYouTube, "u1", false); !errors.Is(err, ErrNoSession) {
		t.Errorf("kind mismatch must report ErrNoSession, got %v", err)
	}
	if err := env.svc.StopAs("g1", KindRadio, "u2", true); err != nil {
		t.Fatalf("admin stop: %v", err)
	}
	if env.svc.Has("g1") {
		t.Error("session left after stop")
	}
	if err := env.svc.StopAs("g1", "", "u1", false); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestSetVolume(t *testing.T) {
	env := newTestEnv(t, nil, ReconnectOptions{})

	if _, err := env.svc.SetVolume("g1", 40); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}

	env.svc.Play(context.Background(), radioRequest("A", 50))
	got, err := env.svc.SetVolume("g1", 250)
	if err != nil {
		t.Fatal(err)
	}
	if got != stream.MaxVolume {
		t.Errorf("expected clamp to %d, got %d", stream.MaxVolume, got)
	}
	h, _ := env.svc.Get("g1")
	if h.restartRequest().Volume != stream.MaxVolume {
		t.Error("restart request must carry the new volume")
	}
}
