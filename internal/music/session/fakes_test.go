package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keshon/radio-domme/internal/music/media"
	"github.com/keshon/radio-domme/internal/music/stream"
	"github.com/keshon/radio-domme/internal/music/voice"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fakeConn struct {
	channelID string
	destroyed atomic.Int32
	frames    atomic.Int64
}

func (c *fakeConn) ChannelID() string { return c.channelID }

func (c *fakeConn) WriteFrame(pcm []int16) error {
	if c.destroyed.Load() > 0 {
		return voice.ErrClosed
	}
	c.frames.Add(1)
	time.Sleep(500 * time.Microsecond)
	return nil
}

func (c *fakeConn) Destroy() error {
	c.destroyed.Add(1)
	return nil
}

type fakeTransport struct {
	mu    sync.Mutex
	conns []*fakeConn
	fail  error
}

func (t *fakeTransport) Join(ctx context.Context, guildID, channelID string) (voice.Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail != nil {
		return nil, t.fail
	}
	c := &fakeConn{channelID: channelID}
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *fakeTransport) joins() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

func (t *fakeTransport) live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.conns {
		if c.destroyed.Load() == 0 {
			n++
		}
	}
	return n
}

func (t *fakeTransport) conn(i int) *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[i]
}

// liveStream yields silence until closed.
type liveStream struct {
	once   sync.Once
	closed chan struct{}
	count  *atomic.Int32
}

func newLiveStream() *liveStream { return &liveStream{closed: make(chan struct{})} }

func (s *liveStream) Read(p []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, errors.New("use of closed network connection")
	default:
	}
	clear(p)
	return len(p), nil
}

func (s *liveStream) Close() error {
	s.once.Do(func() {
		close(s.closed)
		if s.count != nil {
			s.count.Add(1)
		}
	})
	return nil
}

// failingStream yields a few frames and then err (io.EOF for a clean end).
type failingStream struct {
	left int
	err  error
}

func (s *failingStream) Read(p []byte) (int, error) {
	if s.left <= 0 {
		return 0, s.err
	}
	n := min(len(p), s.left)
	clear(p[:n])
	s.left -= n
	return n, nil
}

func (s *failingStream) Close() error { return nil }

func endingStream(frames int, err error) io.ReadCloser {
	return &failingStream{left: frames * stream.FrameBytes, err: err}
}

// fakeStreams hands out streams from open, per call number (starting at 1).
type fakeStreams struct {
	calls atomic.Int32
	open  func(call int, url string) (io.ReadCloser, error)
}

func (f *fakeStreams) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	n := int(f.calls.Add(1))
	if f.open == nil {
		return newLiveStream(), nil
	}
	return f.open(n, url)
}

type fakeMedia struct{}

func (fakeMedia) Search(ctx context.Context, query string, engine media.Engine) ([]media.Track, error) {
	return []media.Track{{ID: "5EpyN_6dqyk", Title: query}}, nil
}

func (fakeMedia) Open(ctx context.Context, track media.Track) (io.ReadCloser, error) {
	return newLiveStream(), nil
}

type ended struct {
	req Request
	err error
}

type fakeNotifier struct {
	ch chan ended
}

func newFakeNotifier() *fakeNotifier { return &fakeNotifier{ch: make(chan ended, 8)} }

func (n *fakeNotifier) SessionEnded(req Request, err error) {
	n.ch <- ended{req: req, err: err}
}

func (n *fakeNotifier) wait(t *testing.T) ended {
	t.Helper()
	select {
	case e := <-n.ch:
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("no session end notification")
	}
	return ended{}
}

func identityDecode(up io.ReadCloser) (io.ReadCloser, error) { return up, nil }
