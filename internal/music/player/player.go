package player

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/keshon/radio-domme/internal/music/stream"
)

// Observer receives the player's end-of-playback signals. Callbacks run on
// the playback goroutine after it has released the resource, so they may
// call back into the player.
type Observer interface {
	// OnIdle fires when the resource ended (EOF or starved).
	OnIdle()
	// OnError fires on a read or subscriber failure.
	OnError(err error)
}

// Subscriber consumes PCM frames, typically a voice connection.
type Subscriber interface {
	WriteFrame(pcm []int16) error
}

type Status string

const (
	StatusIdle    Status = "Idle"
	StatusPlaying Status = "Playing"
)

var ErrNoTrackPlaying = errors.New("nothing is currently playing")

type signal int

const (
	signalNone signal = iota
	signalIdle
	signalError
)

// Player plays one PCM resource at a time to any number of subscribers.
// With no subscribers it keeps reading at real-time pace.
type Player struct {
	mu       sync.Mutex
	playing  bool
	resource io.ReadCloser
	subs     []Subscriber

	stopPlayback chan struct{}
	playbackDone chan struct{}

	observer      Observer
	volume        atomic.Int32
	frameInterval time.Duration
	log           zerolog.Logger
}

type Option func(*Player)

// WithFrameInterval sets the pacing used when nobody is subscribed.
func WithFrameInterval(d time.Duration) Option {
	return func(p *Player) { p.frameInterval = d }
}

// WithLogger replaces the default module logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Player) { p.log = l }
}

// New creates a Player. observer may be nil.
func New(observer Observer, opts ...Option) *Player {
	p := &Player{
		observer:      observer,
		frameInterval: 20 * time.Millisecond,
		log:           log.With().Str("module", "player").Logger(),
	}
	p.volume.Store(100)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe attaches s. The returned func detaches it.
func (p *Player) Subscribe(s Subscriber) func() {
	p.mu.Lock()
	p.subs = append(p.subs, s)
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if i := slices.Index(p.subs, s); i >= 0 {
				p.subs = slices.Delete(p.subs, i, i+1)
			}
		})
	}
}

// Play starts resource at volume percent. A resource already playing is
// stopped first, without a signal. The player closes resource when playback
// ends, so its Close must be idempotent.
func (p *Player) Play(resource io.ReadCloser, volume int) {
	p.Stop()

	p.SetVolume(volume)

	p.mu.Lock()
	p.playing = true
	p.resource = resource
	p.stopPlayback = make(chan struct{})
	p.playbackDone = make(chan struct{})
	stop, done := p.stopPlayback, p.playbackDone
	p.mu.Unlock()

	p.log.Debug().Int("volume", volume).Msg("Playback started")
	go p.run(resource, stop, done)
}

// Stop ends playback without emitting a signal and waits for the playback
// goroutine to exit. It reports whether anything was playing.
func (p *Player) Stop() bool {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return false
	}
	p.playing = false
	stop, done, res := p.stopPlayback, p.playbackDone, p.resource
	p.resource = nil
	p.mu.Unlock()

	close(stop)
	res.Close() // unblock a pending read
	<-done

	p.log.Debug().Msg("Playback stopped")
	return true
}

// SetVolume changes the gain of the running resource. It returns the clamped value.
func (p *Player) SetVolume(percent int) int {
	percent = stream.ClampVolume(percent)
	p.volume.Store(int32(percent))
	return percent
}

func (p *Player) Volume() int { return int(p.volume.Load()) }

func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Player) Status() Status {
	if p.IsPlaying() {
		return StatusPlaying
	}
	return StatusIdle
}

func (p *Player) subscribers() []Subscriber {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.subs)
}

func (p *Player) run(res io.ReadCloser, stop <-chan struct{}, done chan struct{}) {
	sig, err := p.loop(res, stop)

	// Stop may have won the race; in that case it owns the signal (none).
	owned := p.finish(done)
	if owned {
		res.Close()
	}
	close(done)

	if !owned || p.observer == nil {
		return
	}
	switch sig {
	case signalIdle:
		p.log.Info().Msg("Stream ended")
		p.observer.OnIdle()
	case signalError:
		p.log.Warn().Err(err).Msg("Playback error")
		p.observer.OnError(err)
	}
}

func (p *Player) finish(done chan struct{}) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing || p.playbackDone != done {
		return false
	}
	p.playing = false
	p.resource = nil
	return true
}

func (p *Player) loop(res io.Reader, stop <-chan struct{}) (signal, error) {
	pcmBuf := make([]byte, stream.FrameBytes)
	frame := make([]int16, stream.FrameSize*stream.Channels)

	var ticker *time.Ticker
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-stop:
			return signalNone, nil
		default:
		}

		if _, err := io.ReadFull(res, pcmBuf); err != nil {
			select {
			case <-stop:
				return signalNone, nil
			default:
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return signalIdle, nil
			}
			return signalError, fmt.Errorf("read error: %w", err)
		}

		for i := range frame {
			frame[i] = int16(binary.LittleEndian.Uint16(pcmBuf[i*2 : i*2+2]))
		}
		stream.ApplyGain(frame, int(p.volume.Load()))

		subs := p.subscribers()
		if len(subs) == 0 {
			if ticker == nil {
				ticker = time.NewTicker(p.frameInterval)
			}
			select {
			case <-stop:
				return signalNone, nil
			case <-ticker.C:
			}
			continue
		}

		for _, s := range subs {
			if err := s.WriteFrame(frame); err != nil {
				select {
				case <-stop:
					return signalNone, nil
				default:
				}
				return signalError, fmt.Errorf("subscriber error: %w", err)
			}
		}
	}
}
