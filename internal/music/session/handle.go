package session

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/keshon/radio-domme/internal/music/media"
	"github.com/keshon/radio-domme/internal/music/player"
	"github.com/keshon/radio-domme/internal/music/voice"
	"github.com/keshon/radio-domme/internal/radio"
)

// Kind records which command started a session.
type Kind string

const (
	KindRadio   Kind = "radio"
	KindYouTube Kind = "youtube"
	KindTrack   Kind = "track"
)

func (k Kind) Valid() bool {
	switch k {
	case KindRadio, KindYouTube, KindTrack:
		return true
	}
	return false
}

// Request is everything needed to build, and rebuild, a session.
type Request struct {
	GuildID        string
	VoiceChannelID string
	TextChannelID  string
	RequesterID    string
	RequesterName  string
	Kind           Kind
	Station        radio.Station
	Track          media.Track
	Volume         int
}

// CanStop reports whether userID may stop the session built from r.
func (r Request) CanStop(userID string, admin bool) bool {
	return admin || userID == r.RequesterID
}

// Title is the station name or the track title.
func (r Request) Title() string {
	if r.Kind == KindRadio {
		return r.Station.Name
	}
	return r.Track.Title
}

type State int32

const (
	StateConnecting State = iota
	StatePlaying
	StateIdle
	StateErroring
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StatePlaying:
		return "playing"
	case StateIdle:
		return "idle"
	case StateErroring:
		return "erroring"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Handle is one live session: a stream bound to a voice connection through
// a player. Once installed, the registry owns it.
type Handle struct {
	ID        string
	GuildID   string
	Kind      Kind
	Request   Request
	CreatedAt time.Time

	generation uint64

	conn     voice.Connection
	player   *player.Player
	resource io.ReadCloser
	cancel   context.CancelFunc

	state     atomic.Int32
	closeOnce sync.Once
}

func newHandle(req Request, generation uint64, conn voice.Connection, resource io.ReadCloser, cancel context.CancelFunc) *Handle {
	h := &Handle{
		ID:         uuid.NewString(),
		GuildID:    req.GuildID,
		Kind:       req.Kind,
		Request:    req,
		CreatedAt:  time.Now(),
		generation: generation,
		conn:       conn,
		resource:   resource,
		cancel:     cancel,
	}
	h.state.Store(int32(StateConnecting))
	return h
}

// Generation is the guild generation the handle was built for.
func (h *Handle) Generation() uint64 { return h.generation }

func (h *Handle) State() State { return State(h.state.Load()) }

func (h *Handle) setState(s State) {
	if h.State() == StateStopped {
		return
	}
	h.state.Store(int32(s))
}

// Volume is the applied gain in percent.
func (h *Handle) Volume() int {
	if h.player == nil {
		return h.Request.Volume
	}
	return h.player.Volume()
}

// SetVolume changes the gain without interrupting playback.
func (h *Handle) SetVolume(percent int) int {
	if h.player == nil {
		return h.Request.Volume
	}
	return h.player.SetVolume(percent)
}

// restartRequest is Request carrying the current volume.
func (h *Handle) restartRequest() Request {
	req := h.Request
	req.Volume = h.Volume()
	return req
}


// Uptime is the time since the handle was built.
func (h *Handle) Uptime() time.Duration { return time.Since(h.CreatedAt) }

// Close stops the player, releases the stream and leaves voice. It is idempotent.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		h.state.Store(int32(StateStopped))
		if h.player != nil {
			h.player.Stop()
		}
		if h.resource != nil {
			h.resource.Close()
		}
		if h.cancel != nil {
			h.cancel()
		}
		if h.conn != nil {
			h.conn.Destroy()
		}
	})
}
