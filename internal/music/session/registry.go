package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/keshon/radio-domme/internal/metrics"
)

// Factory builds a session for the given guild generation. It must either
// return a live handle or release everything it acquired.
type Factory func(ctx context.Context, generation uint64) (*Handle, error)

type guildState struct {
	mu         sync.Mutex    // serializes Start, Restart, Stop and Release
	generation atomic.Uint64 // written under mu
	current    atomic.Pointer[Handle]
}

// Registry holds at most one live session per guild.
type Registry struct {
	mu     sync.Mutex
	guilds map[string]*guildState
	closed bool

	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewRegistry creates an empty registry. m may be nil.
func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		guilds:  make(map[string]*guildState),
		metrics: m,
		log:     log.With().Str("module", "registry").Logger(),
	}
}

func (r *Registry) state(guildID string) (*guildState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	gs, ok := r.guilds[guildID]
	if !ok {
		gs = &guildState{}
		r.guilds[guildID] = gs
	}
	return gs, nil
}

func (r *Registry) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Registry) lookup(guildID string) *guildState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.guilds[guildID]
}

// Start tears down any session of the guild, invalidates pending restarts
// and installs the session built by factory.
func (r *Registry) Start(ctx context.Context, guildID string, factory Factory) (*Handle, error) {
	gs, err := r.state(guildID)
	if err != nil {
		return nil, err
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	// Close may have run while we waited for the guild lock.
	if r.isClosed() {
		return nil, ErrClosed
	}

	r.teardownLocked(gs, "replaced")
	gs.generation.Add(1)
	return r.installLocked(ctx, guildID, gs, factory)
}

// Restart rebuilds the guild's session if its generation still equals
// expected, and returns ErrSuperseded otherwise. A failed restart leaves no
// entry and keeps the generation, so the same chain may retry.
func (r *Registry) Restart(ctx context.Context, guildID string, expected uint64, factory Factory) (*Handle, error) {
	gs, err := r.state(guildID)
	if err != nil {
		return nil, err
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if r.isClosed() {
		return nil, ErrClosed
	}

	if gs.generation.Load() != expected {
		return nil, ErrSuperseded
	}
	r.teardownLocked(gs, "restart")
	return r.installLocked(ctx, guildID, gs, factory)
}

// Stop tears down the guild's session and invalidates pending restarts.
// It reports whether a session existed.
func (r *Registry) Stop(guildID string) bool {
	gs := r.lookup(guildID)
	if gs == nil {
		return false
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()

	gs.generation.Add(1)
	return r.teardownLocked(gs, "stop")
}

// StopIf stops the guild's session when check accepts it. The check runs
// under the guild lock, so the session cannot change in between. It returns
// ErrNoSession when nothing is live, or the check's error.
func (r *Registry) StopIf(guildID string, check func(*Handle) error) error {
	gs := r.lookup(guildID)
	if gs == nil {
		return ErrNoSession
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()

	h := gs.current.Load()
	if h == nil {
		return ErrNoSession
	}
	if err := check(h); err != nil {
		return err
	}
	gs.generation.Add(1)
	r.teardownLocked(gs, "stop")
	return nil
}

// Release ends the chain of generation: the entry (if any, a failed
// restart leaves none) is torn down and pending restarts become stale.
// It reports false when the guild already moved to another generation.
func (r *Registry) Release(guildID string, generation uint64) bool {
	gs := r.lookup(guildID)
	if gs == nil {
		return false
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.generation.Load() != generation {
		return false
	}
	gs.generation.Add(1)
	r.teardownLocked(gs, "released")
	return true
}

// Generation returns the guild's current generation (0 if never started).
// It does not take the guild lock, so player callbacks may call it.
func (r *Registry) Generation(guildID string) uint64 {
	gs := r.lookup(guildID)
	if gs == nil {
		return 0
	}
	return gs.generation.Load()
}

func (r *Registry) Has(guildID string) bool {
	_, ok := r.Get(guildID)
	return ok
}

func (r *Registry) Get(guildID string) (*Handle, bool) {
	gs := r.lookup(guildID)
	if gs == nil {
		return nil, false
	}
	h := gs.current.Load()
	return h, h != nil
}

// Len counts live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, gs := range r.guilds {
		if gs.current.Load() != nil {
			n++
		}
	}
	return n
}

// Close stops every session and rejects further starts.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	ids := make([]string, 0, len(r.guilds))
	for id := range r.guilds {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Stop(id)
	}
}

func (r *Registry) installLocked(ctx context.Context, guildID string, gs *guildState, factory Factory) (*Handle, error) {
	gen := gs.generation.Load()
	h, err := factory(ctx, gen)
	if err != nil {
		r.log.Warn().Str("guild_id", guildID).Err(err).Msg("Session start failed")
		return nil, err
	}
	h.setState(StatePlaying)
	gs.current.Store(h)
	r.metrics.RecordStart(string(h.Kind))
	r.log.Info().Str("guild_id", guildID).Str("session_id", h.ID).Str("kind", string(h.Kind)).
		Uint64("generation", gen).Msg("Session started")
	return h, nil
}

func (r *Registry) teardownLocked(gs *guildState, reason string) bool {
	h := gs.current.Swap(nil)
	if h == nil {
		return false
	}
	h.Close()
	r.metrics.RecordStop(reason, h.Uptime())
	r.log.Info().Str("guild_id", h.GuildID).Str("session_id", h.ID).Str("reason", reason).Msg("Session torn down")
	return true
}
