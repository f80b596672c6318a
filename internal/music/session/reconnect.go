package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/keshon/radio-domme/internal/metrics"
	"github.com/keshon/radio-domme/internal/music/player"
	"github.com/keshon/radio-domme/pkg/jobmgr"
)

// Notifier tells the requester that a session ended for good.
type Notifier interface {
	SessionEnded(req Request, err error)
}

// ReconnectOptions bounds the retry loop.
type ReconnectOptions struct {
	Delay       time.Duration // fixed backoff before each restart
	MaxAttempts int           // 0 means unlimited
	StableAfter time.Duration // uptime that resets the attempt counter
}

// ReconnectPolicy turns player signals into delayed, cancellable restarts.
// Every pending restart is a jobmgr job named after the guild, and the
// registry re-checks the generation when it fires.
type ReconnectPolicy struct {
	registry *Registry
	jobs     *jobmgr.Manager
	opts     ReconnectOptions
	factory  func(Request) Factory
	notifier Notifier
	metrics  *metrics.Metrics
	log      zerolog.Logger

	mu       sync.Mutex
	attempts map[string]int
	chains   map[string]chain // guild -> scheduled restart
}

// chain is the request a pending restart will rebuild.
type chain struct {
	gen uint64
	req Request
}

func NewReconnectPolicy(registry *Registry, jobs *jobmgr.Manager, opts ReconnectOptions, factory func(Request) Factory, notifier Notifier, m *metrics.Metrics) *ReconnectPolicy {
	if opts.Delay <= 0 {
		opts.Delay = 5 * time.Second
	}
	return &ReconnectPolicy{
		registry: registry,
		jobs:     jobs,
		opts:     opts,
		factory:  factory,
		notifier: notifier,
		metrics:  m,
		log:      log.With().Str("module", "reconnect").Logger(),
		attempts: make(map[string]int),
		chains:   make(map[string]chain),
	}
}

const jobPrefix = "reconnect:"

func jobName(guildID string) string { return jobPrefix + guildID }

// Observer binds the policy to h's player.
func (p *ReconnectPolicy) Observer(h *Handle) player.Observer {
	return &sessionObserver{policy: p, handle: h}
}

// Cancel drops any pending restart and the attempt count of guildID.
// It reports whether a restart was pending.
func (p *ReconnectPolicy) Cancel(guildID string) bool {
	p.mu.Lock()
	delete(p.attempts, guildID)
	delete(p.chains, guildID)
	p.mu.Unlock()
	return p.jobs.Cancel(jobName(guildID))
}

// CancelAll drops every pending restart. Other jobs on a shared manager
// are left alone.
func (p *ReconnectPolicy) CancelAll() {
	p.mu.Lock()
	clear(p.attempts)
	clear(p.chains)
	p.mu.Unlock()
	for _, name := range p.jobs.List() {
		if strings.HasPrefix(name, jobPrefix) {
			p.jobs.Cancel(name)
		}
	}
}

// PendingRequest returns the request of the restart scheduled for guildID.
func (p *ReconnectPolicy) PendingRequest(guildID string) (Request, bool) {
	if !p.Pending(guildID) {
		return Request{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.chains[guildID]
	return c.req, ok
}

// current reports whether gen is still the guild's live generation. Signals
// from a replaced or stopped session fail this check.
func (p *ReconnectPolicy) current(guildID string, gen uint64) bool {
	return gen != 0 && p.registry.Generation(guildID) == gen
}

// Pending reports whether a restart is scheduled or running for guildID.
func (p *ReconnectPolicy) Pending(guildID string) bool {
	return p.jobs.Pending(jobName(guildID))
}

// Attempts returns the consecutive restart attempts of guildID.
func (p *ReconnectPolicy) Attempts(guildID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts[guildID]
}

type sessionObserver struct {
	policy *ReconnectPolicy
	handle *Handle
}

func (o *sessionObserver) OnIdle() {
	o.handle.setState(StateIdle)
	o.policy.log.Info().Str("guild_id", o.handle.GuildID).Msg("Stream went idle, scheduling reconnect")
	o.policy.restartLater(o.handle)
}

func (o *sessionObserver) OnError(err error) {
	h := o.handle
	if IsTransient(err) {
		h.setState(StateErroring)
		o.policy.metrics.RecordPlayerError("transient")
		o.policy.log.Warn().Str("guild_id", h.GuildID).Err(err).Msg("Network error, scheduling reconnect")
		o.policy.restartLater(h)
		return
	}
	o.policy.metrics.RecordPlayerError("fatal")
	o.policy.log.Error().Str("guild_id", h.GuildID).Err(err).Msg("Fatal player error")
	if !o.policy.current(h.GuildID, h.Generation()) {
		return
	}
	o.policy.release(h.GuildID, h.Generation(), h.Request, &FatalPlayerError{Err: err})
}

func (p *ReconnectPolicy) restartLater(h *Handle) {
	gen := h.Generation()
	if !p.current(h.GuildID, gen) {
		p.log.Debug().Str("guild_id", h.GuildID).Msg("Ignoring signal from a replaced session")
		return
	}
	if p.opts.StableAfter > 0 && h.Uptime() >= p.opts.StableAfter {
		p.mu.Lock()
		delete(p.attempts, h.GuildID)
		p.mu.Unlock()
	}
	p.schedule(h.GuildID, gen, h.restartRequest())
}

// schedule counts one attempt and queues the restart, or releases the
// session when the budget is spent.
func (p *ReconnectPolicy) schedule(guildID string, gen uint64, req Request) {
	p.mu.Lock()
	n := p.attempts[guildID] + 1
	exhausted := p.opts.MaxAttempts > 0 && n > p.opts.MaxAttempts
	if !exhausted {
		p.attempts[guildID] = n
		p.chains[guildID] = chain{gen: gen, req: req}
	}
	p.mu.Unlock()

	if exhausted {
		p.metrics.RecordReconnect("exhausted")
		p.log.Warn().Str("guild_id", guildID).Int("max_attempts", p.opts.MaxAttempts).Msg("Reconnect budget exhausted")
		p.release(guildID, gen, req, ErrRetriesExhausted)
		return
	}

	p.metrics.RecordReconnect("scheduled")
	err := p.jobs.Schedule(jobName(guildID), p.opts.Delay, func(ctx context.Context) error {
		return p.restart(ctx, guildID, gen, req)
	})
	if err != nil {
		p.log.Warn().Str("guild_id", guildID).Err(err).Msg("Could not schedule reconnect")
	}
}

func (p *ReconnectPolicy) restart(ctx context.Context, guildID string, gen uint64, req Request) error {
	p.log.Info().Str("guild_id", guildID).Int("attempt", p.Attempts(guildID)).Msg("Reconnecting")

	_, err := p.registry.Restart(ctx, guildID, gen, p.factory(req))
	switch {
	case err == nil:
		p.metrics.RecordReconnect("ok")
		p.mu.Lock()
		if c, ok := p.chains[guildID]; ok && c.gen == gen {
			delete(p.chains, guildID)
		}
		p.mu.Unlock()
		return nil
	case errors.Is(err, ErrClosed):
		p.log.Debug().Str("guild_id", guildID).Msg("Registry closed, dropping reconnect")
		return nil
	case errors.Is(err, ErrSuperseded):
		p.metrics.RecordReconnect("superseded")
		p.log.Debug().Str("guild_id", guildID).Msg("Dropping stale reconnect")
		return nil
	case ctx.Err() != nil:
		// cancelled by stop or replace
		return ctx.Err()
	}

	p.metrics.RecordReconnect("failed")
	p.log.Warn().Str("guild_id", guildID).Err(err).Msg("Reconnect failed")
	p.schedule(guildID, gen, req)
	return err
}

// release ends the session for good, off the caller's goroutine.
func (p *ReconnectPolicy) release(guildID string, gen uint64, req Request, cause error) {
	p.mu.Lock()
	delete(p.attempts, guildID)
	delete(p.chains, guildID)
	p.mu.Unlock()

	err := p.jobs.StartAsync(jobName(guildID), func(ctx context.Context) error {
		if !p.registry.Release(guildID, gen) {
			return nil
		}
		if p.notifier != nil {
			p.notifier.SessionEnded(req, cause)
		}
		return nil
	})
	if err != nil {
		p.log.Warn().Str("guild_id", guildID).Err(err).Msg("Could not release session")
	}
}
