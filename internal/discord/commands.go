package discord

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/keshon/radio-domme/internal/command"
	"github.com/keshon/radio-domme/pkg/cmd"
	"github.com/keshon/radio-domme/pkg/retrylimit"
)

// restError exposes the status of a discordgo REST failure to retrylimit.
type restError struct {
	*discordgo.RESTError
}

func (e restError) StatusCode() int { return e.Response.StatusCode }

func (e restError) Unwrap() error { return e.RESTError }

// classifyREST makes 429 and 5xx retryable and any other 4xx fatal.
func classifyREST(err error) error {
	var re *discordgo.RESTError
	if !errors.As(err, &re) || re.Response == nil {
		return err
	}
	wrapped := restError{re}
	code := re.Response.StatusCode
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return &retrylimit.FatalError{Err: wrapped}
	}
	return wrapped
}

// commandAPI is the slice of discordgo.Session the registrar calls.
type commandAPI interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

// registrar keeps each guild's slash commands in line with the registry.
// Only changed definitions are sent, paced by an adaptive limiter.
type registrar struct {
	api      commandAPI
	commands *cmd.Registry
	limiter  *retrylimit.AdaptiveLimiter
	retry    retrylimit.Config
	log      zerolog.Logger

	mu     sync.Mutex
	synced map[string]map[string]string // guild -> name -> hash
}

func newRegistrar(api commandAPI, commands *cmd.Registry) *registrar {
	retry := retrylimit.DefaultConfig()
	retry.MaxAttempts = 5
	return &registrar{
		api:      api,
		commands: commands,
		limiter:  retrylimit.NewAdaptiveLimiter(rate.Limit(20), rate.Limit(1), rate.Limit(40), rate.Limit(1), 0.5),
		retry:    retry,
		log:      log.With().Str("module", "commands").Logger(),
		synced:   make(map[string]map[string]string),
	}
}

func (r *registrar) call(ctx context.Context, fn func() error) error {
	return retrylimit.WithRetryConfig(ctx, func() error { return classifyREST(fn()) }, r.limiter, r.retry)
}

func (r *registrar) wanted() map[string]*discordgo.ApplicationCommand {
	out := make(map[string]*discordgo.ApplicationCommand)
	for _, c := range r.commands.All() {
		if def := command.Definition(c); def != nil {
			out[def.Name] = def
		}
	}
	return out
}

// sync creates changed commands and deletes obsolete ones in guildID.
func (r *registrar) sync(ctx context.Context, appID, guildID string) error {
	wanted := r.wanted()
	hashes := make(map[string]string, len(wanted))
	for name, def := range wanted {
		hashes[name] = hashCommand(def)
	}

	r.mu.Lock()
	prev := r.synced[guildID]
	r.mu.Unlock()
	if sameHashes(prev, hashes) {
		r.log.Debug().Str("guild_id", guildID).Msg("Commands already in sync")
		return nil
	}

	var existing []*discordgo.ApplicationCommand
	err := r.call(ctx, func() (err error) {
		existing, err = r.api.ApplicationCommands(appID, guildID)
		return err
	})
	if err != nil {
		return err
	}

	remote := make(map[string]string, len(existing))
	for _, old := range existing {
		if _, ok := wanted[old.Name]; !ok {
			r.log.Info().Str("guild_id", guildID).Str("command", old.Name).Msg("Deleting obsolete command")
			if err := r.call(ctx, func() error { return r.api.ApplicationCommandDelete(appID, guildID, old.ID) }); err != nil {
				r.log.Error().Str("guild_id", guildID).Str("command", old.Name).Err(err).Msg("Failed to delete command")
			}
			continue
		}
		remote[old.Name] = hashCommand(old)
	}

	var errs []error
	for name, def := range wanted {
		if remote[name] == hashes[name] {
			continue
		}
		err := r.call(ctx, func() error {
			_, err := r.api.ApplicationCommandCreate(appID, guildID, def)
			return err
		})
		if err != nil {
			r.log.Error().Str("guild_id", guildID).Str("command", name).Err(err).Msg("Failed to create command")
			errs = append(errs, err)
			delete(hashes, name)
			continue
		}
		r.log.Info().Str("guild_id", guildID).Str("command", name).Msg("Command registered")
	}

	r.mu.Lock()
	r.synced[guildID] = hashes
	r.mu.Unlock()
	return errors.Join(errs...)
}

func sameHashes(a, b map[string]string) bool {
	if a == nil || len(a) != len(b) {
		return false
	}
	for k, v := range b {
		if a[k] != v {
			return false
		}
	}
	return true
}
