// Package discord runs the gateway session: guild lifecycle, command
// registration and interaction dispatch.
package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/keshon/radio-domme/internal/command"
	"github.com/keshon/radio-domme/internal/config"
	"github.com/keshon/radio-domme/pkg/cmd"
)

// commandTimeout bounds one interaction; Discord tokens live 15 minutes.
const commandTimeout = 2 * time.Minute

// NewSession creates a discordgo session with the intents the bot needs.
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	return dg, nil
}

// Bot is a Discord bot
type Bot struct {
	dg        *discordgo.Session
	cfg       *config.Config
	commands  *cmd.Registry
	responder command.Responder
	registrar *registrar
	log       zerolog.Logger

	ctx context.Context
}

func New(dg *discordgo.Session, cfg *config.Config, commands *cmd.Registry) *Bot {
	return &Bot{
		dg:        dg,
		cfg:       cfg,
		commands:  commands,
		responder: NewResponder(dg),
		registrar: newRegistrar(dg, commands),
		log:       log.With().Str("module", "discord").Logger(),
		ctx:       context.Background(),
	}
}

// Run opens the gateway and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onInteractionCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("Shutdown signal received, closing gateway")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		if b.leaveIfBlacklisted(s, g.ID) {
			continue
		}
		b.syncCommands(s, g.ID)
	}
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Discord bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	b.log.Info().Str("guild_id", g.ID).Str("guild", g.Name).Msg("Guild available")
	if b.leaveIfBlacklisted(s, g.ID) {
		return
	}
	b.syncCommands(s, g.ID)
}

func (b *Bot) leaveIfBlacklisted(s *discordgo.Session, guildID string) bool {
	if !b.cfg.Blacklisted(guildID) {
		return false
	}
	b.log.Info().Str("guild_id", guildID).Msg("Leaving blacklisted guild")
	if err := s.GuildLeave(guildID); err != nil {
		b.log.Error().Str("guild_id", guildID).Err(err).Msg("Failed to leave guild")
	}
	return true
}

func (b *Bot) syncCommands(s *discordgo.Session, guildID string) {
	if !b.cfg.InitSlashCommands {
		b.log.Debug().Str("guild_id", guildID).Msg("Registering slash commands skipped")
		return
	}
	appID := s.State.User.ID
	go func() {
		if err := b.registrar.sync(b.ctx, appID, guildID); err != nil {
			b.log.Error().Str("guild_id", guildID).Err(err).Msg("Error registering slash commands")
		}
	}()
}

// interactionName is the registry key of an interaction: the command name,
// or the custom id for buttons.
func interactionName(i *discordgo.InteractionCreate) string {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		return i.ApplicationCommandData().Name
	case discordgo.InteractionMessageComponent:
		return i.MessageComponentData().CustomID
	}
	return ""
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.dispatch(i)
}

func (b *Bot) dispatch(i *discordgo.InteractionCreate) {
	name := interactionName(i)
	if name == "" {
		b.log.Debug().Int("type", int(i.Type)).Msg("Unhandled interaction type")
		return
	}
	c := b.commands.Get(name)
	if c == nil {
		b.log.Warn().Str("command", name).Msg("Unknown command")
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	cc := &command.Context{Event: i, Responder: b.responder}
	err := c.Run(ctx, cc.Invocation())
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	b.log.Error().Str("command", name).Str("guild_id", i.GuildID).Err(err).Msg("Error running command")
	if rerr := replyError(b.responder, i, "Something went wrong running this command."); rerr != nil {
		b.log.Warn().Str("command", name).Err(rerr).Msg("Could not report command error")
	}
}
