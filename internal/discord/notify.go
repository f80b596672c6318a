package discord

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/keshon/radio-domme/internal/music/session"
)

// Notifier posts to the requester's text channel when a session ends for good.
type Notifier struct {
	s   *discordgo.Session
	log zerolog.Logger
}

func NewNotifier(s *discordgo.Session) *Notifier {
	return &Notifier{s: s, log: log.With().Str("module", "notify").Logger()}
}

func (n *Notifier) SessionEnded(req session.Request, err error) {
	if req.TextChannelID == "" {
		return
	}
	_, sendErr := n.s.ChannelMessageSendEmbed(req.TextChannelID, endedEmbed(req, err))
	if sendErr != nil {
		n.log.Warn().Str("guild_id", req.GuildID).Str("channel_id", req.TextChannelID).Err(sendErr).Msg("Could not post session end")
	}
}

func endedEmbed(req session.Request, err error) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       EmbedColor,
		Title:       "⏹️ " + req.Title(),
		Description: endedReason(err),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Requested by " + req.RequesterName},
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func endedReason(err error) string {
	var fatal *session.FatalPlayerError
	switch {
	case errors.Is(err, session.ErrRetriesExhausted):
		return "The stream kept dropping, so I stopped trying to reconnect."
	case errors.As(err, &fatal):
		return fmt.Sprintf("Playback failed and was stopped: %v", fatal.Err)
	case err != nil:
		return fmt.Sprintf("Playback stopped: %v", err)
	}
	return "Playback stopped."
}
