package music

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/radio-domme/internal/command"
	"github.com/keshon/radio-domme/internal/music/session"
)

// StopButton handles the stop button under a now-playing embed. It only stops
// a session of its own kind.
type StopButton struct {
	Deps *Deps
	ID   string
	Kind session.Kind
}

func (b *StopButton) Name() string        { return b.ID }
func (b *StopButton) Description() string { return "Stop " + string(b.Kind) + " playback" }

func (b *StopButton) label() (string, int) {
	if b.Kind == session.KindRadio {
		return "radio", ColorRadio
	}
	return "YouTube", ColorYouTube
}

func (b *StopButton) Execute(ctx context.Context, cc *command.Context) error {
	what, color := b.label()

	err := b.Deps.Sessions.StopAs(cc.GuildID(), b.Kind, cc.User().ID, cc.IsAdmin())
	var text string
	switch {
	case err == nil:
		text = "Playback of " + what + " has been stopped. ✅"
	case errors.Is(err, session.ErrUnauthorized):
		return cc.Ephemeral("Only the person who started the " + what + " or an administrator can stop it.")
	case errors.Is(err, session.ErrNoSession):
		text = "No active " + what + " to stop. ❌"
	default:
		return err
	}
	return cc.Update(command.Reply{
		Embeds:     embeds(statusEmbed(color, text)),
		Components: []discordgo.MessageComponent{},
	})
}
