package music

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/radio-domme/internal/command"
	"github.com/keshon/radio-domme/internal/music/session"
)

// RadioStopCommand stops whatever plays in the guild.
type RadioStopCommand struct {
	Deps *Deps
}

func (c *RadioStopCommand) Name() string        { return "radiostop" }
func (c *RadioStopCommand) Description() string { return "Stop the radio playback" }

func (c *RadioStopCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *RadioStopCommand) Execute(ctx context.Context, cc *command.Context) error {
	err := c.Deps.Sessions.StopAs(cc.GuildID(), "", cc.User().ID, cc.IsAdmin())
	switch {
	case err == nil:
		return cc.Respond(command.Reply{Embeds: embeds(statusEmbed(ColorRadio, "Radio playback has been stopped. ✅"))})
	case errors.Is(err, session.ErrUnauthorized):
		return cc.Ephemeral("Only the person who started the playback or an administrator can stop it.")
	case errors.Is(err, session.ErrNoSession):
		return cc.Respond(command.Reply{Embeds: embeds(statusEmbed(ColorRadio, "No radio is currently playing. ❌"))})
	}
	return err
}
