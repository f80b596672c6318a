package music

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/radio-domme/internal/command"
	"github.com/keshon/radio-domme/internal/music/session"
)

type VolumeCommand struct {
	Deps *Deps
}

func (c *VolumeCommand) Name() string        { return "volume" }
func (c *VolumeCommand) Description() string { return "Change the playback volume" }

func (c *VolumeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	lo := 0.0
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "percent",
				Description: "Volume in percent",
				Required:    true,
				MinValue:    &lo,
				MaxValue:    float64(c.Deps.MaxVolume),
			},
		},
	}
}

func (c *VolumeCommand) Execute(ctx context.Context, cc *command.Context) error {
	percent, ok := cc.IntOption("percent")
	if !ok {
		return cc.Ephemeral("Give me a volume between 0 and 100.")
	}
	percent = min(percent, int64(c.Deps.MaxVolume))

	applied, err := c.Deps.Sessions.SetVolume(cc.GuildID(), int(percent))
	if errors.Is(err, session.ErrNoSession) {
		return cc.Respond(command.Reply{Embeds: embeds(statusEmbed(ColorRadio, "Nothing is playing. ❌"))})
	}
	if err != nil {
		return err
	}
	return cc.Respond(command.Reply{Embeds: embeds(statusEmbed(ColorRadio, fmt.Sprintf("Volume set to %d%%. 🔊", applied)))})
}
