package music

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/radio-domme/internal/command"
	"github.com/keshon/radio-domme/internal/music/session"
	"github.com/keshon/radio-domme/internal/radio"
)

type RadioCommand struct {
	Deps *Deps
}

func (c *RadioCommand) Name() string        { return "radio" }
func (c *RadioCommand) Description() string { return "Play a live radio station" }

func (c *RadioCommand) SlashDefinition() *discordgo.ApplicationCommand {
	names := c.Deps.Catalog.ChoiceNames()
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(names))
	for i, n := range names {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: n, Value: n}
	}
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "station",
				Description: "The radio station you want to listen to",
				Required:    true,
				Choices:     choices,
			},
			qualityOption(),
		},
	}
}

func (c *RadioCommand) Execute(ctx context.Context, cc *command.Context) error {
	d := c.Deps

	station, err := d.Catalog.Lookup(cc.StringOption("station"))
	if errors.Is(err, radio.ErrUnknownStation) {
		return cc.Respond(command.Reply{Embeds: embeds(statusEmbed(ColorRadio, "Radio station not found. Try again? ❌"))})
	}
	if err != nil {
		return err
	}

	vc, err := d.voiceChannel(cc)
	if vc == "" {
		return err
	}

	if err := cc.Defer(false); err != nil {
		return err
	}

	req := d.request(cc, vc, session.KindRadio, ParseQuality(cc.StringOption("quality")).Volume(d.Volume))
	req.Station = station

	h, err := d.Sessions.Play(ctx, req)
	if err != nil {
		msg := playFailure(err, "Error playing radio station. Try another station? ❌")
		return cc.Edit(command.Reply{Embeds: embeds(statusEmbed(ColorRadio, msg))})
	}
	return cc.Edit(command.Reply{
		Embeds:     embeds(radioEmbed(station, h.Volume(), req.RequesterName)),
		Components: stopButtonRow(RadioStopID, "Stop Radio"),
	})
}
