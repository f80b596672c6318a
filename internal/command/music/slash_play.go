package music

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/radio-domme/internal/command"
	"github.com/keshon/radio-domme/internal/music/media"
	"github.com/keshon/radio-domme/internal/music/session"
)

// PlayCommand searches for a song and plays the first hit.
type PlayCommand struct {
	Deps *Deps
}

func (c *PlayCommand) Name() string        { return "play" }
func (c *PlayCommand) Description() string { return "Play a song by title, artist or link" }

func (c *PlayCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "song",
				Description: "The song you want to play (title, artist, or URL)",
				Required:    true,
			},
			qualityOption(),
		},
	}
}

func (c *PlayCommand) Execute(ctx context.Context, cc *command.Context) error {
	d := c.Deps

	song := cc.StringOption("song")
	if song == "" {
		return cc.Ephemeral("Tell me what to play.")
	}

	vc, err := d.voiceChannel(cc)
	if vc == "" {
		return err
	}

	if err := cc.Defer(false); err != nil {
		return err
	}
	cc.Edit(command.Reply{Embeds: embeds(statusEmbed(ColorRadio, fmt.Sprintf("Searching for %q... 🔍", song)))})

	tracks, err := d.Media.Search(ctx, song, media.EngineAuto)
	if err != nil || len(tracks) == 0 {
		msg := "No results found... try again? ❌"
		if err != nil && !errors.Is(err, media.ErrNoResults) {
			msg = "Search failed... try again? ❌"
		}
		return cc.Edit(command.Reply{Embeds: embeds(statusEmbed(ColorRadio, msg))})
	}

	req := d.request(cc, vc, session.KindTrack, ParseQuality(cc.StringOption("quality")).Volume(d.Volume))
	req.Track = tracks[0]

	h, err := d.Sessions.Play(ctx, req)
	if err != nil {
		return cc.Edit(command.Reply{Embeds: embeds(statusEmbed(ColorRadio, playFailure(err, "I can't play this track... try again? ❌")))})
	}
	return cc.Edit(command.Reply{Embeds: embeds(trackEmbed(req.Track, h.Volume(), req.RequesterName))})
}
