package music

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/radio-domme/internal/command"
	"github.com/keshon/radio-domme/internal/music/media"
	"github.com/keshon/radio-domme/internal/music/session"
	"github.com/keshon/radio-domme/internal/music/sources/youtube"
)

// YouTubeCommand plays one video by URL.
type YouTubeCommand struct {
	Deps *Deps
}

func (c *YouTubeCommand) Name() string        { return "youtube" }
func (c *YouTubeCommand) Description() string { return "Play a YouTube video by URL" }

func (c *YouTubeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "url",
				Description: "The YouTube URL you want to play",
				Required:    true,
			},
			qualityOption(),
		},
	}
}

func (c *YouTubeCommand) Execute(ctx context.Context, cc *command.Context) error {
	d := c.Deps

	// validated before anything else is touched
	normalized, err := youtube.NormalizeURL(cc.StringOption("url"))
	if err != nil {
		return cc.Respond(command.Reply{Embeds: embeds(statusEmbed(ColorYouTube,
			"Please provide a valid YouTube URL (e.g., https://www.youtube.com/watch?v=5EpyN_6dqyk). ❌"))})
	}

	vc, err := d.voiceChannel(cc)
	if vc == "" {
		return err
	}

	if err := cc.Defer(false); err != nil {
		return err
	}
	cc.Edit(command.Reply{Embeds: embeds(statusEmbed(ColorYouTube, "Processing YouTube video... 🎵"))})

	tracks, err := d.Media.Search(ctx, normalized, media.EngineYouTubeVideo)
	if err != nil || len(tracks) == 0 {
		msg := "No results found for this YouTube URL... ❌"
		if err != nil && !errors.Is(err, media.ErrNoResults) {
			msg = "I can't play this YouTube URL... try again? ❌"
		}
		return cc.Edit(command.Reply{Embeds: embeds(statusEmbed(ColorYouTube, msg))})
	}

	req := d.request(cc, vc, session.KindYouTube, ParseQuality(cc.StringOption("quality")).Volume(d.Volume))
	req.Track = tracks[0]

	h, err := d.Sessions.Play(ctx, req)
	if err != nil {
		return cc.Edit(command.Reply{Embeds: embeds(statusEmbed(ColorYouTube, playFailure(err, "I can't play this YouTube URL... try again? ❌")))})
	}
	return cc.Edit(command.Reply{
		Embeds:     embeds(trackEmbed(req.Track, h.Volume(), req.RequesterName)),
		Components: stopButtonRow(YouTubeStopID, "Stop YouTube"),
	})
}
