// Package music holds the playback commands: /radio, /radiostop, /play,
// /youtube, /volume and the two stop buttons.
package music

import (
	"context"
	"errors"

	"github.com/keshon/radio-domme/internal/command"
	"github.com/keshon/radio-domme/internal/music/media"
	"github.com/keshon/radio-domme/internal/music/session"
	"github.com/keshon/radio-domme/internal/radio"
	"github.com/keshon/radio-domme/pkg/cmd"
)

// ErrNotInVoice is returned by a VoiceLocator for users outside voice.
var ErrNotInVoice = errors.New("not in a voice channel")

// Sessions is the part of the session service commands use.
type Sessions interface {
	Play(ctx context.Context, req session.Request) (*session.Handle, error)
	StopAs(guildID string, kind session.Kind, userID string, admin bool) error
	SetVolume(guildID string, percent int) (int, error)
}

// VoiceLocator finds the voice channel a member sits in.
type VoiceLocator interface {
	UserVoiceChannel(guildID, userID string) (string, error)
}

// Deps are shared by every music command.
type Deps struct {
	Sessions  Sessions
	Catalog   *radio.Catalog
	Media     media.Provider
	Voice     VoiceLocator
	Volume    int // configured volume, the high quality tier
	MaxVolume int
}

// Register adds all music commands to reg.
func Register(reg *cmd.Registry, d *Deps, mws ...cmd.Middleware) error {
	cmds := []command.Command{
		&RadioCommand{Deps: d},
		&RadioStopCommand{Deps: d},
		&PlayCommand{Deps: d},
		&YouTubeCommand{Deps: d},
		&VolumeCommand{Deps: d},
		&StopButton{Deps: d, ID: RadioStopID, Kind: session.KindRadio},
		&StopButton{Deps: d, ID: YouTubeStopID, Kind: session.KindYouTube},
	}
	for _, c := range cmds {
		if err := command.Register(reg, c, mws...); err != nil {
			return err
		}
	}
	return nil
}

// voiceChannel answers the user and returns "" when they are not in voice.
func (d *Deps) voiceChannel(c *command.Context) (string, error) {
	id, err := d.Voice.UserVoiceChannel(c.GuildID(), c.User().ID)
	if err != nil || id == "" {
		return "", c.Respond(command.Reply{
			Embeds:    embeds(statusEmbed(ColorRadio, "You need to be in a voice channel to use this command. ❌")),
			Ephemeral: true,
		})
	}
	return id, nil
}

func (d *Deps) request(c *command.Context, voiceChannelID string, kind session.Kind, volume int) session.Request {
	return session.Request{
		GuildID:        c.GuildID(),
		VoiceChannelID: voiceChannelID,
		TextChannelID:  c.ChannelID(),
		RequesterID:    c.User().ID,
		RequesterName:  c.DisplayName(),
		Kind:           kind,
		Volume:         volume,
	}
}

// playFailure turns a Play error into a user-facing line.
func playFailure(err error, fallback string) string {
	var (
		in *session.InputError
		ce *session.ConnectError
	)
	switch {
	case errors.As(err, &in):
		return in.Msg + ". ❌"
	case errors.As(err, &ce) && ce.Op == "join voice":
		return "I can't join the voice channel... try again? ❌"
	case errors.Is(err, session.ErrClosed):
		return "The bot is shutting down. ❌"
	}
	return fallback
}
