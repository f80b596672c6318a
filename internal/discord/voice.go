package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/radio-domme/internal/command/music"
)

// VoiceLocator finds members in voice through the gateway state cache.
type VoiceLocator struct {
	s *discordgo.Session
}

func NewVoiceLocator(s *discordgo.Session) *VoiceLocator {
	return &VoiceLocator{s: s}
}

// UserVoiceChannel returns the voice channel userID sits in, or
// music.ErrNotInVoice.
func (v *VoiceLocator) UserVoiceChannel(guildID, userID string) (string, error) {
	vs, err := v.s.State.VoiceState(guildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", music.ErrNotInVoice
	}
	return vs.ChannelID, nil
}
