package voice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hraban/opus"
	"github.com/rs/zerolog/log"

	"github.com/keshon/radio-domme/internal/music/stream"
)

const (
	maxOpusPacket      = 4000
	defaultSendTimeout = 2 * time.Second
)

// DiscordTransport joins voice through a discordgo session.
type DiscordTransport struct {
	session     *discordgo.Session
	sendTimeout time.Duration
}

func NewDiscordTransport(s *discordgo.Session) *DiscordTransport {
	return &DiscordTransport{session: s, sendTimeout: defaultSendTimeout}
}

// Join connects self-deafened and prepares an opus encoder for the channel.
func (t *DiscordTransport) Join(ctx context.Context, guildID, channelID string) (Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := t.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}
	if err := ctx.Err(); err != nil {
		vc.Disconnect()
		return nil, err
	}

	enc, err := opus.NewEncoder(stream.SampleRate, stream.Channels, opus.AppAudio)
	if err != nil {
		vc.Disconnect()
		return nil, fmt.Errorf("encoder error: %w", err)
	}

	log.Info().Str("module", "voice").Str("guild_id", guildID).Str("channel_id", channelID).Msg("Joined voice channel")
	return &discordConnection{
		vc:          vc,
		channelID:   channelID,
		encoder:     enc,
		buf:         make([]byte, maxOpusPacket),
		closed:      make(chan struct{}),
		sendTimeout: t.sendTimeout,
	}, nil
}

type discordConnection struct {
	vc        *discordgo.VoiceConnection
	channelID string

	mu       sync.Mutex
	encoder  *opus.Encoder
	buf      []byte
	speaking bool

	sendTimeout time.Duration
	closed      chan struct{}
	destroyOnce sync.Once
	destroyErr  error
}

func (c *discordConnection) ChannelID() string { return c.channelID }

func (c *discordConnection) WriteFrame(pcm []int16) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	c.mu.Lock()
	n, err := c.encoder.Encode(pcm, c.buf)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("encode error: %w", err)
	}
	packet := make([]byte, n)
	copy(packet, c.buf[:n])
	if !c.speaking {
		c.vc.Speaking(true)
		c.speaking = true
	}
	c.mu.Unlock()

	timer := time.NewTimer(c.sendTimeout)
	defer timer.Stop()
	select {
	case c.vc.OpusSend <- packet:
		return nil
	case <-c.closed:
		return ErrClosed
	case <-timer.C:
		return ErrSendTimeout
	}
}

func (c *discordConnection) Destroy() error {
	c.destroyOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		if c.speaking {
			c.vc.Speaking(false)
			c.speaking = false
		}
		c.mu.Unlock()
		c.destroyErr = c.vc.Disconnect()
		log.Info().Str("module", "voice").Str("guild_id", c.vc.GuildID).Msg("Left voice channel")
	})
	return c.destroyErr
}
