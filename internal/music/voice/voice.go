// Package voice abstracts joining a voice channel and sending PCM frames to it.
package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrClosed is returned by WriteFrame after Destroy.
	ErrClosed = errors.New("voice connection closed")
	// ErrSendTimeout is returned when the voice gateway stops draining frames.
	// It wraps os.ErrDeadlineExceeded so callers treat it as transient.
	ErrSendTimeout = fmt.Errorf("opus send timed out: %w", os.ErrDeadlineExceeded)
)

// Transport joins voice channels.
type Transport interface {
	Join(ctx context.Context, guildID, channelID string) (Connection, error)
}

// Connection is a joined voice channel. It accepts 20ms s16le stereo frames.
type Connection interface {
	ChannelID() string
	WriteFrame(pcm []int16) error
	// Destroy leaves the channel. Calls after the first are no-ops.
	Destroy() error
}
