// /internal/music/stream/decoder.go
package stream

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
)

const (
	Channels   = 2
	SampleRate = 48000
	FrameSize  = 960 // 20ms at 48kHz

	// FrameBytes is one s16le stereo frame.
	FrameBytes = FrameSize * Channels * 2
)

// DefaultDecoderArgs converts stdin to raw 48kHz stereo PCM on stdout.
func DefaultDecoderArgs() []string {
	return []string{
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-loglevel", "warning",
		"pipe:1",
	}
}

// DecoderOptions selects the decoder binary.
type DecoderOptions struct {
	Path string   // defaults to "ffmpeg"
	Args []string // defaults to DefaultDecoderArgs
}

// Decoder pipes an upstream byte stream through an external decoder and
// exposes PCM. Upstream read errors are returned from Read once the decoder
// drains, instead of a clean EOF.
type Decoder struct {
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	upstream io.ReadCloser

	copyDone chan struct{}
	copyErr  error

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewDecoder starts the decoder process. On failure upstream is closed.
func NewDecoder(opts DecoderOptions, upstream io.ReadCloser) (*Decoder, error) {
	path := opts.Path
	if path == "" {
		path = "ffmpeg"
	}
	args := opts.Args
	if args == nil {
		args = DefaultDecoderArgs()
	}

	cmd := exec.Command(path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		upstream.Close()
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		upstream.Close()
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		upstream.Close()
		return nil, fmt.Errorf("command start error: %w", err)
	}

	d := &Decoder{
		cmd:      cmd,
		stdout:   stdout,
		upstream: upstream,
		copyDone: make(chan struct{}),
	}
	go d.pump(stdin)
	return d, nil
}

func (d *Decoder) pump(stdin io.WriteCloser) {
	defer close(d.copyDone)
	_, err := io.Copy(stdin, d.upstream)
	stdin.Close()
	if err != nil && !d.closed.Load() {
		d.copyErr = err
	}
}

// Read returns decoded PCM bytes.
func (d *Decoder) Read(p []byte) (int, error) {
	n, err := d.stdout.Read(p)
	if err == io.EOF {
		<-d.copyDone
		if d.copyErr != nil {
			return n, d.copyErr
		}
	}
	return n, err
}

// Close stops the decoder and closes upstream. It is safe to call more than once.
func (d *Decoder) Close() error {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		upErr := d.upstream.Close()
		if d.cmd.Process != nil {
			d.cmd.Process.Kill()
		}
		<-d.copyDone
		waitErr := d.cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			// killed on purpose
			waitErr = nil
		}
		d.closeErr = errors.Join(upErr, waitErr)
	})
	return d.closeErr
}
