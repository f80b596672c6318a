package session

import (
	"context"
	"errors"
	"io"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/keshon/radio-domme/internal/metrics"
	"github.com/keshon/radio-domme/internal/music/media"
	"github.com/keshon/radio-domme/internal/music/player"
	"github.com/keshon/radio-domme/internal/music/stream"
	"github.com/keshon/radio-domme/internal/music/voice"
	"github.com/keshon/radio-domme/pkg/jobmgr"
)

// StreamOpener opens a live station URL.
type StreamOpener interface {
	Open(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// DecodeFunc turns an encoded stream into 48kHz stereo s16le PCM.
type DecodeFunc func(upstream io.ReadCloser) (io.ReadCloser, error)

// Deps are the collaborators of a Service. Jobs, Notifier and Metrics may be nil.
type Deps struct {
	Transport voice.Transport
	Streams   StreamOpener
	Media     media.Provider
	Decode    DecodeFunc
	Jobs      *jobmgr.Manager
	Notifier  Notifier
	Metrics   *metrics.Metrics
}

type Options struct {
	Reconnect     ReconnectOptions
	PlayerOptions []player.Option
}

// Service is the entry point for commands: it validates requests, builds
// sessions and routes stops through the registry and the reconnect policy.
type Service struct {
	deps       Deps
	ownJobs    bool
	registry   *Registry
	policy     *ReconnectPolicy
	playerOpts []player.Option
	log        zerolog.Logger
}

func NewService(deps Deps, opts Options) *Service {
	s := &Service{
		deps:       deps,
		playerOpts: opts.PlayerOptions,
		log:        log.With().Str("module", "session").Logger(),
	}
	if s.deps.Jobs == nil {
		s.deps.Jobs = jobmgr.NewManager(func(msg string) {
			s.log.Debug().Str("job", msg).Msg("Job status")
		})
		s.ownJobs = true
	}
	if s.deps.Decode == nil {
		s.deps.Decode = func(up io.ReadCloser) (io.ReadCloser, error) {
			return stream.NewDecoder(stream.DecoderOptions{}, up)
		}
	}
	s.registry = NewRegistry(deps.Metrics)
	s.policy = NewReconnectPolicy(s.registry, s.deps.Jobs, opts.Reconnect, s.factory, deps.Notifier, deps.Metrics)
	return s
}

// Play validates req and replaces the guild's session with a new one.
func (s *Service) Play(ctx context.Context, req Request) (*Handle, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	s.policy.Cancel(req.GuildID)
	h, err := s.registry.Start(ctx, req.GuildID, s.factory(req))
	if err != nil {
		s.deps.Metrics.RecordStartFailure(string(req.Kind))
		return nil, err
	}
	return h, nil
}

// Stop ends whatever plays in the guild, including a pending reconnect.
func (s *Service) Stop(guildID string) bool {
	pending := s.policy.Cancel(guildID)
	stopped := s.registry.Stop(guildID)
	return stopped || pending
}

// StopAs stops the guild's session on behalf of a user. A non-empty kind
// limits the stop to sessions of that kind. Only the requester or an
// administrator may stop a session, including one waiting to reconnect.
func (s *Service) StopAs(guildID string, kind Kind, userID string, admin bool) error {
	err := s.registry.StopIf(guildID, func(h *Handle) error {
		if kind != "" && h.Kind != kind {
			return ErrNoSession
		}
		if !h.Request.CanStop(userID, admin) {
			return ErrUnauthorized
		}
		return nil
	})
	switch {
	case err == nil:
		s.policy.Cancel(guildID)
		return nil
	case errors.Is(err, ErrNoSession) && kind == "":
		// between a failed reconnect and the next attempt
		req, ok := s.policy.PendingRequest(guildID)
		if !ok {
			return err
		}
		if !req.CanStop(userID, admin) {
			return ErrUnauthorized
		}
		s.Stop(guildID)
		return nil
	}
	return err
}

func (s *Service) Has(guildID string) bool { return s.registry.Has(guildID) }

func (s *Service) Get(guildID string) (*Handle, bool) { return s.registry.Get(guildID) }

// Len counts live sessions.
func (s *Service) Len() int { return s.registry.Len() }

// SetVolume changes the live session's gain and returns the applied value.
func (s *Service) SetVolume(guildID string, percent int) (int, error) {
	h, ok := s.registry.Get(guildID)
	if !ok {
		return 0, ErrNoSession
	}
	return h.SetVolume(percent), nil
}

// Close cancels pending reconnects and tears down every session.
func (s *Service) Close() {
	s.policy.CancelAll()
	if s.ownJobs {
		s.deps.Jobs.Close()
	}
	s.registry.Close()
}

func (s *Service) factory(req Request) Factory {
	return func(ctx context.Context, generation uint64) (*Handle, error) {
		return s.open(ctx, req, generation)
	}
}

// open opens the stream, decodes it, joins voice and starts the player.
// Anything acquired is released on failure.
func (s *Service) open(ctx context.Context, req Request, generation uint64) (*Handle, error) {
	volume := stream.ClampVolume(req.Volume)

	// the stream outlives ctx; it is bound to the handle instead
	sessCtx, cancel := context.WithCancel(context.Background())
	stopLink := context.AfterFunc(ctx, cancel)
	defer stopLink()

	var (
		upstream io.ReadCloser
		err      error
	)
	switch req.Kind {
	case KindRadio:
		upstream, err = s.deps.Streams.Open(sessCtx, req.Station.URL)
	default:
		upstream, err = s.deps.Media.Open(sessCtx, req.Track)
	}
	if err != nil {
		cancel()
		return nil, &ConnectError{Op: "open stream", Err: err}
	}

	pcm, err := s.deps.Decode(upstream)
	if err != nil {
		cancel()
		return nil, &ConnectError{Op: "start decoder", Err: err}
	}

	conn, err := s.deps.Transport.Join(ctx, req.GuildID, req.VoiceChannelID)
	if err != nil {
		pcm.Close()
		cancel()
		return nil, &ConnectError{Op: "join voice", Err: err}
	}
	if !stopLink() && ctx.Err() != nil {
		conn.Destroy()
		pcm.Close()
		cancel()
		return nil, &ConnectError{Op: "join voice", Err: ctx.Err()}
	}

	req.Volume = volume
	h := newHandle(req, generation, conn, pcm, cancel)

	opts := append([]player.Option{player.WithLogger(s.log.With().Str("guild_id", req.GuildID).Logger())}, s.playerOpts...)
	h.player = player.New(s.policy.Observer(h), opts...)
	h.player.Subscribe(conn)
	h.player.Play(pcm, volume)

	s.log.Info().Str("guild_id", req.GuildID).Str("kind", string(req.Kind)).Str("title", req.Title()).
		Int("volume", volume).Msg("Playback started")
	return h, nil
}

func validate(req *Request) error {
	if !req.Kind.Valid() {
		return &InputError{Msg: "unknown session kind " + string(req.Kind)}
	}
	if req.GuildID == "" {
		return &InputError{Msg: "this command only works in a server"}
	}
	if req.VoiceChannelID == "" {
		return &InputError{Msg: "join a voice channel first"}
	}
	switch req.Kind {
	case KindRadio:
		u, err := url.Parse(req.Station.URL)
		if err != nil {
			return &InputError{Msg: "invalid station url", Err: err}
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return &InputError{Msg: "invalid station url", Err: stream.ErrUnsupportedScheme}
		}
	default:
		if req.Track.ID == "" {
			return &InputError{Msg: "no track selected"}
		}
	}
	req.Volume = stream.ClampVolume(req.Volume)
	return nil
}
