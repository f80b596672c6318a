package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/keshon/radio-domme/internal/cache"
	"github.com/keshon/radio-domme/internal/music/media"
)

const (
	cacheKeyPrefix = "yt:track:"
	searchLimit    = 5
)

var _ media.Provider = (*Provider)(nil)

// Provider resolves YouTube videos with kkdai/youtube and caches the
// resolved metadata by video id.
type Provider struct {
	resolver *Resolver
	client   *youtube.Client
	cache    cache.Cache
	ttl      time.Duration

	// OnCacheLookup, when set, observes every cache lookup.
	OnCacheLookup func(hit bool)

	log zerolog.Logger
}

// New creates a Provider. c may be nil to disable caching.
func New(c cache.Cache, ttl time.Duration) *Provider {
	return &Provider{
		resolver: NewResolver(),
		client:   &youtube.Client{},
		cache:    c,
		ttl:      ttl,
		log:      log.With().Str("module", "youtube").Logger(),
	}
}

// Search resolves query to tracks. URLs are looked up directly; free text
// goes through the results page and the first hit is returned.
func (p *Provider) Search(ctx context.Context, query string, engine media.Engine) ([]media.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, media.ErrNoResults
	}

	if engine == media.EngineYouTubeVideo || IsYouTubeURL(query) {
		id, err := VideoID(query)
		if err != nil {
			return nil, err
		}
		t, err := p.track(ctx, id)
		if err != nil {
			return nil, err
		}
		return []media.Track{t}, nil
	}

	ids, err := p.resolver.SearchVideoIDs(ctx, query, searchLimit)
	if errors.Is(err, ErrNoVideoMatch) {
		return nil, fmt.Errorf("%w for %q", media.ErrNoResults, query)
	}
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	// first playable hit wins
	var lastErr error
	for _, id := range ids {
		t, err := p.track(ctx, id)
		if err == nil {
			return []media.Track{t}, nil
		}
		p.log.Debug().Str("video_id", id).Err(err).Msg("Skipping unplayable search result")
		lastErr = err
	}
	return nil, fmt.Errorf("%w for %q: %w", media.ErrNoResults, query, lastErr)
}

// Open fetches a fresh audio stream for track.
func (p *Provider) Open(ctx context.Context, track media.Track) (io.ReadCloser, error) {
	video, err := p.client.GetVideoContext(ctx, track.ID)
	if err != nil {
		return nil, fmt.Errorf("youtube client error: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, errors.New("no audio formats found for video")
	}

	rc, _, err := p.client.GetStreamContext(ctx, video, &formats[0])
	if err != nil {
		return nil, fmt.Errorf("get stream error: %w", err)
	}
	return rc, nil
}

func (p *Provider) track(ctx context.Context, id string) (media.Track, error) {
	var t media.Track
	if p.cache != nil {
		err := p.cache.GetAndParse(ctx, cacheKeyPrefix+id, &t)
		p.observe(err == nil)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			p.log.Warn().Err(err).Str("video_id", id).Msg("Track cache read failed")
		}
	}

	video, err := p.client.GetVideoContext(ctx, id)
	if err != nil {
		return media.Track{}, fmt.Errorf("youtube client error: %w", err)
	}
	t = trackFromVideo(video)

	if p.cache != nil {
		if err := p.cache.SetExp(ctx, cacheKeyPrefix+id, t, p.ttl); err != nil {
			p.log.Warn().Err(err).Str("video_id", id).Msg("Track cache write failed")
		}
	}
	return t, nil
}

func (p *Provider) observe(hit bool) {
	if p.OnCacheLookup != nil {
		p.OnCacheLookup(hit)
	}
}

func trackFromVideo(v *youtube.Video) media.Track {
	t := media.Track{
		ID:       v.ID,
		URL:      WatchURL(v.ID),
		Title:    v.Title,
		Author:   v.Author,
		Duration: v.Duration,
	}
	// the last thumbnail is the largest
	if n := len(v.Thumbnails); n > 0 {
		t.Thumbnail = v.Thumbnails[n-1].URL
	}
	return t
}
