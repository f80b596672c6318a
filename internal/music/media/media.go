// Package media defines searchable, openable tracks.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Engine selects how a query is interpreted.
type Engine string

const (
	// EngineAuto treats URLs as URLs and anything else as a free-text search.
	EngineAuto Engine = "auto"
	// EngineYouTubeVideo requires a YouTube video URL.
	EngineYouTubeVideo Engine = "youtube_video"
)

var ErrNoResults = errors.New("no results found")

// Track is a resolved, playable item.
type Track struct {
	ID        string        `json:"id"`
	URL       string        `json:"url"`
	Title     string        `json:"title"`
	Author    string        `json:"author"`
	Duration  time.Duration `json:"duration"`
	Thumbnail string        `json:"thumbnail,omitempty"`
}

// FormatDuration renders d as m:ss or h:mm:ss. Zero means a live stream.
func (t Track) FormatDuration() string {
	d := t.Duration.Round(time.Second)
	if d <= 0 {
		return "Live"
	}
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Provider finds tracks and opens their compressed audio stream.
type Provider interface {
	Search(ctx context.Context, query string, engine Engine) ([]Track, error)
	// Open returns the encoded audio. ctx bounds the whole stream lifetime.
	Open(ctx context.Context, track Track) (io.ReadCloser, error)
}
