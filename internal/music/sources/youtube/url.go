package youtube

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	videoURLPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.|music\.)?(?:youtube\.com/watch\?|youtu\.be/|youtube\.com/shorts/)`)
	videoIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	youtubePattern  = regexp.MustCompile(`(?:https?://)?(?:www\.|m\.|music\.)?(youtube\.com|youtu\.be)/\S+`)

	ErrInvalidURL = errors.New("not a valid YouTube video URL")
)

// IsYouTubeURL reports whether s looks like any youtube.com or youtu.be link.
func IsYouTubeURL(s string) bool {
	return youtubePattern.MatchString(s)
}

// VideoID extracts the 11-character id from watch, youtu.be and shorts URLs.
func VideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !videoURLPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	var id string
	switch {
	case u.Hostname() == "youtu.be":
		id = strings.Trim(u.Path, "/")
	case strings.HasPrefix(u.Path, "/shorts/"):
		id = strings.Trim(strings.TrimPrefix(u.Path, "/shorts/"), "/")
	case u.Path == "/watch":
		id = u.Query().Get("v")
	}
	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return id, nil
}

// NormalizeURL validates raw and rewrites it to the canonical watch URL.
func NormalizeURL(raw string) (string, error) {
	id, err := VideoID(raw)
	if err != nil {
		return "", err
	}
	return WatchURL(id), nil
}

// WatchURL builds the canonical watch URL for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
