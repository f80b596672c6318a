// /internal/music/sources/youtube/resolver.go
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"
)

var (
	watchIDPattern  = regexp.MustCompile(`"url":"/watch\?v=([a-zA-Z0-9_-]{11})`)
	ErrNoVideoMatch = errors.New("no video found for the given title")
)

// Resolver scrapes the YouTube results page for video ids.
type Resolver struct {
	BaseURL string
	Client  *http.Client
}

func NewResolver() *Resolver {
	return &Resolver{
		BaseURL: "https://www.youtube.com",
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SearchVideoIDs returns up to limit distinct video ids for query, in page order.
func (r *Resolver) SearchVideoIDs(ctx context.Context, query string, limit int) ([]string, error) {
	searchURL := fmt.Sprintf("%s/results?search_query=%s", r.BaseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("YouTube search failed with status code %v", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, m := range watchIDPattern.FindAllStringSubmatch(string(body), -1) {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
		if limit > 0 && len(ids) == limit {
			break
		}
	}

	if len(ids) == 0 {
		return nil, ErrNoVideoMatch
	}
	return ids, nil
}
