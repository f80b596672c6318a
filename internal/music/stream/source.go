// /internal/music/stream/source.go
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const defaultUserAgent = "radio-domme/1.0"

var (
	// ErrTooManyRedirects is returned when a station redirects more often than allowed.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrUnsupportedScheme is returned for URLs that are not http or https.
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
)

// StatusError is a non-2xx final response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stream %s answered %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// StatusCode lets retrylimit classify the error.
func (e *StatusError) StatusCode() int { return e.Code }

// SourceOptions configures a Source.
type SourceOptions struct {
	MaxRedirects   int           // hops followed before ErrTooManyRedirects
	ConnectTimeout time.Duration // dial, TLS and response header timeout
	UserAgent      string
}

// Source opens live HTTP audio streams. Redirects are followed by hand so
// the hop count is exact.
type Source struct {
	client       *http.Client
	maxRedirects int
	userAgent    string
}

func NewSource(opts SourceOptions) *Source {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.MaxRedirects < 0 {
		opts.MaxRedirects = 0
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	dialer := &net.Dialer{Timeout: opts.ConnectTimeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.ConnectTimeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Source{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxRedirects: opts.MaxRedirects,
		userAgent:    opts.UserAgent,
	}
}

// Open issues a single GET for rawURL and returns the body of the first
// non-redirect response. It does not retry.
func (s *Source) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	cur, err := parseStreamURL(rawURL)
	if err != nil {
		return nil, err
	}

	for hops := 0; ; hops++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cur.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", s.userAgent)
		req.Header.Set("Icy-MetaData", "0")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", cur.Redacted(), err)
		}

		if isRedirect(resp.StatusCode) {
			loc := resp.Header.Get("Location")
			resp.Body.Close()
			if loc == "" {
				return nil, &StatusError{URL: cur.Redacted(), Code: resp.StatusCode}
			}
			if hops >= s.maxRedirects {
				return nil, fmt.Errorf("%w: limit %d reached at %s", ErrTooManyRedirects, s.maxRedirects, cur.Redacted())
			}
			next, err := cur.Parse(loc)
			if err != nil {
				return nil, fmt.Errorf("bad redirect location %q: %w", loc, err)
			}
			if next.Scheme != "http" && next.Scheme != "https" {
				return nil, fmt.Errorf("%w: redirect to %q", ErrUnsupportedScheme, next.Scheme)
			}
			cur = next
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, &StatusError{URL: cur.Redacted(), Code: resp.StatusCode}
		}
		return resp.Body, nil
	}
}

func parseStreamURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid stream url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid stream url %q: missing host", raw)
	}
	return u, nil
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}
