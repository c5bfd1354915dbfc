// Package transport owns the HTTP session used to talk to the target:
// cookie jar, request pacing and bounded body reads.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// ErrInvalidURL is returned when the target URL cannot be used.
var ErrInvalidURL = errors.New("invalid target url")

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxBodyBytes = 2 << 20
	defaultUserAgent    = "Mozilla/5.0 (compatible; blindseeker/1.0)"
)

// Options configures a Session.
type Options struct {
	BaseURL       string
	Cookies       map[string]string
	Timeout       time.Duration
	UserAgent     string
	RatePerSecond float64 // 0 = unlimited
	MaxBodyBytes  int64
	MaxConns      int // idle connections kept per host
	Logger        *zap.Logger
}

// Response is the part of an HTTP response the oracles look at.
type Response struct {
	StatusCode int
	Body       []byte
	Elapsed    time.Duration
}

// Session issues GET requests against one target URL.
// It is safe for concurrent use.
type Session struct {
	base      *url.URL
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBody   int64
	logger    *zap.Logger
}

// NewSession creates a session whose cookie jar is seeded with opts.Cookies.
func NewSession(opts Options) (*Session, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: %q needs an http(s) scheme and host", ErrInvalidURL, opts.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	jar.SetCookies(base, httpCookies(opts.Cookies))

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxConns := opts.MaxConns
	if maxConns <= 0 {
		maxConns = 20
	}
	rt := http.DefaultTransport.(*http.Transport).Clone()
	rt.MaxIdleConns = maxConns
	rt.MaxIdleConnsPerHost = maxConns

	s := &Session{
		base: base,
		client: &http.Client{
			Jar:       jar,
			Timeout:   timeout,
			Transport: rt,
		},
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodyBytes,
		logger:    opts.Logger,
	}
	if s.userAgent == "" {
		s.userAgent = defaultUserAgent
	}
	if s.maxBody <= 0 {
		s.maxBody = defaultMaxBodyBytes
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if opts.RatePerSecond > 0 {
		burst := int(opts.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return s, nil
}

// Get sends the target URL with params merged over its existing query.
// Non-2xx statuses are returned as responses, not errors.
func (s *Session) Get(ctx context.Context, params url.Values) (*Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := *s.base
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	elapsed := time.Since(start)

	s.logger.Debug("Response received",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", elapsed))

	return &Response{StatusCode: resp.StatusCode, Body: body, Elapsed: elapsed}, nil
}

// Cookies returns the cookies the jar will send to the target.
func (s *Session) Cookies() []*http.Cookie {
	return s.client.Jar.Cookies(s.base)
}

// Close releases idle connections.
func (s *Session) Close() {
	s.client.CloseIdleConnections()
}
