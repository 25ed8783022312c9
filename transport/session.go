// Package transport is the cookie-carrying HTTP handle a login produces and
// the record fetchers consume.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"

	"github.com/jmcleod/mjuauth/autherr"
)

// maxBodyBytes caps how much of a page is read into memory.
const maxBodyBytes = 8 << 20

// Timeouts are applied per request.
type Timeouts struct {
	Default    time.Duration `yaml:"default" toml:"default"`
	Login      time.Duration `yaml:"login" toml:"login"`
	PageAccess time.Duration `yaml:"page_access" toml:"page_access"`
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Default:    10 * time.Second,
		Login:      15 * time.Second,
		PageAccess: 15 * time.Second,
	}
}

// DefaultHeaders mimic a desktop Chrome. Accept-Encoding is left to
// net/http so gzip is decoded transparently.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language": "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
	}
}

// Page is a fetched document after redirects.
type Page struct {
	// URL is the final URL after HTTP redirects.
	URL    string
	Status int
	Header http.Header
	Body   string
}

// Session is an HTTP client with its own cookie jar. It remembers which
// portal it has been validated for.
type Session struct {
	client   *http.Client
	headers  map[string]string
	timeouts Timeouts

	mu      sync.RWMutex
	service string
}

// Option configures a Session.
type Option func(*Session)

// WithHTTPClient uses c as the base client. A cookie jar is attached when c
// has none.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		if c != nil {
			cp := *c
			s.client = &cp
		}
	}
}

func WithTimeouts(t Timeouts) Option {
	return func(s *Session) {
		s.timeouts = t
	}
}

// WithHeaders adds or overrides base headers.
func WithHeaders(h map[string]string) Option {
	return func(s *Session) {
		for k, v := range h {
			s.headers[k] = v
		}
	}
}

// NewSession returns a fresh, unauthenticated session.
func NewSession(opts ...Option) (*Session, error) {
	s := &Session{
		client:   &http.Client{},
		headers:  DefaultHeaders(),
		timeouts: DefaultTimeouts(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		s.client.Jar = jar
	}
	return s, nil
}

func (s *Session) Timeouts() Timeouts {
	return s.timeouts
}

// Service returns the portal key the session was validated for, or "".
func (s *Session) Service() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.service
}

// MarkAuthenticated records that the session holds a valid login for
// service.
func (s *Session) MarkAuthenticated(service string) {
	s.mu.Lock()
	s.service = service
	s.mu.Unlock()
}

// Cookies returns the cookies the jar would send to rawURL.
func (s *Session) Cookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return s.client.Jar.Cookies(u)
}

// Get fetches rawURL. A zero timeout means Timeouts.Default.
func (s *Session) Get(ctx context.Context, rawURL string, timeout time.Duration) (*Page, error) {
	return s.do(ctx, http.MethodGet, rawURL, nil, nil, timeout)
}

// PostForm submits form urlencoded to rawURL with extra headers.
func (s *Session) PostForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string, timeout time.Duration) (*Page, error) {
	h := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	for k, v := range headers {
		h[k] = v
	}
	return s.do(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()), h, timeout)
}

func (s *Session) do(ctx context.Context, method, rawURL string, body io.Reader, headers map[string]string, timeout time.Duration) (*Page, error) {
	if timeout <= 0 {
		timeout = s.timeouts.Default
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, autherr.Network(method+" request could not be built", rawURL, 0, err)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		msg := method + " request failed"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = method + " request timed out"
		}
		return nil, autherr.Network(msg, rawURL, 0, err)
	}
	defer resp.Body.Close()

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, autherr.Network(fmt.Sprintf("%s returned %d", method, resp.StatusCode), finalURL, resp.StatusCode, nil)
	}

	text, err := readBody(resp)
	if err != nil {
		return nil, autherr.Network(method+" response could not be read", finalURL, resp.StatusCode, err)
	}

	return &Page{
		URL:    finalURL,
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   text,
	}, nil
}

// readBody decodes the response to UTF-8 using the declared or sniffed
// charset; the portal still serves some pages as EUC-KR.
func readBody(resp *http.Response) (string, error) {
	r, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
