package moodle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/juju/clock"
	"golang.org/x/net/publicsuffix"
	"nalanda/pkg/config"
	errs "nalanda/pkg/errors"
	"nalanda/pkg/logger"
	"nalanda/pkg/parser"
	"nalanda/pkg/ratelimit"
	"nalanda/pkg/retry"
)

// LandingMarker must appear on the landing page of a logged-in session
const LandingMarker = "My courses"

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Options configures a Client
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	UserAgent   string
	MaxAttempts int
	Backoff     retry.BackoffStrategy
	Limiter     ratelimit.Limiter
	Logger      logger.Logger
	// Transport replaces the default network transport; used by tests
	Transport http.RoundTripper
}

// Client is an authenticated session with the portal. Cookies persist
// across requests for the lifetime of the client.
type Client struct {
	httpClient *http.Client
	endpoints  Endpoints
	headers    map[string]string
	logger     logger.Logger
}

// NewClient creates a client with its own cookie jar
func NewClient(opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.Backoff == nil {
		opts.Backoff = retry.DefaultExponentialBackoff()
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	next := opts.Transport
	if next == nil {
		next = newNetworkTransport(opts.Timeout)
	}

	return &Client{
		httpClient: &http.Client{
			Jar: jar,
			Transport: &retryTransport{
				next:        &idleTimeoutTransport{next: next, timeout: opts.Timeout},
				maxAttempts: opts.MaxAttempts,
				backoff:     opts.Backoff,
				limiter:     opts.Limiter,
				logger:      log,
			},
		},
		endpoints: NewEndpoints(opts.BaseURL),
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
		logger: log,
	}, nil
}

// NewClientFromConfig builds a client from the portal, retry and rate limit
// sections of cfg
func NewClientFromConfig(cfg *config.Config, log logger.Logger, clk clock.Clock) (*Client, error) {
	return NewClient(Options{
		BaseURL:     cfg.Portal.BaseURL,
		Timeout:     cfg.Portal.Timeout,
		UserAgent:   cfg.Portal.UserAgent,
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:    cfg.Retry.BaseDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Limiter: ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute, clk),
		Logger:  log,
	})
}

// newNetworkTransport bounds connecting and waiting for response headers by
// timeout. Body reads are bounded per read by idleTimeoutTransport.
func newNetworkTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errs.Wrap(errs.KindNetworkFatal, err, "invalid request for %s", rawURL)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

// do sends req and maps failures onto error kinds. Cancellation becomes an
// interrupt; anything the transport could not recover from is fatal for
// the link being fetched.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, errs.Wrap(errs.KindInterrupt, ctxErr, "%s %s", req.Method, req.URL.Redacted())
		}
		c.logger.WithError(err).WarnWithFields("request failed", logger.Fields{
			"method": req.Method,
			"url":    req.URL.Redacted(),
		})
		fatal := errs.Wrap(errs.KindNetworkFatal, err, "%s %s", req.Method, req.URL.Redacted())
		var cause *errs.Error
		if errors.As(err, &cause) {
			fatal.Code = cause.Code
		}
		return nil, fatal
	}
	return resp, nil
}

// Login opens the session. It loads the login form for its cookies and
// token, posts the credentials, then requires the landing page to list
// courses. The landing page HTML is returned.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	loginURL := c.endpoints.Login()
	c.logger.DebugWithFields("loading login page", logger.Fields{"url": loginURL})

	form, err := c.GetPage(ctx, loginURL)
	if err != nil {
		return "", err
	}

	values := url.Values{
		"username": {username},
		"password": {password},
	}
	if token := parser.LoginToken(bytes.NewReader(form)); token != "" {
		values.Set("logintoken", token)
	}

	req, err := c.newRequest(ctx, http.MethodPost, loginURL, strings.NewReader(values.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", loginURL)

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", errs.New(errs.KindLogin, "portal rejected the credentials for %s", username)
	case resp.StatusCode >= 400:
		return "", errs.HTTPStatus(resp.StatusCode, loginURL)
	}

	landing, err := c.GetPage(ctx, c.endpoints.MyCourses())
	if err != nil {
		return "", err
	}
	if !bytes.Contains(landing, []byte(LandingMarker)) {
		c.logger.WarnWithFields("landing page does not list courses", logger.Fields{"username": username})
		return "", errs.New(errs.KindLogin, "cannot log in as %s", username)
	}

	c.logger.InfoWithFields("logged in", logger.Fields{"username": username})
	return string(landing), nil
}

// Head returns the response headers of rawURL after following redirects
func (c *Client) Head(ctx context.Context, rawURL string) (http.Header, error) {
	req, err := c.newRequest(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, errs.HTTPStatus(resp.StatusCode, rawURL)
	}
	return resp.Header, nil
}

// Get fetches rawURL. The caller must close the body of a successful
// response; any status of 400 or above is returned as an error.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, errs.HTTPStatus(resp.StatusCode, rawURL)
	}
	return resp, nil
}

// GetPage fetches rawURL and returns the whole body
func (c *Client) GetPage(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.KindInterrupt, ctx.Err(), "reading %s", rawURL)
		}
		return nil, errs.Wrap(errs.KindNetworkFatal, err, "failed to read %s", rawURL)
	}
	return body, nil
}

// Close releases idle connections held by the session
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
