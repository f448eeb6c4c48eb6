package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/roach88/flexiq/internal/ir"
)

// ErrRecordNotFound is returned when the server answers 404.
// The accompanying Response still carries the decoded payload.
var ErrRecordNotFound = errors.New("record not found")

// ErrPasswordRequired is returned by New when a user is set without a password.
var ErrPasswordRequired = errors.New("password is required if user is set")

// DefaultTimeout bounds a single request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config describes how to reach one company on a FlexiBee server.
type Config struct {
	// Host is the server root, e.g. https://demo.flexibee.eu:5434.
	Host string

	// Company is the company database identifier.
	Company string

	// User and Password enable HTTP basic auth. Password is required
	// when User is set.
	User     string
	Password string

	// AuthUser is sent as X-FlexiBee-Authorization to act on behalf of
	// another user.
	AuthUser string

	// MinTLSVersion is the lowest TLS version accepted (tls.VersionTLS12,
	// tls.VersionTLS13). Zero keeps the Go default.
	MinTLSVersion uint16

	// InsecureSkipVerify disables certificate verification for servers
	// with self-signed certificates.
	InsecureSkipVerify bool

	Timeout time.Duration
}

// Request is one call against the company base URL.
type Request struct {
	// Method is the HTTP method (GET, PUT, DELETE).
	Method string

	// URL is the path relative to the company base URL, including the
	// encoded query string.
	URL string

	// Body is encoded as JSON when set.
	Body ir.Value
}

// Response is the decoded answer to a Request.
type Response struct {
	Status int

	// Payload is the decoded JSON body, or ir.Null for an empty body.
	Payload ir.Value
}

// Client is a FlexiBee HTTP client for one company.
//
// Thread-safety: Client is safe for concurrent use.
type Client struct {
	baseURL  string
	user     string
	password string
	authUser string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests use the
// httptest server's client).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.User != "" && cfg.Password == "" {
		return nil, ErrPasswordRequired
	}
	if cfg.Host == "" || cfg.Company == "" {
		return nil, fmt.Errorf("host and company are required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL:  BaseURL(cfg.Host, cfg.Company),
		user:     cfg.User,
		password: cfg.Password,
		authUser: cfg.AuthUser,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					MinVersion:         cfg.MinTLSVersion,
					InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for self-signed servers
				},
			},
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the company base URL <host>/c/<company>.
func BaseURL(host, company string) string {
	return strings.TrimSuffix(host, "/") + "/c/" + company
}

// BaseURL returns the company base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send performs req and decodes the response body.
//
// Any status is returned as a Response; only 404 is also reported as
// ErrRecordNotFound so callers can treat it as absence.
func (c *Client) Send(ctx context.Context, req Request) (Response, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := ir.Marshal(req.Body)
		if err != nil {
			return Response{}, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+"/"+req.URL, body)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Accept-Encoding", "gzip")
	if c.authUser != "" {
		httpReq.Header.Set("X-FlexiBee-Authorization", c.authUser)
	}
	if c.user != "" {
		httpReq.SetBasicAuth(c.user, c.password)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer httpResp.Body.Close()

	payload, err := decodeBody(httpResp)
	if err != nil {
		return Response{Status: httpResp.StatusCode}, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}

	c.logger.Debug("response received",
		"method", req.Method,
		"url", req.URL,
		"status", httpResp.StatusCode,
	)

	resp := Response{Status: httpResp.StatusCode, Payload: payload}
	if httpResp.StatusCode == http.StatusNotFound {
		return resp, ErrRecordNotFound
	}
	return resp, nil
}

// decodeBody reads and decodes the response body, inflating gzip content.
func decodeBody(resp *http.Response) (ir.Value, error) {
	reader := io.Reader(resp.Body)
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ir.Null{}, nil
	}

	payload, err := ir.Decode(data)
	if err != nil {
		// Error pages are not always JSON; keep the text for diagnostics
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return ir.String(string(data)), nil
		}
		return nil, err
	}
	return payload, nil
}
