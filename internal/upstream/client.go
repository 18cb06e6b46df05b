package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

type Config struct {
	// Timeout bounds a whole upstream exchange, body included. The inbound
	// request context can still cut it shorter.
	Timeout time.Duration

	DialTimeout     time.Duration
	KeepAlive       time.Duration
	TLSHandshake    time.Duration
	ResponseHeader  time.Duration
	IdleConnTimeout time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
}

func DefaultConfig() Config {
	return Config{
		Timeout:             10 * time.Second,
		DialTimeout:         5 * time.Second,
		KeepAlive:           30 * time.Second,
		TLSHandshake:        5 * time.Second,
		ResponseHeader:      10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
	}
}

// NewHTTPClient builds the pooled client shared by every outbound call.
func NewHTTPClient(cfg Config) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	tr := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		ForceAttemptHTTP2: true,

		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,

		TLSHandshakeTimeout:   cfg.TLSHandshake,
		ResponseHeaderTimeout: cfg.ResponseHeader,
	}

	return &http.Client{
		Transport: tr,
		Timeout:   cfg.Timeout,
	}
}

// Request is a single outbound call to one of the origins.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Get builds a bare GET, the shape of every rewritten fetch.
func Get(rawURL string) *Request {
	return &Request{Method: http.MethodGet, URL: rawURL}
}

// Response is a buffered upstream reply.
type Response struct {
	Status   int
	Header   http.Header
	Body     []byte
	Duration time.Duration
}

// Observer is told about every finished call, successful or not.
type Observer func(req *Request, status int, d time.Duration, err error)

type Client struct {
	client   *http.Client
	timeout  time.Duration
	observer Observer
}

type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func NewClient(opts ...Option) *Client {
	cfg := DefaultConfig()
	c := &Client{
		client:  NewHTTPClient(cfg),
		timeout: cfg.Timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs the call and buffers the reply. Transport failures are
// returned as errors and never retried.
func (c *Client) Fetch(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	res, err := c.do(ctx, req)
	d := time.Since(start)

	if c.observer != nil {
		status := 0
		if res != nil {
			status = res.Status
		}
		c.observer(req, status, d, err)
	}
	if err != nil {
		return nil, err
	}
	res.Duration = d
	return res, nil
}

func (c *Client) do(ctx context.Context, req *Request) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	hr, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request %s %s: %w", method, req.URL, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hr.Header.Add(k, v)
		}
	}
	StripHopHeaders(hr.Header)
	hr.Header.Del("Host")

	resp, err := c.client.Do(hr)
	if err != nil {
		return nil, fmt.Errorf("upstream %s %s: %w", method, redact(req.URL), err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body %s: %w", redact(req.URL), err)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   payload,
	}, nil
}

// Origin returns the host part of an upstream URL, used as a metrics label.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

// redact drops the query string so form tokens never reach the logs.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}
