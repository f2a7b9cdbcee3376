package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"notifyclient/pkg/logx"
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to one notification server. It holds no mutable state and is
// safe for concurrent use.
type Client struct {
	base    string
	hc      Doer
	log     logx.Logger
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient. Use it to set timeouts or a
// custom transport.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.hc = d
		}
	}
}

// WithLogger sets the logger used for request tracing and for the causes of
// failed fire-and-forget operations.
func WithLogger(l logx.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithLimiter makes every request wait for a token from l first.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// New creates a Client for the server at baseAddress, in
// "http(s)://host:port" form. The address is used verbatim.
func New(baseAddress string, opts ...Option) *Client {
	c := &Client{
		base: baseAddress,
		hc:   http.DefaultClient,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.log.IsZero() {
		c.log = logx.Nop()
	}
	return c
}

// BaseAddress returns the address given to New.
func (c *Client) BaseAddress() string { return c.base }

func (c *Client) endpoint(command string) string {
	return c.base + "/" + strings.TrimLeft(command, "/")
}

// call posts data as JSON to command and returns the raw body, whatever the
// HTTP status.
func (c *Client) call(ctx context.Context, command string, data any) (string, error) {
	command = strings.TrimLeft(command, "/")
	uri := c.endpoint(command)

	body, err := encodeJSON(data)
	if err != nil {
		return "", &EncodeError{Command: command, Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &TransportError{Command: command, URL: uri, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Command: command, URL: uri, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", &TransportError{Command: command, URL: uri, Err: err}
	}
	defer resp.Body.Close()

	ret, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Command: command, URL: uri, Err: err}
	}

	c.log.Debug(
		"notify call",
		logx.String("command", command),
		logx.Int("status", resp.StatusCode),
		logx.Int("bytes", len(ret)),
		logx.Duration("took", time.Since(start)),
	)
	return string(ret), nil
}

// exec runs call for operations that only report success.
func (c *Client) exec(ctx context.Context, command string, data any, fields ...logx.Field) bool {
	if _, err := c.call(ctx, command, data); err != nil {
		c.log.Warn("notify call failed", append(fields, logx.String("command", command), logx.Err(err))...)
		return false
	}
	return true
}

// encodeJSON marshals v without escaping HTML or non-ASCII characters.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
