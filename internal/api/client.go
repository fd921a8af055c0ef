package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jask/receiptdesk/internal/metrics"
	"github.com/jask/receiptdesk/internal/session"
)

const (
	DefaultBaseURL = "http://localhost:8000/api/v1"
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 4 << 20
)

// Client performs every call to the receipts backend. It decorates requests
// with the session's bearer token and applies the unauthorized policy: a 401
// answering a request that carried the current token clears the session and
// emits one event on Unauthorized. Credential exchanges are sent without a
// token, so their 401 is an ordinary error.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
	log     *zap.Logger
	metrics *metrics.Recorder

	unauthorized chan struct{}
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

func WithMetrics(m *metrics.Recorder) Option { return func(c *Client) { c.metrics = m } }

// New returns a client for baseURL, which includes the versioned path
// (e.g. http://host:8000/api/v1).
func New(baseURL string, sess *session.Session, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: invalid base url %q", baseURL)
	}
	if sess == nil {
		return nil, fmt.Errorf("api: session required")
	}
	c := &Client{
		baseURL:      baseURL,
		http:         &http.Client{Timeout: DefaultTimeout},
		session:      sess,
		log:          zap.NewNop(),
		unauthorized: make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Unauthorized delivers an event each time a 401 cleared the session. Events
// coalesce: while one is pending, further 401s do not queue more.
func (c *Client) Unauthorized() <-chan struct{} { return c.unauthorized }

func (c *Client) Session() *session.Session { return c.session }

func (c *Client) BaseURL() string { return c.baseURL }

type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	form   url.Values

	// anonymous calls never carry the bearer token.
	anonymous bool
}

func (c *Client) do(ctx context.Context, in call, out any) error {
	req, tok, err := c.newRequest(ctx, in)
	if err != nil {
		return err
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveRequest(in.op, "error", elapsed)
		c.log.Warn("api.send_error",
			zap.String("req_id", reqID),
			zap.String("op", in.op),
			zap.String("method", in.method),
			zap.String("path", in.path),
			zap.Int64("elapsed_ms", elapsed.Milliseconds()),
			zap.Error(err),
		)
		return &NetworkError{Op: in.op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.ObserveRequest(in.op, "error", elapsed)
		c.log.Warn("api.read_error", zap.String("req_id", reqID), zap.String("op", in.op), zap.Error(err))
		return &NetworkError{Op: in.op, Err: err}
	}
	c.metrics.ObserveRequest(in.op, strconv.Itoa(resp.StatusCode), elapsed)
	c.log.Debug("api.response",
		zap.String("req_id", reqID),
		zap.String("op", in.op),
		zap.String("method", in.method),
		zap.String("path", in.path),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(raw)),
		zap.Int64("elapsed_ms", elapsed.Milliseconds()),
	)

	if resp.StatusCode/100 != 2 {
		if resp.StatusCode == http.StatusUnauthorized && tok != "" {
			c.expireSession(ctx, in.op, tok)
		}
		apiErr := statusError(in.op, resp.StatusCode, raw)
		c.log.Warn("api.status_error",
			zap.String("req_id", reqID),
			zap.String("op", in.op),
			zap.Int("status", resp.StatusCode),
			zap.Error(apiErr),
		)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.log.Warn("api.decode_error", zap.String("req_id", reqID), zap.String("op", in.op), zap.Error(err))
		return fmt.Errorf("%s: decode response: %w", in.op, err)
	}
	return nil
}

// newRequest builds the HTTP request and reports the bearer token it
// attached, if any.
func (c *Client) newRequest(ctx context.Context, in call) (*http.Request, string, error) {
	target := c.baseURL + in.path
	if len(in.query) > 0 {
		target += "?" + in.query.Encode()
	}

	var body io.Reader
	contentType := "application/json"
	switch {
	case in.form != nil:
		body = strings.NewReader(in.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case in.body != nil:
		b, err := json.Marshal(in.body)
		if err != nil {
			return nil, "", fmt.Errorf("%s: encode request: %w", in.op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, in.method, target, body)
	if err != nil {
		return nil, "", fmt.Errorf("%s: build request: %w", in.op, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	var tok string
	if !in.anonymous {
		tok = c.session.Token()
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, tok, nil
}

// expireSession drops tok if the session still holds it. A 401 for a token
// that was already replaced or cleared changes nothing and emits no event.
func (c *Client) expireSession(ctx context.Context, op, tok string) {
	cleared, err := c.session.ClearIf(context.WithoutCancel(ctx), tok)
	if err != nil {
		c.log.Warn("session.clear_failed", zap.String("op", op), zap.Error(err))
	}
	if !cleared {
		c.log.Debug("api.stale_unauthorized", zap.String("op", op))
		return
	}
	c.metrics.IncUnauthorized()
	select {
	case c.unauthorized <- struct{}{}:
	default:
	}
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, id)
}
