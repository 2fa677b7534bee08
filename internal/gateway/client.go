// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jeranaias/nexus-tui/internal/apierr"
)

const (
	// DefaultBaseURL is where a locally started gateway listens.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultMaxResponseBytes caps how much of a response body is read.
	DefaultMaxResponseBytes int64 = 10 * 1024 * 1024

	userAgent = "nexus-tui/0.1.0"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration options for the gateway client.
type Config struct {
	// BaseURL is the gateway root (default: http://localhost:8000)
	BaseURL string

	// RequestsPerSecond limits outbound requests; 0 disables limiting
	RequestsPerSecond float64

	// Burst is the limiter burst size (default: 5)
	Burst int

	// MaxResponseBytes caps response bodies (default: 10 MiB)
	MaxResponseBytes int64
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		RequestsPerSecond: 5,
		Burst:             5,
		MaxResponseBytes:  DefaultMaxResponseBytes,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one gateway. It is safe for concurrent use.
//
// The client sets no timeout on the underlying http.Client; each call is
// bounded by the context it is given.
type Client struct {
	baseURL    string
	maxBody    int64
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a client from cfg. A nil cfg uses DefaultConfig.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// Fill in defaults for any zero values
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	maxBody := cfg.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxResponseBytes
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	limiter := rate.NewLimiter(rate.Inf, burst)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL:    base,
		maxBody:    maxBody,
		httpClient: &http.Client{},
		limiter:    limiter,
		logger:     slog.Default(),
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h != nil {
		c.httpClient = h
	}
	return c
}

// WithLogger sets the logger used for request tracing.
func (c *Client) WithLogger(l *slog.Logger) *Client {
	if l != nil {
		c.logger = l
	}
	return c
}

// BaseURL returns the gateway root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// CATALOG
// =============================================================================

// Capabilities fetches the feature flags. A flag the gateway omits is
// reported as enabled.
func (c *Client) Capabilities(ctx context.Context) (*Capabilities, error) {
	var body capabilitiesBody
	if err := c.do(ctx, apierr.OpCatalog, http.MethodGet, "/api/capabilities", nil, nil, &body); err != nil {
		return nil, err
	}
	caps := &Capabilities{Chat: true, ImageGeneration: true}
	if body.Chat != nil {
		caps.Chat = *body.Chat
	}
	if body.ImageGeneration != nil {
		caps.ImageGeneration = *body.ImageGeneration
	}
	return caps, nil
}

// Models fetches the model catalog.
func (c *Client) Models(ctx context.Context) (*ModelsResponse, error) {
	var resp ModelsResponse
	if err := c.do(ctx, apierr.OpCatalog, http.MethodGet, "/api/models", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Models == nil {
		resp.Models = map[string][]string{}
	}
	return &resp, nil
}

// Providers fetches every provider the catalog references.
func (c *Client) Providers(ctx context.Context) (*ProvidersResponse, error) {
	var resp ProvidersResponse
	if err := c.do(ctx, apierr.OpCatalog, http.MethodGet, "/api/providers", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ModelsHealth asks the gateway to smoke-test models. An empty list lets the
// gateway pick its default set; perModel of zero uses the gateway default.
func (c *Client) ModelsHealth(ctx context.Context, models []string, perModel time.Duration) (*ModelsHealthResponse, error) {
	q := url.Values{}
	for _, m := range models {
		q.Add("models", m)
	}
	if perModel > 0 {
		q.Set("per_model_timeout", strconv.FormatFloat(perModel.Seconds(), 'f', -1, 64))
	}
	var resp ModelsHealthResponse
	if err := c.do(ctx, apierr.OpCatalog, http.MethodGet, "/api/models/health", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// HEALTH PROBE
// =============================================================================

// Ping issues a lightweight uncached read of the model list. Any 2xx response
// means the gateway is reachable. Probes bypass the rate limiter so chat and
// image traffic can never delay or fail them.
func (c *Client) Ping(ctx context.Context) error {
	return c.send(ctx, apierr.OpProbe, http.MethodGet, "/api/models", nil, nil, nil,
		http.Header{"Cache-Control": []string{"no-store"}})
}

// =============================================================================
// CHAT AND IMAGE
// =============================================================================

// Chat sends the conversation history and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, apierr.OpChat, http.MethodPost, "/api/chat", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateImage requests an image for a prompt.
func (c *Client) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error) {
	var resp ImageResponse
	if err := c.do(ctx, apierr.OpImage, http.MethodPost, "/api/generate-image", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// SESSIONS
// =============================================================================

// CreateSession creates an empty remote session. The gateway takes the
// metadata as query parameters and returns the session with its new ID.
func (c *Client) CreateSession(ctx context.Context, title, model, provider string) (*Session, error) {
	q := url.Values{}
	q.Set("title", title)
	q.Set("model", model)
	q.Set("provider", provider)

	var resp Session
	if err := c.do(ctx, apierr.OpSession, http.MethodPost, "/api/sessions", q, nil, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, &apierr.Error{Kind: apierr.KindServer, Op: apierr.OpSession, Detail: "session created without an id"}
	}
	return &resp, nil
}

// AppendMessage appends one message to the session with the given ID.
func (c *Client) AppendMessage(ctx context.Context, sessionID string, msg Message) error {
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/messages"
	return c.do(ctx, apierr.OpSession, http.MethodPost, path, nil, msg, nil)
}

// ListSessions returns every stored session.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var resp []Session
	if err := c.do(ctx, apierr.OpSession, http.MethodGet, "/api/sessions", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetSession returns one session with its messages.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	var resp Session
	if err := c.do(ctx, apierr.OpSession, http.MethodGet, "/api/sessions/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteSession removes a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, apierr.OpSession, http.MethodDelete, "/api/sessions/"+url.PathEscape(id), nil, nil, nil)
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) do(ctx context.Context, op apierr.Op, method, path string, query url.Values, in, out any) error {
	return c.doWithHeaders(ctx, op, method, path, query, in, out, nil)
}

// doWithHeaders waits for the rate limiter and performs one request. No
// retries: at most one request reaches the gateway per call.
func (c *Client) doWithHeaders(ctx context.Context, op apierr.Op, method, path string, query url.Values, in, out any, header http.Header) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apierr.FromTransport(op, limiterErr(ctx, err))
	}
	return c.send(ctx, op, method, path, query, in, out, header)
}

// limiterErr turns a limiter refusal into a deadline error. Wait fails early,
// before the deadline passes, when the token would not arrive in time.
func limiterErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
}

// send performs one request without consulting the limiter.
func (c *Client) send(ctx context.Context, op apierr.Op, method, path string, query url.Values, in, out any, header http.Header) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return apierr.Invalid(op, "encode request: %v", err)
		}
		body = bytes.NewReader(data)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return apierr.Invalid(op, "build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	for k, v := range header {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("gateway request failed",
			"op", op.String(), "method", method, "path", path,
			"request_id", requestID, "duration", time.Since(start), "err", err)
		return apierr.FromTransport(op, err)
	}
	defer resp.Body.Close()

	data, readErr := c.readResponse(resp)
	c.logger.Debug("gateway response",
		"op", op.String(), "method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apierr.FromStatus(op, resp.StatusCode, data)
	}
	if readErr != nil {
		if ctx.Err() != nil {
			return apierr.FromTransport(op, ctx.Err())
		}
		return &apierr.Error{Kind: apierr.KindServer, Op: op, Status: resp.StatusCode, Cause: readErr}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &apierr.Error{
			Kind:   apierr.KindServer,
			Op:     op,
			Status: resp.StatusCode,
			Detail: "invalid response body",
			Cause:  err,
		}
	}
	return nil
}

// readResponse reads the body up to the configured limit.
func (c *Client) readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, c.maxBody+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return body, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return body[:c.maxBody], fmt.Errorf("response exceeded maximum size of %d bytes", c.maxBody)
	}
	return body, nil
}
