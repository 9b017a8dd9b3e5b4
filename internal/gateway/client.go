// ABOUTME: Authenticated HTTP client for the Predictera REST API
// ABOUTME: Attaches bearer tokens, decodes envelopes, and retries once after refresh

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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/predictera-console/internal/credentials"
)

// authPath is the login/refresh/logout endpoint. A 401 here never triggers
// a refresh.
const authPath = "/authentications"

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 << 20

// Config holds connection settings for a Client.
type Config struct {
	BaseURL string
	// Timeout bounds each HTTP attempt. Zero means no per-attempt bound.
	Timeout time.Duration
	// RefreshTimeout bounds each token refresh call.
	RefreshTimeout time.Duration
	// HTTPClient overrides the transport; nil uses a fresh http.Client.
	HTTPClient *http.Client
}

// Request describes one outbound call.
type Request struct {
	Method string
	Path   string // relative API path, e.g. "/api/machines"
	Body   any    // JSON-serialized when non-nil
	Header http.Header
}

// Envelope is the response wrapper shared by every endpoint.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Client sends authenticated requests. It is safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	store     credentials.Store
	refresher *RefreshCoordinator
	logger    *slog.Logger
}

// New creates a Client that reads and writes credentials through store.
func New(cfg Config, store credentials.Store, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		return nil, fmt.Errorf("credentials store is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must use http or https scheme")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	c := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    httpClient,
		timeout: cfg.Timeout,
		store:   store,
		logger:  logger.With("component", "gateway"),
	}
	c.refresher = NewRefreshCoordinator(store, c.exchangeRefreshToken, cfg.RefreshTimeout, logger)
	return c, nil
}

// SetAuthExpiredHook registers fn to run whenever a refresh fails and the
// stored credentials are cleared. Redirecting to login is the hook's job.
func (c *Client) SetAuthExpiredHook(fn func()) {
	c.refresher.SetExpiredHook(fn)
}

// Refresher exposes the client's refresh coordinator.
func (c *Client) Refresher() *RefreshCoordinator {
	return c.refresher
}

// Get is shorthand for Do with GET.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path}, out)
}

// Post is shorthand for Do with POST.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put is shorthand for Do with PUT.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete is shorthand for Do with DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Do sends req and decodes the envelope's data into out (when non-nil).
// A 401 triggers one coordinated refresh and a single retry.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if err := validatePath(req.Path); err != nil {
		return err
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	payload, err := marshalBody(req.Body)
	if err != nil {
		return err
	}

	pair, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	requestID := uuid.New().String()
	resp, err := c.send(ctx, req, payload, pair.AccessToken, requestID)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized && !isAuthPath(req.Path) {
		if err := c.refresher.Refresh(ctx, pair.AccessToken); err != nil {
			return err
		}

		pair, err = c.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading credentials: %w", err)
		}

		c.logger.Debug("retrying after refresh", "method", req.Method, "path", req.Path, "request_id", requestID)
		resp, err = c.send(ctx, req, payload, pair.AccessToken, requestID)
		if err != nil {
			return err
		}
	}

	return decodeResponse(req, resp, out)
}

// rawResponse is a fully read HTTP response.
type rawResponse struct {
	status int
	body   []byte
}

// send performs one HTTP attempt. Transport failures become KindNetwork errors.
func (c *Client) send(ctx context.Context, req Request, payload []byte, accessToken, requestID string) (*rawResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("X-Request-ID", requestID)
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed",
			"method", req.Method,
			"path", req.Path,
			"request_id", requestID,
			"error", err,
		)
		return nil, &Error{
			Kind:    KindNetwork,
			Message: "no response from server",
			Method:  req.Method,
			Path:    req.Path,
			Err:     err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &Error{
			Kind:    KindNetwork,
			Message: "reading response body",
			Method:  req.Method,
			Path:    req.Path,
			Err:     err,
		}
	}

	c.logger.Debug("request completed",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)
	return &rawResponse{status: resp.StatusCode, body: data}, nil
}

// decodeResponse converts a non-2xx response into *Error, or unmarshals the
// envelope data into out.
func decodeResponse(req Request, resp *rawResponse, out any) error {
	if resp.status < 200 || resp.status >= 300 {
		return statusError(req, resp)
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}

	var env Envelope
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return invalidResponse(req, resp, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return invalidResponse(req, resp, err)
	}
	return nil
}

// invalidResponse reports a 2xx body that could not be decoded. The parse
// error is kept in Err and never becomes the message.
func invalidResponse(req Request, resp *rawResponse, cause error) *Error {
	return &Error{
		Kind:    KindInvalidResponse,
		Status:  resp.status,
		Message: "invalid response from server",
		Method:  req.Method,
		Path:    req.Path,
		Err:     cause,
	}
}

func statusError(req Request, resp *rawResponse) *Error {
	message := fmt.Sprintf("HTTP %d: %s", resp.status, http.StatusText(resp.status))

	var env Envelope
	if json.Unmarshal(resp.body, &env) == nil && env.Message != "" {
		message = env.Message
	}

	var body json.RawMessage
	if json.Valid(resp.body) {
		body = json.RawMessage(resp.body)
	}

	return &Error{
		Kind:    kindForStatus(resp.status),
		Status:  resp.status,
		Message: message,
		Body:    body,
		Method:  req.Method,
		Path:    req.Path,
	}
}

func marshalBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}
	return payload, nil
}

// validatePath accepts only paths relative to the API base URL.
func validatePath(path string) error {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	u, err := url.Parse(path)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}

func isAuthPath(path string) bool {
	p, _, _ := strings.Cut(path, "?")
	return p == authPath
}
