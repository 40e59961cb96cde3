// Package pocketbase is the gateway to the auth backend's REST API.
//
// Every call goes to <BaseURL>/api/collections/<collection>/<endpoint>.
// The client holds no per-user state and is safe for concurrent use; the
// bearer token for authenticated calls is passed in by the caller.
package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/DukeRupert/pbgate/internal/domain"
	"github.com/DukeRupert/pbgate/internal/metrics"
)

const (
	// DefaultCollection is the auth collection used when none is configured.
	DefaultCollection = "users"

	// DefaultTimeout bounds every backend round trip.
	DefaultTimeout = 10 * time.Second

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 1 << 20

	noResponseBody = "No response body"
	requestFailed  = "Request failed"
)

// Config configures a Client.
type Config struct {
	BaseURL    string        // e.g. http://127.0.0.1:8090
	Collection string        // auth collection name, default "users"
	Timeout    time.Duration // per-call timeout, default 10s
	Cache      bool          // serve cacheable GETs from an in-memory RFC 7234 cache
}

// Client calls the auth backend.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a gateway client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.Cache {
		httpClient.Transport = httpcache.NewTransport(httpcache.NewMemoryCache())
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		collection: collection,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Collection returns the auth collection this client targets.
func (c *Client) Collection() string {
	return c.collection
}

// Response is a parsed backend reply.
//
// A reply with no body at all comes back as {Status, "No response body"}
// with a nil error, whatever the status. Callers decide what that means.
type Response struct {
	Status  int
	Message string
	Body    []byte
}

// OK reports whether the backend answered with a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(op string, v any) error {
	if len(r.Body) == 0 {
		return domain.Backend(op, "Unexpected response from authentication server")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return domain.Wrap(err, domain.EBACKEND, op, "Unexpected response from authentication server")
	}
	return nil
}

// errorBody is the backend's error shape; only message is surfaced.
type errorBody struct {
	Message string `json:"message"`
}

// Call performs one request against <collection>/<endpoint>.
//
// headers may be nil. Content-Type defaults to application/json unless
// headers sets it. body is JSON-encoded when non-nil.
//
// Non-2xx replies with a body fail with an EBACKEND error carrying the
// backend's message (or "Request failed"). Transport failures, including
// context cancellation, fail with EBACKEND wrapping the cause.
func (c *Client) Call(ctx context.Context, endpoint, method string, headers http.Header, body any) (*Response, error) {
	const op = "pocketbase.call"

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to encode request body")
		}
		reader = bytes.NewReader(data)
	}

	url := c.baseURL + "/api/collections/" + c.collection + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to build request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, values := range headers {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	label := metricEndpoint(endpoint)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.BackendCall(label, 0, time.Since(start))
		c.logger.Debug("backend call failed",
			"endpoint", label,
			"method", method,
			"error", err,
		)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, domain.Wrap(err, domain.EBACKEND, op, "Authentication server did not respond in time")
		}
		return nil, domain.Wrap(err, domain.EBACKEND, op, "Unable to reach authentication server")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	duration := time.Since(start)
	metrics.BackendCall(label, resp.StatusCode, duration)
	c.logger.Debug("backend call",
		"endpoint", label,
		"method", method,
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
		"cached", resp.Header.Get(httpcache.XFromCache) == "1",
	)
	if err != nil {
		return nil, domain.Wrap(err, domain.EBACKEND, op, "Unable to read authentication server response")
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return &Response{Status: resp.StatusCode, Message: noResponseBody}, nil
	}

	var parsed errorBody
	if err := json.Unmarshal(data, &parsed); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, domain.Wrap(err, domain.EBACKEND, op, requestFailed)
		}
		// Non-object JSON (an array) is still a valid reply.
		if !json.Valid(data) {
			return nil, domain.Wrap(err, domain.EBACKEND, op, "Unexpected response from authentication server")
		}
	}

	out := &Response{Status: resp.StatusCode, Message: parsed.Message, Body: data}
	if !out.OK() {
		msg := parsed.Message
		if msg == "" {
			msg = requestFailed
		}
		return out, domain.Backend(op, msg)
	}
	return out, nil
}

// CallWithAuth is Call with the bearer token attached.
//
// The token is sent verbatim in the Authorization header, without a
// "Bearer " prefix; an empty token sends no header at all.
func (c *Client) CallWithAuth(ctx context.Context, token, endpoint, method string, body any) (*Response, error) {
	var headers http.Header
	if token != "" {
		headers = http.Header{}
		headers.Set("Authorization", token)
	}
	return c.Call(ctx, endpoint, method, headers, body)
}

// metricEndpoint strips record ids so metric labels stay bounded.
func metricEndpoint(endpoint string) string {
	endpoint = strings.TrimLeft(endpoint, "/")
	if strings.HasPrefix(endpoint, "records/") {
		return "records/{id}"
	}
	return endpoint
}
