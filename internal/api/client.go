// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jeranaias/ragdash/internal/chat"
	"github.com/jeranaias/ragdash/internal/logger"
	"github.com/jeranaias/ragdash/internal/search"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend root (default: http://127.0.0.1:8000)
	BaseURL string

	// Timeout for non-streaming requests (default: 60s). Chat and
	// collection search wait on an LLM, so this is generous.
	Timeout time.Duration

	// ConnectTimeout bounds dialing for streaming requests (default: 10s).
	// The stream body itself has no deadline.
	ConnectTimeout time.Duration

	// RequestsPerSecond limits non-streaming calls (default: 5, burst 10).
	RequestsPerSecond float64
	Burst             int

	// ConfigTTL caches /api/config (default: 5m). Negative disables.
	ConfigTTL time.Duration

	// UserAgent sent with every request.
	UserAgent string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:           "http://127.0.0.1:8000",
		Timeout:           60 * time.Second,
		ConnectTimeout:    10 * time.Second,
		RequestsPerSecond: 5,
		Burst:             10,
		ConfigTTL:         5 * time.Minute,
		UserAgent:         "ragdash",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

const configCacheKey = "remote-config"

// Client talks to the RAG backend. It is safe for concurrent use.
type Client struct {
	config       *ClientConfig
	base         *url.URL
	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
	cache        *cache.Cache
	validate     *validator.Validate
	log          *logger.Logger
}

// NewClient creates a client; zero fields in config take defaults.
func NewClient(config *ClientConfig) (*Client, error) {
	def := DefaultConfig()
	if config == nil {
		config = def
	}
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = def.ConnectTimeout
	}
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = def.RequestsPerSecond
	}
	if config.Burst == 0 {
		config.Burst = def.Burst
	}
	if config.ConfigTTL == 0 {
		config.ConfigTTL = def.ConfigTTL
	}
	if config.UserAgent == "" {
		config.UserAgent = def.UserAgent
	}

	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.New("api: invalid base URL " + strconv.Quote(config.BaseURL))
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: config.ConnectTimeout, KeepAlive: 30 * time.Second}).DialContext

	return &Client{
		config:       config,
		base:         base,
		httpClient:   &http.Client{Timeout: config.Timeout},
		streamClient: &http.Client{Transport: transport},
		limiter:      rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		cache:        cache.New(config.ConfigTTL, 2*config.ConfigTTL),
		validate:     validator.New(),
		log:          logger.L(),
	}, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// =============================================================================
// SEARCH
// =============================================================================

// OpenSearchStream starts POST /api/search and returns the NDJSON body.
// The caller must close it. A non-OK status is returned as an error.
func (c *Client) OpenSearchStream(ctx context.Context, p search.Params) (io.ReadCloser, error) {
	body := NewSearchRequest(p)
	if err := c.validate.Struct(body); err != nil {
		return nil, validationError(err)
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/search", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, &search.TransportError{Op: "search", Message: "request failed", Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, search.ErrorFromResponse("search", resp.StatusCode, data)
	}
	return resp.Body, nil
}

// CollectionSearch runs the non-streaming search variant.
func (c *Client) CollectionSearch(ctx context.Context, p search.Params) (*CollectionResult, error) {
	body := NewCollectionSearchRequest(p)
	if err := c.validate.Struct(body); err != nil {
		return nil, validationError(err)
	}
	var out CollectionResult
	if err := c.doJSON(ctx, "collection_search", http.MethodPost, "/api/collection_search", body, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []search.Result{}
	}
	return &out, nil
}

// =============================================================================
// CHAT
// =============================================================================

// Chat sends one chat turn. A JSON body with an error field is returned
// as a Response with Error set, not as a Go error, so the session can
// classify it.
func (c *Client) Chat(ctx context.Context, req chat.Request) (*chat.Response, error) {
	var out chat.Response
	err := c.doJSON(ctx, "chat", http.MethodPost, "/api/chat", req, &out)
	if err != nil {
		var stageErr *search.BackendStageError
		if errors.As(err, &stageErr) && stageErr.Stage == "" {
			return &chat.Response{Error: stageErr.Message}, nil
		}
		return nil, err
	}
	return &out, nil
}

// ClearLLMHistory drops the backend's conversation memory.
func (c *Client) ClearLLMHistory(ctx context.Context) error {
	return c.doJSON(ctx, "clear_llm_history", http.MethodPost, "/api/clear_llm_history", struct{}{}, nil)
}

// ClearLastLLMTurn drops the backend's most recent exchange.
func (c *Client) ClearLastLLMTurn(ctx context.Context) error {
	return c.doJSON(ctx, "clear_last_llm_turn", http.MethodPost, "/api/clear_last_llm_turn", struct{}{}, nil)
}

// =============================================================================
// FEEDBACK + CONFIG
// =============================================================================

// Feedback records a thumbs up/down for a query.
func (c *Client) Feedback(ctx context.Context, fb FeedbackRequest) error {
	if err := c.validate.Struct(fb); err != nil {
		return validationError(err)
	}
	return c.doJSON(ctx, "feedback", http.MethodPost, "/api/feedback", fb, nil)
}

// Config fetches GET /api/config, served from cache within ConfigTTL.
func (c *Client) Config(ctx context.Context) (*RemoteConfig, error) {
	if c.config.ConfigTTL > 0 {
		if v, ok := c.cache.Get(configCacheKey); ok {
			return v.(*RemoteConfig), nil
		}
	}
	var out RemoteConfig
	if err := c.doJSON(ctx, "config", http.MethodGet, "/api/config", nil, &out); err != nil {
		return nil, err
	}
	if c.config.ConfigTTL > 0 {
		c.cache.SetDefault(configCacheKey, &out)
	}
	return &out, nil
}

// InvalidateConfig drops the cached backend config.
func (c *Client) InvalidateConfig() {
	c.cache.Delete(configCacheKey)
}

// =============================================================================
// COLLECTIONS
// =============================================================================

// ClearCollection deletes every document of a collection.
func (c *Client) ClearCollection(ctx context.Context, name string) (*Ack, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &search.ClientValidationError{Reason: search.ReasonEmpty, Message: "collection name is empty"}
	}
	var out Ack
	body := map[string]string{"collection_name": name}
	if err := c.doJSON(ctx, "clear_collection", http.MethodPost, "/api/clear_collection", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CollectionStats returns the backend's statistics for a collection.
func (c *Client) CollectionStats(ctx context.Context, name string) (map[string]interface{}, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &search.ClientValidationError{Reason: search.ReasonEmpty, Message: "collection name is empty"}
	}
	out := map[string]interface{}{}
	if err := c.doJSON(ctx, "collection_stats", http.MethodGet, "/api/collection_stats/"+url.PathEscape(name), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload sends a file as multipart form data.
func (c *Client) Upload(ctx context.Context, u UploadRequest) (*UploadResult, error) {
	if u.Mode == "" {
		u.Mode = "Dense"
		if strings.Contains(u.CollectionName, "hybrid") {
			u.Mode = "Hybrid"
		}
	}
	if u.ChunkSize == 0 {
		u.ChunkSize = 300
	}
	if err := c.validate.Struct(u); err != nil {
		return nil, validationError(err)
	}

	f, err := os.Open(u.FilePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(u.FilePath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	fields := [][2]string{
		{"collection_name", u.CollectionName},
		{"mode", u.Mode},
		{"embedding_model", u.EmbeddingModel},
		{"chunk_size", strconv.Itoa(u.ChunkSize)},
	}
	for _, kv := range fields {
		if kv[1] == "" {
			continue
		}
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/upload"), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out UploadResult
	if err := c.do(req, "upload", &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return &out, &search.BackendStageError{Message: out.Error}
	}
	return &out, nil
}

// =============================================================================
// PLUMBING
// =============================================================================

func (c *Client) newJSONRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.decorate(req)
	return req, nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", c.config.UserAgent)
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.New().String())
	}
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out interface{}) error {
	req, err := c.newJSONRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.do(req, op, out)
}

// do rate-limits, sends and decodes a non-streaming request.
func (c *Client) do(req *http.Request, op string, out interface{}) error {
	c.decorate(req)
	if err := c.limiter.Wait(req.Context()); err != nil {
		return &search.TransportError{Op: op, Message: "rate limiter", Cause: err}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &search.TransportError{Op: op, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return &search.TransportError{Op: op, StatusCode: resp.StatusCode, Message: "read body", Cause: err}
	}

	c.log.Debug("api", "request", logger.Details{
		"op":         op,
		"status":     resp.StatusCode,
		"request_id": req.Header.Get("X-Request-ID"),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return search.ErrorFromResponse(op, resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &search.TransportError{Op: op, StatusCode: resp.StatusCode, Message: "invalid response body", Cause: err}
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &search.ClientValidationError{
			Reason:  search.ReasonInvalid,
			Message: "invalid " + strings.ToLower(fe.Field()) + ": failed " + fe.Tag() + " check",
		}
	}
	return &search.ClientValidationError{Reason: search.ReasonInvalid, Message: err.Error()}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
