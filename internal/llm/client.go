// Package llm is the structured-output transport to the Gemini API used by
// the analyzer and the generator.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"twaforge/internal/domain"
	"twaforge/internal/metrics"
)

// Request is one schema-constrained generation call.
type Request struct {
	// Call labels the request in logs and metrics ("analyze", "generate").
	Call   string
	Model  string
	Prompt string
	Schema *Schema
}

// Model produces JSON matching Request.Schema and decodes it into out.
type Model interface {
	GenerateJSON(ctx context.Context, req Request, out any) error
}

// CredentialSource returns the API key, or "" when none is configured.
type CredentialSource func() string

type Client struct {
	credential CredentialSource
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithTimeout bounds each call; zero disables the bound.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

func NewClient(credential CredentialSource, opts ...ClientOption) *Client {
	c := &Client{
		credential: credential,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateJSON resolves the credential on every call so a key added while the
// process runs is picked up without a restart.
func (c *Client) GenerateJSON(ctx context.Context, req Request, out any) error {
	start := time.Now()
	err := c.generate(ctx, req, out)
	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		outcome = metrics.OutcomeMissingCredential
	case err != nil:
		outcome = metrics.OutcomeServiceError
	}
	c.metrics.ObserveModelCall(req.Call, outcome, time.Since(start))
	if err != nil {
		c.logger.Warn("model call failed", "call", req.Call, "model", req.Model, "outcome", outcome, "error", err)
	} else {
		c.logger.Info("model call completed", "call", req.Call, "model", req.Model, "duration", time.Since(start))
	}
	return err
}

func (c *Client) generate(ctx context.Context, req Request, out any) error {
	key := ""
	if c.credential != nil {
		key = strings.TrimSpace(c.credential())
	}
	if key == "" {
		return domain.ErrMissingCredential
	}
	if req.Model == "" {
		return domain.NewServiceError(req.Call, errors.New("model name is required"))
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	cc := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return domain.NewServiceError(req.Call, fmt.Errorf("create client: %w", err))
	}
	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	})
	if err != nil {
		return domain.NewServiceError(req.Call, err)
	}
	if resp == nil {
		return domain.NewServiceError(req.Call, errors.New("empty response"))
	}
	text := ExtractJSON(resp.Text())
	if text == "" {
		return domain.NewServiceError(req.Call, errors.New("response contained no JSON object"))
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return domain.NewServiceError(req.Call, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
