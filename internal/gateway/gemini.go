package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiOptions configures a GeminiClient.
type GeminiOptions struct {
	APIKey  string
	Model   string
	BaseURL string // optional override, used by tests
	Timeout time.Duration
	Backoff time.Duration
}

// GeminiClient generates replies through the Gemini API. The system turn is
// sent as the system instruction; remaining turns become contents.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	backoff time.Duration
}

// NewGeminiClient creates a Gemini-backed Generator.
func NewGeminiClient(ctx context.Context, opts GeminiOptions) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	gi, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	c := &GeminiClient{
		client:  gi,
		model:   opts.Model,
		timeout: opts.Timeout,
		backoff: opts.Backoff,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.backoff <= 0 {
		c.backoff = defaultBackoff
	}
	return c, nil
}

// Backend names this implementation in logs and metrics.
func (c *GeminiClient) Backend() string { return "gemini" }

// Generate sends req to Gemini. req.Model overrides the configured model
// when set.
func (c *GeminiClient) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	temperature := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(req.MaxTokens),
	}

	var system []string
	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	return withRetry(ctx, c.timeout, c.backoff, func(ctx context.Context) (string, error) {
		resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
		if err != nil {
			return "", c.wrapError(err)
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return FallbackReply, nil
		}
		return text, nil
	})
}

// wrapError maps genai failures onto *Error. genai returns APIError by
// value; the pointer form is matched too.
func (c *GeminiClient) wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Backend: c.Backend(), Status: apiErr.Code, Body: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &Error{Backend: c.Backend(), Status: apiErrPtr.Code, Body: apiErrPtr.Message, Err: err}
	}
	return &Error{Backend: c.Backend(), Err: err}
}
