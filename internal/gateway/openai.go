package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultEndpoint = "https://oi-server.onrender.com/chat/completions"
	defaultTimeout  = 30 * time.Second
	defaultBackoff  = 500 * time.Millisecond
	maxErrorBody    = 4 << 10
)

// OpenAIOptions configures an OpenAIClient. Zero values fall back to defaults.
type OpenAIOptions struct {
	Endpoint   string
	APIKey     string
	CustomerID string
	Timeout    time.Duration
	Backoff    time.Duration
	HTTPClient *http.Client
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	endpoint   string
	apiKey     string
	customerID string
	timeout    time.Duration
	backoff    time.Duration
	httpClient *http.Client
}

// NewOpenAIClient creates a client for the given options.
func NewOpenAIClient(opts OpenAIOptions) *OpenAIClient {
	c := &OpenAIClient{
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		apiKey:     opts.APIKey,
		customerID: opts.CustomerID,
		timeout:    opts.Timeout,
		backoff:    opts.Backoff,
		httpClient: opts.HTTPClient,
	}
	if c.endpoint == "" {
		c.endpoint = defaultEndpoint
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.backoff <= 0 {
		c.backoff = defaultBackoff
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c
}

// Backend names this implementation in logs and metrics.
func (c *OpenAIClient) Backend() string { return "openai" }

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate sends req and returns the first choice's content.
func (c *OpenAIClient) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	return withRetry(ctx, c.timeout, c.backoff, func(ctx context.Context) (string, error) {
		return c.doGenerate(ctx, body)
	})
}

func (c *OpenAIClient) doGenerate(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &Error{Backend: c.Backend(), Err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &Error{Backend: c.Backend(), Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &Error{Backend: c.Backend(), Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}

	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return FallbackReply, nil
	}
	return out.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.customerID != "" {
		req.Header.Set("customerId", c.customerID)
	}
}
