// Package litellm provides an HTTP client for the LiteLLM Proxy
// OpenAI-compatible completion API.
package litellm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/safedesk/safedesk/internal/domain"
	"github.com/safedesk/safedesk/internal/port/completion"
	"github.com/safedesk/safedesk/internal/resilience"
)

const defaultTimeout = 30 * time.Second

// Client talks to the LiteLLM Proxy chat completions endpoint.
type Client struct {
	baseURL      string
	masterKey    string
	defaultModel string
	maxRetries   int
	httpClient   *http.Client
	breaker      *resilience.Breaker
}

// NewClient creates a new LiteLLM completion client. defaultModel is used
// when a request does not name one.
func NewClient(baseURL, masterKey, defaultModel string, timeout time.Duration, maxRetries int) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		baseURL:      baseURL,
		masterKey:    masterKey,
		defaultModel: defaultModel,
		maxRetries:   maxRetries,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends a chat completion request and returns the first choice's
// content. Gateway failures are mapped to domain.ErrGatewayTimeout or
// domain.ErrGatewayUnavailable so callers can degrade without inspecting
// transport details.
func (c *Client) Complete(ctx context.Context, req completion.Request) (string, error) {
	model := req.Options.Model
	if model == "" {
		model = c.defaultModel
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Options.Temperature,
		MaxTokens:   req.Options.MaxTokens,
	}
	if req.Options.JSON {
		payload.ResponseFormat = &respFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	if req.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Options.Timeout)
		defer cancel()
	}

	data, err := resilience.Retry(ctx, c.maxRetries, func() ([]byte, error) {
		return c.doRequest(ctx, body)
	})
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("unmarshal completion response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response: %w", domain.ErrGatewayUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return resilience.Permanent(fmt.Errorf("create request: %w", err))
		}

		req.Header.Set("Content-Type", "application/json")
		if c.masterKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.masterKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return mapTransportError(err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("litellm API error %d: %w", resp.StatusCode, domain.ErrGatewayUnavailable)
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("litellm rate limited: %w", domain.ErrGatewayUnavailable)
		case resp.StatusCode >= 400:
			return resilience.Permanent(fmt.Errorf("litellm API error %d: %s", resp.StatusCode, string(data)))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			if errors.Is(err, resilience.ErrCircuitOpen) {
				return nil, resilience.Permanent(fmt.Errorf("litellm: %w: %w", domain.ErrGatewayUnavailable, err))
			}
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}

func mapTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return resilience.Permanent(fmt.Errorf("litellm request: %w: %w", domain.ErrGatewayTimeout, err))
	}
	if errors.Is(err, context.Canceled) {
		return resilience.Permanent(fmt.Errorf("litellm request: %w", err))
	}
	return fmt.Errorf("litellm request: %w: %w", domain.ErrGatewayUnavailable, err)
}
