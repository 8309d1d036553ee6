package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/luftkuhl/ninethree-backend/internal/platform/httpx"
	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
)

const (
	apiVersion = "2023-06-01"

	// The console hands this string out in its .env template; treat it
	// the same as an unset key.
	placeholderKey = "your_anthropic_api_key_here"
)

// ErrNotConfigured is returned before any network call when the API key
// is absent or still the placeholder from the .env template.
var ErrNotConfigured = errors.New(
	"ANTHROPIC_API_KEY is not set. Get one at https://console.anthropic.com/ and add it to your .env",
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the Anthropic Messages API client used for answer generation,
// follow-up rewriting, and title generation.
type Client interface {
	// Configured reports whether usable credentials are present. It is a
	// cheap local check, called before retrieval so a misconfigured
	// deployment fails fast.
	Configured() error

	// Complete performs a non-streaming messages call and returns the text.
	Complete(ctx context.Context, model, system string, messages []Message, maxTokens int) (string, error)

	// Stream performs a streaming messages call, forwarding each text
	// delta to onDelta as it arrives, and returns the accumulated text.
	// A mid-stream failure is terminal: no retry is attempted.
	Stream(ctx context.Context, model, system string, messages []Message, maxTokens int, onDelta func(delta string)) (string, error)

	// Model is the default generation model; SmallModel is the fast model
	// used for rewriting and titles.
	Model() string
	SmallModel() string
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	SmallModel string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	cfg := Config{
		APIKey:     strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
		BaseURL:    strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")),
		Model:      strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL")),
		SmallModel: strings.TrimSpace(os.Getenv("ANTHROPIC_SMALL_MODEL")),
	}
	return cfg
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	smallModel string
	httpClient *http.Client
	maxRetries int
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.SmallModel == "" {
		cfg.SmallModel = "claude-3-5-haiku-20241022"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return &client{
		log:        log.With("client", "AnthropicClient"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		smallModel: cfg.SmallModel,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
	}, nil
}

func (c *client) Model() string      { return c.model }
func (c *client) SmallModel() string { return c.smallModel }

func (c *client) Configured() error {
	if c.apiKey == "" || c.apiKey == placeholderKey {
		return ErrNotConfigured
	}
	return nil
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("anthropic http %d: %s", e.StatusCode, e.Body)
}

func (e *httpError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *client) newRequest(ctx context.Context, body any, streaming bool) (*http.Request, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/messages", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
	if streaming {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

func (c *client) doOnce(ctx context.Context, body any) (*http.Response, []byte, error) {
	req, err := c.newRequest(ctx, body, false)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, body any, out any) error {
	backoff := 1 * time.Second
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, raw, err := c.doOnce(ctx, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("anthropic decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}
		sleepFor := httpx.Jitter(httpx.RetryAfter(resp, backoff, 10*time.Second))
		c.log.Warn("Anthropic request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func (c *client) Complete(ctx context.Context, model, system string, messages []Message, maxTokens int) (string, error) {
	if err := c.Configured(); err != nil {
		return "", err
	}
	if model == "" {
		model = c.model
	}
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	req := messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    strings.TrimSpace(system),
		Messages:  messages,
	}
	var resp messagesResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("anthropic response contained no text content")
	}
	return text, nil
}

func (c *client) Stream(ctx context.Context, model, system string, messages []Message, maxTokens int, onDelta func(delta string)) (string, error) {
	if err := c.Configured(); err != nil {
		return "", err
	}
	if model == "" {
		model = c.model
	}
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	body := messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    strings.TrimSpace(system),
		Messages:  messages,
		Stream:    true,
	}

	req, err := c.newRequest(ctx, body, true)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return "", &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	defer resp.Body.Close()

	var full strings.Builder
	err = streamSSE(resp.Body, func(event, data string) error {
		if strings.TrimSpace(data) == "" {
			return nil
		}
		var obj struct {
			Type  string `json:"type"`
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal([]byte(data), &obj); err != nil {
			return nil
		}
		evt := obj.Type
		if evt == "" {
			evt = strings.TrimSpace(event)
		}
		switch evt {
		case "error":
			return fmt.Errorf("anthropic stream error (%s): %s", obj.Error.Type, obj.Error.Message)
		case "content_block_delta":
			if obj.Delta.Type == "text_delta" && obj.Delta.Text != "" {
				full.WriteString(obj.Delta.Text)
				if onDelta != nil {
					onDelta(obj.Delta.Text)
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return full.String(), nil
}
