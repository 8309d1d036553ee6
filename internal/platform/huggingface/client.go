package huggingface

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

// Client produces dense embedding vectors via the Hugging Face Inference
// router's feature-extraction pipeline.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:  strings.TrimSpace(os.Getenv("HF_API_KEY")),
		BaseURL: strings.TrimSpace(os.Getenv("HF_BASE_URL")),
		Model:   strings.TrimSpace(os.Getenv("HF_EMBED_MODEL")),
	}
}

// ShapeError reports an embedding payload whose nesting could not be
// collapsed into a single flat vector.
type ShapeError struct {
	Detail string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unexpected embedding shape: %s", e.Detail)
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("huggingface http %d: %s", e.StatusCode, e.Body)
}

func (e *httpError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("HF_API_KEY is not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://router.huggingface.co"
	}
	if cfg.Model == "" {
		cfg.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &client{
		log:        log.With("client", "HuggingFaceClient"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
	}, nil
}

func (c *client) Model() string { return c.model }

func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	url := fmt.Sprintf("%s/hf-inference/models/%s/pipeline/feature-extraction", c.baseURL, c.model)
	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, err
	}

	backoff := 1 * time.Second
	var raw []byte
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var resp *http.Response
		raw, resp, err = c.doOnce(ctx, url, payload)
		if err == nil {
			break
		}
		var he *httpError
		if errors.As(err, &he) && he.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf(
				"Hugging Face rejected the token (401). Make sure the token has the 'Inference Providers' permission: %w", err)
		}
		if !httpx.IsRetryableError(err) || attempt >= c.maxRetries {
			return nil, err
		}
		sleepFor := httpx.Jitter(httpx.RetryAfter(resp, backoff, 10*time.Second))
		c.log.Warn("embedding request retrying",
			"attempt", attempt+1,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("huggingface decode error: %w", err)
	}
	vec, err := collapse(decoded)
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func (c *client) doOnce(ctx context.Context, url string, payload []byte) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, resp, nil
}

// collapse normalizes the pipeline's response into one flat vector. The
// router returns [d] for a single input and some models wrap it as [1][d]
// (or one level deeper). A wrapper level holding more than one row is a
// batch this client never requests, so it is an error, not a guess.
func collapse(v any) ([]float32, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, &ShapeError{Detail: fmt.Sprintf("top level is %T, want array", v)}
	}
	if len(arr) == 0 {
		return nil, &ShapeError{Detail: "empty array"}
	}
	for depth := 0; depth < 3; depth++ {
		inner, nested := arr[0].([]any)
		if !nested {
			break
		}
		if len(arr) > 1 {
			return nil, &ShapeError{Detail: fmt.Sprintf("batch of %d rows, want exactly 1", len(arr))}
		}
		arr = inner
		if len(arr) == 0 {
			return nil, &ShapeError{Detail: "empty nested array"}
		}
	}
	out := make([]float32, len(arr))
	for i, el := range arr {
		f, ok := el.(float64)
		if !ok {
			return nil, &ShapeError{Detail: fmt.Sprintf("element %d is %T, want number", i, el)}
		}
		out[i] = float32(f)
	}
	return out, nil
}
