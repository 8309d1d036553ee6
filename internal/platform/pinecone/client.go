package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
)

// Client speaks to Pinecone's control plane (index description) and to
// the index's data plane host (query, stats). The data-plane host is
// discovered via DescribeIndex, not configured.
type Client interface {
	DescribeIndex(ctx context.Context, name string) (*IndexDescription, error)
	Query(ctx context.Context, host string, req QueryRequest) (*QueryResponse, error)
	DescribeIndexStats(ctx context.Context, host string) (*IndexStats, error)
}

type Config struct {
	APIKey     string
	APIVersion string
	BaseURL    string
	Timeout    time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		APIKey: strings.TrimSpace(os.Getenv("PINECONE_API_KEY")),
	}
}

type IndexDescription struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

type QueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeValues   bool      `json:"includeValues"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type QueryResponse struct {
	Matches   []Match `json:"matches"`
	Namespace string  `json:"namespace"`
}

type IndexStats struct {
	Dimension        int     `json:"dimension"`
	TotalVectorCount int     `json:"totalVectorCount"`
	IndexFullness    float64 `json:"indexFullness"`
}

type client struct {
	log        *logger.Logger
	apiKey     string
	apiVersion string
	baseURL    string
	httpClient *http.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("PINECONE_API_KEY is not set")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2025-10"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.pinecone.io"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &client{
		log:        log.With("client", "PineconeClient"),
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *client) DescribeIndex(ctx context.Context, name string) (*IndexDescription, error) {
	url := fmt.Sprintf("%s/indexes/%s", c.baseURL, name)
	return doJSON[IndexDescription](ctx, c, "GET", url, nil)
}

func (c *client) Query(ctx context.Context, host string, req QueryRequest) (*QueryResponse, error) {
	url := hostURL(host) + "/query"
	return doJSON[QueryResponse](ctx, c, "POST", url, req)
}

func (c *client) DescribeIndexStats(ctx context.Context, host string) (*IndexStats, error) {
	url := hostURL(host) + "/describe_index_stats"
	return doJSON[IndexStats](ctx, c, "POST", url, map[string]any{})
}

func hostURL(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return strings.TrimRight(host, "/")
	}
	return "https://" + strings.TrimRight(host, "/")
}

func doJSON[T any](ctx context.Context, c *client, method, url string, body any) (*T, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("X-Pinecone-Api-Version", c.apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pinecone %s %s: http %d: %s", method, url, resp.StatusCode, string(raw))
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinecone decode error: %w", err)
	}
	return &out, nil
}
