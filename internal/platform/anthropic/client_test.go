package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newTestClient(t *testing.T, serverURL, apiKey string) Client {
	t.Helper()
	c, err := New(testLogger(t), Config{APIKey: apiKey, BaseURL: serverURL, MaxRetries: -1})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}

func TestConfigured(t *testing.T) {
	cases := []struct {
		key  string
		want error
	}{
		{"", ErrNotConfigured},
		{"your_anthropic_api_key_here", ErrNotConfigured},
		{"sk-ant-test", nil},
	}
	for _, tc := range cases {
		c, err := New(testLogger(t), Config{APIKey: tc.key})
		if err != nil {
			t.Fatalf("client: %v", err)
		}
		if got := c.Configured(); !errors.Is(got, tc.want) && got != tc.want {
			t.Fatalf("key=%q want=%v got=%v", tc.key, tc.want, got)
		}
	}
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "sk-ant-test" {
			t.Errorf("missing api key header, got %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != "2023-06-01" {
			t.Errorf("missing version header, got %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["system"] != "be terse" {
			t.Errorf("system not forwarded: %v", body["system"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "Hello "},
				{"type": "text", "text": "world"},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "sk-ant-test")
	got, err := c.Complete(context.Background(), "", "be terse", []Message{{Role: "user", Content: "hi"}}, 100)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "Hello world" {
		t.Fatalf("want=%q got=%q", "Hello world", got)
	}
}

func TestCompleteNotConfigured(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", "")
	if _, err := c.Complete(context.Background(), "", "", nil, 0); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured got=%v", err)
	}
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"event: message_start\n" +
				"data: {\"type\":\"message_start\"}\n\n" +
				"event: content_block_delta\n" +
				"data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Check the \"}}\n\n" +
				"event: content_block_delta\n" +
				"data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"DME relay.\"}}\n\n" +
				"event: message_stop\n" +
				"data: {\"type\":\"message_stop\"}\n\n",
		))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "sk-ant-test")
	var deltas []string
	got, err := c.Stream(context.Background(), "", "", []Message{{Role: "user", Content: "car won't start"}}, 100, func(d string) {
		deltas = append(deltas, d)
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if got != "Check the DME relay." {
		t.Fatalf("want=%q got=%q", "Check the DME relay.", got)
	}
	if len(deltas) != 2 || deltas[0] != "Check the " {
		t.Fatalf("deltas wrong: %v", deltas)
	}
}

func TestStreamErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"event: content_block_delta\n" +
				"data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"partial\"}}\n\n" +
				"event: error\n" +
				"data: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n",
		))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "sk-ant-test")
	_, err := c.Stream(context.Background(), "", "", []Message{{Role: "user", Content: "q"}}, 100, nil)
	if err == nil || !strings.Contains(err.Error(), "Overloaded") {
		t.Fatalf("want overloaded error got=%v", err)
	}
}

func TestStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "sk-ant-bad")
	_, err := c.Stream(context.Background(), "", "", []Message{{Role: "user", Content: "q"}}, 100, nil)
	var he *httpError
	if !errors.As(err, &he) || he.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 http error got=%v", err)
	}
}
