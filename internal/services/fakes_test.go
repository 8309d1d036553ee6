package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/luftkuhl/ninethree-backend/internal/platform/anthropic"
	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/platform/pinecone"
	"github.com/luftkuhl/ninethree-backend/internal/platform/s3"
	"github.com/luftkuhl/ninethree-backend/internal/types"
)

var errTest = errors.New("test error")

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// fakeLLM scripts Complete and Stream responses and records calls.
type fakeLLM struct {
	configuredErr error

	completeText string
	completeErr  error
	completeIn   []string

	streamChunks []string
	streamErr    error
	streamSystem string
	streamMsgs   []anthropic.Message
	streamCalls  int
}

func (f *fakeLLM) Configured() error  { return f.configuredErr }
func (f *fakeLLM) Model() string      { return "fake-model" }
func (f *fakeLLM) SmallModel() string { return "fake-small-model" }

func (f *fakeLLM) Complete(_ context.Context, _, _ string, msgs []anthropic.Message, _ int) (string, error) {
	for _, m := range msgs {
		f.completeIn = append(f.completeIn, m.Content)
	}
	return f.completeText, f.completeErr
}

func (f *fakeLLM) Stream(_ context.Context, _, system string, msgs []anthropic.Message, _ int, onDelta func(string)) (string, error) {
	f.streamCalls++
	f.streamSystem = system
	f.streamMsgs = msgs
	if f.streamErr != nil {
		return "", f.streamErr
	}
	var sb strings.Builder
	for _, chunk := range f.streamChunks {
		sb.WriteString(chunk)
		if onDelta != nil {
			onDelta(chunk)
		}
	}
	return sb.String(), nil
}

// fakeSearch returns scripted passages and records the query it saw.
type fakeSearch struct {
	passages []types.Passage
	err      error
	gotQuery string
	gotTopK  int
}

func (f *fakeSearch) Search(_ context.Context, query string, topK int) ([]types.Passage, error) {
	f.gotQuery = query
	f.gotTopK = topK
	return f.passages, f.err
}

func (f *fakeSearch) Stats(context.Context) (*pinecone.IndexStats, error) {
	return &pinecone.IndexStats{}, nil
}

// memBlob is an in-memory BlobStore.
type memBlob struct {
	objects map[string][]byte
}

func newMemBlob() *memBlob {
	return &memBlob{objects: map[string][]byte{}}
}

func (m *memBlob) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, s3.ErrNotFound
	}
	return data, nil
}

func (m *memBlob) Put(_ context.Context, key string, data []byte, _ string) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[key] = cp
	return nil
}

func (m *memBlob) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}
