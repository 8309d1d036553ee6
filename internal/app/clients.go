package app

import (
	"context"
	"fmt"

	"github.com/luftkuhl/ninethree-backend/internal/platform/anthropic"
	"github.com/luftkuhl/ninethree-backend/internal/platform/huggingface"
	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/platform/nhtsa"
	"github.com/luftkuhl/ninethree-backend/internal/platform/pinecone"
	"github.com/luftkuhl/ninethree-backend/internal/platform/s3"
)

type Clients struct {
	LLM      anthropic.Client
	Embedder huggingface.Client
	Index    pinecone.Client
	Blob     *s3.Store
	VINs     nhtsa.Client
}

func wireClients(ctx context.Context, log *logger.Logger) (*Clients, error) {
	llm, err := anthropic.New(log, anthropic.ConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("anthropic client: %w", err)
	}
	embedder, err := huggingface.New(log, huggingface.ConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("huggingface client: %w", err)
	}
	index, err := pinecone.New(log, pinecone.ConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("pinecone client: %w", err)
	}
	blob, err := s3.New(ctx, log, s3.ConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("s3 store: %w", err)
	}
	vins, err := nhtsa.New(log)
	if err != nil {
		return nil, fmt.Errorf("nhtsa client: %w", err)
	}
	return &Clients{
		LLM:      llm,
		Embedder: embedder,
		Index:    index,
		Blob:     blob,
		VINs:     vins,
	}, nil
}
