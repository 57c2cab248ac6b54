package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/spigell/linkedai/internal/logger"
	"go.uber.org/zap"
)

const (
	Provider = "ollama"

	defaultHost  = "http://localhost:11434"
	defaultModel = "nomic-embed-text"
)

type embedAPI interface {
	Embed(ctx context.Context, req *api.EmbedRequest) (*api.EmbedResponse, error)
}

// Embedder computes embeddings with a local Ollama server.
type Embedder struct {
	client embedAPI
	model  string
	logger *zap.Logger
}

func NewEmbedder(host, model string, log *zap.Logger) (*Embedder, error) {
	if host = strings.TrimSpace(host); host == "" {
		host = defaultHost
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	client := api.NewClient(u, &http.Client{Timeout: 30 * time.Second})

	return newEmbedder(client, model, log), nil
}

func newEmbedder(client embedAPI, model string, log *zap.Logger) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Embedder{
		client: client,
		model:  model,
		logger: logger.WithCommonFields(log, Provider, model),
	}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embed(ctx, &api.EmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	e.logger.Debug("ollama embeddings", zap.Int("count", len(resp.Embeddings)))

	return resp.Embeddings, nil
}
