package ai

import (
	"context"

	"github.com/spigell/linkedai/internal/conversation"
	"github.com/spigell/linkedai/internal/tools"
)

// ChatModel answers a conversation, optionally requesting tool calls.
// A nil or empty schema list withdraws all tools for the round.
type ChatModel interface {
	Generate(ctx context.Context, messages []conversation.Message, schemas []tools.Schema) (conversation.Message, error)
}

// Generator runs single-prompt completions.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Embedder turns texts into vectors, one per input in the same order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
