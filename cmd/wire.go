package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/linkedai/internal/ai"
	"github.com/spigell/linkedai/internal/ai/gemini"
	"github.com/spigell/linkedai/internal/ai/ollama"
	"github.com/spigell/linkedai/internal/logger"
	"github.com/spigell/linkedai/internal/orchestrator"
	"github.com/spigell/linkedai/internal/resume"
	"github.com/spigell/linkedai/internal/retrieval"
	"github.com/spigell/linkedai/internal/secrets"
	"github.com/spigell/linkedai/internal/transcript"
	"github.com/spigell/linkedai/internal/vectorstore"

	"go.uber.org/zap"
)

// assistant holds the collaborators shared by every chat session.
type assistant struct {
	config     *Config
	llm        *gemini.Client
	store      *vectorstore.Store
	searcher   *retrieval.Searcher
	advisor    *resume.Advisor
	transcript *transcript.Store
	logger     *zap.Logger
}

func newAssistant(ctx context.Context, config *Config, logger *zap.Logger) (*assistant, error) {
	llm, err := newGemini(ctx, config.Gemini, logger)
	if err != nil {
		return nil, fmt.Errorf("building gemini client: %w", err)
	}

	embedder, err := newEmbedder(config.Embeddings, llm, logger)
	if err != nil {
		return nil, err
	}

	store, err := newVectorStore(config.Qdrant, logger)
	if err != nil {
		return nil, err
	}

	searcher, err := retrieval.New(ctx, embedder, store, logger.Named("retrieval"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("%w (run `%s index` first)", err, app)
	}

	resumeText := resume.Load(config.Resume, logger)

	logger.Info("assistant ready",
		zap.String("chat_model", llm.Model()),
		zap.String("collection", store.Collection()),
		zap.Int("max_iterations", config.MaxIterations),
		zap.Bool("resume_loaded", resumeText != ""),
	)

	a := &assistant{
		config:   config,
		llm:      llm,
		store:    store,
		searcher: searcher,
		advisor:  resume.NewAdvisor(llm, resumeText, logger.Named("resume"), config.Gemini.MaxLogLength),
		logger:   logger,
	}

	if config.Transcript != nil && strings.TrimSpace(config.Transcript.Path) != "" {
		a.transcript, err = transcript.Open(config.Transcript.Path, logger.Named("transcript"))
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	return a, nil
}

// newAgent builds an orchestrator for one chat session.
func (a *assistant) newAgent(sessionID string) *orchestrator.Agent {
	cfg := orchestrator.Config{
		MaxIterations: a.config.MaxIterations,
		SystemPrompt:  a.config.SystemPrompt,
	}

	if a.transcript != nil {
		cfg.Recorder = a.transcript.Session(sessionID)
	}

	log := logger.WithSession(a.logger.Named("agent"), sessionID)

	return orchestrator.New(a.llm, a.searcher, a.advisor, cfg, log)
}

func (a *assistant) Close() error {
	var errs []error
	if a.transcript != nil {
		errs = append(errs, a.transcript.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

func newGemini(ctx context.Context, cfg *GeminiConfig, logger *zap.Logger) (*gemini.Client, error) {
	if cfg == nil {
		return nil, errors.New("gemini configuration is required")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	return gemini.New(ctx, gemini.Config{
		APIKey:         apiKey,
		Model:          cfg.Model,
		EmbeddingModel: cfg.EmbeddingModel,
		MaxRetries:     cfg.MaxRetries,
		MaxLogLength:   cfg.MaxLogLength,
	}, logger.Named("gemini"))
}

func newEmbedder(cfg *EmbeddingsConfig, llm *gemini.Client, logger *zap.Logger) (ai.Embedder, error) {
	provider := ""
	if cfg != nil {
		provider = strings.TrimSpace(strings.ToLower(cfg.Provider))
	}

	switch provider {
	case "", gemini.Provider:
		return llm, nil
	case ollama.Provider:
		var host, model string
		if cfg.Ollama != nil {
			host, model = cfg.Ollama.Host, cfg.Ollama.Model
		}
		return ollama.NewEmbedder(host, model, logger.Named("ollama"))
	default:
		return nil, fmt.Errorf("unsupported embeddings provider: %s", cfg.Provider)
	}
}

func newVectorStore(cfg *QdrantConfig, logger *zap.Logger) (*vectorstore.Store, error) {
	if cfg == nil {
		return nil, errors.New("qdrant configuration is required")
	}

	return vectorstore.New(vectorstore.Config{
		Host:       cfg.Host,
		Port:       cfg.Port,
		Collection: cfg.Collection,
	}, logger.Named("qdrant"))
}
