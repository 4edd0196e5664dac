// Package app builds the component graph shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docdeck/internal/config"
	"github.com/dgallion1/docdeck/internal/icons"
	"github.com/dgallion1/docdeck/internal/infographic"
	"github.com/dgallion1/docdeck/internal/llm"
	"github.com/dgallion1/docdeck/internal/markdown"
	"github.com/dgallion1/docdeck/internal/pipeline"
	"github.com/dgallion1/docdeck/internal/render"
	"github.com/dgallion1/docdeck/internal/storage"
)

// App holds the wired components. The orchestrator is not started.
type App struct {
	LLM          *llm.Client
	Engine       *render.Engine
	Store        storage.Store
	Orchestrator *pipeline.Orchestrator
}

// New wires every component from cfg.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	client, err := llm.New(ctx, LLMSettings(cfg))
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	resolver := icons.NewResolver(
		icons.NewClient(cfg.IconBaseURL, cfg.IconSet),
		icons.AITranslator{Gen: client},
		cfg.IconRetranslations,
		log.With("component", "icons"),
	)
	engine, err := render.NewEngine(render.Options{
		Markdown: markdown.New(log),
		Icons:    resolver,
		Drawer:   infographic.AIDrawer{Gen: client},
		Logger:   log.With("component", "render"),
	})
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	store, err := storage.New(ctx, StorageSettings(cfg))
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	return &App{
		LLM:          client,
		Engine:       engine,
		Store:        store,
		Orchestrator: pipeline.NewOrchestrator(cfg, client, engine, store, log),
	}, nil
}

// Close stops the orchestrator and releases backend connections.
func (a *App) Close() {
	a.Orchestrator.Stop()
	if c, ok := a.Store.(interface{ Close() }); ok {
		c.Close()
	}
}

// LLMSettings picks the key and model of the configured provider.
func LLMSettings(cfg config.Config) llm.Settings {
	s := llm.Settings{
		Provider:          cfg.LLMProvider,
		Timeout:           cfg.LLMTimeout,
		RequestsPerSecond: cfg.LLMRequestsPerSecond,
		Burst:             cfg.LLMBurst,
	}
	switch cfg.LLMProvider {
	case llm.ProviderOpenAI:
		s.APIKey, s.Model, s.BaseURL = cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL
	case llm.ProviderAnthropic:
		s.APIKey, s.Model = cfg.AnthropicAPIKey, cfg.AnthropicModel
	default:
		s.APIKey, s.Model = cfg.GeminiAPIKey, cfg.GeminiModel
	}
	return s
}

func StorageSettings(cfg config.Config) storage.Settings {
	return storage.Settings{
		Backend: cfg.StorageBackend,
		Dir:     cfg.StorageDir,
		S3: storage.S3Settings{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		},
		PathstoreURL:    cfg.PathstoreURL,
		PathstoreAPIKey: cfg.PathstoreAPIKey,
	}
}
