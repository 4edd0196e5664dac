package llm

import (
	"context"
	"fmt"
	"time"
)

// Request is one call to the text-generation service.
type Request struct {
	Prompt string
	// Model overrides the generator's default model when set.
	Model string
	// Stage tags the call in Client.Stats.
	Stage Stage
}

// Generator is the AI text-generation boundary. The response is plain text;
// its expected shape (markdown or serialized JSON) is an implicit contract of
// the calling stage.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Provider names accepted by New.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration

	// RequestsPerSecond throttles outbound calls; zero disables throttling.
	RequestsPerSecond float64
	Burst             int
}

// New builds the configured provider, wrapped with latency stats and, when
// configured, rate limiting.
func New(ctx context.Context, s Settings) (*Client, error) {
	var (
		g   Generator
		err error
	)
	switch s.Provider {
	case ProviderGemini, "":
		g, err = NewGemini(ctx, s.APIKey, s.Model)
	case ProviderOpenAI:
		g, err = NewOpenAI(s.APIKey, s.Model, s.BaseURL)
	case ProviderAnthropic:
		g = NewAnthropic(s.APIKey, s.Model, s.Timeout)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", s.Provider)
	}
	if err != nil {
		return nil, err
	}
	if s.RequestsPerSecond > 0 {
		g = RateLimited(g, s.RequestsPerSecond, s.Burst)
	}
	return NewClient(g, s.Provider, s.Model), nil
}
