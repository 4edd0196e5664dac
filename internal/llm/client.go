package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Client is the Generator the rest of the system holds: it records each
// call's latency and outcome per stage and reports the configured model.
type Client struct {
	Stats *Stats

	next     Generator
	provider string
	model    string
}

func NewClient(g Generator, provider, model string) *Client {
	return &Client{
		Stats:    NewStats(time.Hour),
		next:     g,
		provider: provider,
		model:    model,
	}
}

func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := c.next.Generate(ctx, req)
	c.Stats.Record(req.Stage, time.Since(start), err)
	return out, err
}

// Model returns the default model name.
func (c *Client) Model() string {
	return c.model
}

// Provider returns the provider name.
func (c *Client) Provider() string {
	return c.provider
}

// RateLimited throttles g to rps requests per second with the given burst.
func RateLimited(g Generator, rps float64, burst int) Generator {
	if burst <= 0 {
		burst = 1
	}
	return &limited{next: g, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

type limited struct {
	next    Generator
	limiter *rate.Limiter
}

func (l *limited) Generate(ctx context.Context, req Request) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.Generate(ctx, req)
}
