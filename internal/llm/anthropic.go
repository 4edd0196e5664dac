package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// Anthropic calls the Anthropic Messages API over plain HTTP.
type Anthropic struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

func NewAnthropic(apiKey, model string, timeout time.Duration) *Anthropic {
	if model == "" {
		model = defaultAnthropicModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Anthropic{
		apiKey:   apiKey,
		model:    model,
		endpoint: "https://api.anthropic.com/v1/messages",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one user message and returns the first text block.
func (c *Anthropic) Generate(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	body, err := json.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: 8192,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.Prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &TransportError{Service: ProviderAnthropic, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &TransportError{Service: ProviderAnthropic, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{
			Service:    ProviderAnthropic,
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &TransportError{Service: ProviderAnthropic, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	if apiResp.Error != nil {
		return "", &TransportError{
			Service:    ProviderAnthropic,
			StatusCode: resp.StatusCode,
			Message:    apiResp.Error.Type + ": " + apiResp.Error.Message,
		}
	}
	for _, block := range apiResp.Content {
		if block.Type == "text" || block.Type == "" {
			return block.Text, nil
		}
	}
	return "", &TransportError{Service: ProviderAnthropic, StatusCode: resp.StatusCode, Message: "empty response"}
}

// Close releases resources.
func (c *Anthropic) Close() {
	c.httpClient.CloseIdleConnections()
}
