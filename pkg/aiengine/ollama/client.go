// Package ollama implements the engine for locally hosted models served
// by an Ollama daemon. It is the one engine that needs no API key.
package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"cognichoir/pkg/aiengine"
)

const defaultModel = "llama3.2"

// Client is the Ollama-backed engine.
type Client struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// NewClient builds an Ollama engine against baseURL. An empty baseURL
// falls back to the OLLAMA_HOST environment convention.
func NewClient(model, baseURL string, timeout time.Duration) (*Client, error) {
	var client *api.Client
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		client = api.NewClient(u, nil)
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, err
		}
	}

	slog.Info("Ollama engine initialized", "model", model, "base_url", baseURL)
	return &Client{client: client, model: model, timeout: timeout}, nil
}

func (c *Client) Type() string         { return "ollama" }
func (c *Client) Model() string        { return c.model }
func (c *Client) RequiresAPIKey() bool { return false }

// GenerateResponse implements the aiengine.Engine contract.
func (c *Client) GenerateResponse(ctx context.Context, roleName, systemPrompt string, history []aiengine.Message) string {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	turns := aiengine.BuildTurns(roleName, history)
	if len(turns) == 0 {
		return "Error: no conversation history to respond to."
	}

	messages := make([]api.Message, 0, len(turns)+1)
	if systemPrompt != "" {
		messages = append(messages, api.Message{Role: "system", Content: systemPrompt})
	}
	for _, t := range turns {
		messages = append(messages, api.Message{Role: t.Role, Content: t.Text})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
	}

	var out strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		slog.Error("Ollama generation failed", "model", c.model, "error", err)
		return fmt.Sprintf("Error: Ollama API call failed. Details: %v", err)
	}

	text := out.String()
	if text == "" {
		slog.Warn("Ollama returned an empty response", "model", c.model)
		return "Error: Ollama returned an empty response."
	}
	return text
}
