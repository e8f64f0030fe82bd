// Package openaieng implements engines backed by the OpenAI chat
// completions API and its wire-compatible relatives.
package openaieng

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"cognichoir/pkg/aiengine"
)

const defaultModel = "gpt-3.5-turbo"

// Client drives one model over the OpenAI chat completions API. With a
// custom base URL it also serves every OpenAI-compatible provider.
type Client struct {
	client     openai.Client
	engineType string
	model      string
	timeout    time.Duration
}

// NewClient builds an engine against api.openai.com or, when baseURL is
// set, an OpenAI-compatible endpoint. Extra request options let variants
// such as Azure inject their own auth scheme.
func NewClient(engineType, apiKey, model, baseURL string, timeout time.Duration, extra ...option.RequestOption) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)

	slog.Info("OpenAI-compatible engine initialized", "type", engineType, "model", model, "base_url", baseURL)
	return &Client{
		client:     openai.NewClient(opts...),
		engineType: engineType,
		model:      model,
		timeout:    timeout,
	}
}

func (c *Client) Type() string         { return c.engineType }
func (c *Client) Model() string        { return c.model }
func (c *Client) RequiresAPIKey() bool { return true }

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

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	for _, t := range turns {
		if t.Role == aiengine.TurnAssistant {
			messages = append(messages, openai.AssistantMessage(t.Text))
		} else {
			messages = append(messages, openai.UserMessage(t.Text))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		slog.Error("Chat completion failed", "type", c.engineType, "model", c.model, "error", err)
		return fmt.Sprintf("Error: %s API call failed. Details: %v", c.engineType, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		slog.Warn("Empty completion", "type", c.engineType, "model", c.model)
		return fmt.Sprintf("Error: %s returned an empty response.", c.engineType)
	}
	return resp.Choices[0].Message.Content
}
