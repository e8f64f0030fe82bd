package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"cognichoir/pkg/aiengine"
)

const defaultModel = "gemini-1.5-flash-latest"

// Client is the Gemini-backed engine. One client drives one model.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewClient builds a Gemini engine for the given API key and model.
func NewClient(apiKey, model string, timeout time.Duration) (*Client, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	slog.Info("Gemini engine initialized", "model", model)
	return &Client{client: client, model: model, timeout: timeout}, nil
}

func (c *Client) Type() string         { return "gemini" }
func (c *Client) Model() string        { return c.model }
func (c *Client) RequiresAPIKey() bool { return true }

// GenerateResponse implements the aiengine.Engine contract. Provider and
// transport failures come back as transcript text, never as a panic or a
// Go error.
func (c *Client) GenerateResponse(ctx context.Context, roleName, systemPrompt string, history []aiengine.Message) string {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents := c.convertTurns(aiengine.BuildTurns(roleName, history))
	if len(contents) == 0 {
		return "Error: no conversation history to respond to."
	}

	var config *genai.GenerateContentConfig
	if systemPrompt != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: systemPrompt}},
			},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		slog.Error("Gemini generation failed", "model", c.model, "error", err)
		return fmt.Sprintf("Error: Gemini API call failed. Details: %v", err)
	}

	text := resp.Text()
	if text == "" {
		slog.Warn("Gemini returned an empty response", "model", c.model)
		return "Error: Gemini returned an empty response."
	}
	return text
}

// convertTurns maps the two-role turn schema onto GenAI contents. Assistant
// turns use the "model" role Gemini expects.
func (c *Client) convertTurns(turns []aiengine.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.RoleUser
		if t.Role == aiengine.TurnAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: t.Text}},
		})
	}
	return contents
}
