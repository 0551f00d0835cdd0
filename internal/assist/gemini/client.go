package gemini

import (
	"context"

	"google.golang.org/genai"

	"github.com/Tadwork/code-dojo/internal/assist"
)

// Client generates code through the Gemini API.
type Client struct {
	client  *genai.Client
	config  *Config
	prompts *assist.PromptManager
}

func NewClient(config *Config, prompts *assist.PromptManager) (*Client, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &assist.ProviderError{
			Provider: "gemini",
			Code:     assist.ErrCodeAPIKey,
			Message:  "Failed to create Gemini client",
			Err:      err,
		}
	}
	return &Client{client: client, config: config, prompts: prompts}, nil
}

func (c *Client) GenerateCode(ctx context.Context, req assist.Request) (string, error) {
	system, err := c.prompts.SystemPrompt(req.Language)
	if err != nil {
		return "", err
	}
	user, err := c.prompts.UserPrompt(req)
	if err != nil {
		return "", err
	}

	result, err := c.client.Models.GenerateContent(
		ctx,
		c.config.Model,
		genai.Text(system+"\n\n"+user),
		nil,
	)
	if err != nil {
		return "", &assist.ProviderError{
			Provider: "gemini",
			Code:     assist.ErrCodeServiceDown,
			Message:  "Failed to generate code",
			Err:      err,
		}
	}
	if result == nil {
		return "", &assist.ProviderError{
			Provider: "gemini",
			Code:     assist.ErrCodeInvalidInput,
			Message:  "No response generated",
		}
	}
	text, err := result.Text()
	if err != nil || text == "" {
		return "", &assist.ProviderError{
			Provider: "gemini",
			Code:     assist.ErrCodeInvalidInput,
			Message:  "Empty response generated",
			Err:      err,
		}
	}
	return assist.StripFences(text, req.Language), nil
}

func (c *Client) Name() string { return "gemini" }
