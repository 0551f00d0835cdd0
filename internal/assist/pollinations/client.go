package pollinations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Tadwork/code-dojo/internal/assist"
)

// DefaultAPIURL is the keyless OpenAI-compatible endpoint.
const DefaultAPIURL = "https://text.pollinations.ai/openai"

// Client talks to the Pollinations text API using the OpenAI chat shape.
type Client struct {
	apiURL  string
	httpc   *http.Client
	prompts *assist.PromptManager
}

func NewClient(apiURL string, prompts *assist.PromptManager) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL:  apiURL,
		httpc:   &http.Client{Timeout: 60 * time.Second},
		prompts: prompts,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
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

	body, err := json.Marshal(chatRequest{
		Model: "openai",
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return "", &assist.ProviderError{
			Provider: "pollinations",
			Code:     assist.ErrCodeServiceDown,
			Message:  "AI service unavailable",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &assist.ProviderError{
			Provider: "pollinations",
			Code:     assist.ErrCodeServiceDown,
			Message:  fmt.Sprintf("AI service error: %d", resp.StatusCode),
		}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &assist.ProviderError{
			Provider: "pollinations",
			Code:     assist.ErrCodeInvalidInput,
			Message:  "Failed to parse AI response",
			Err:      err,
		}
	}
	if len(decoded.Choices) == 0 {
		return "", &assist.ProviderError{
			Provider: "pollinations",
			Code:     assist.ErrCodeInvalidInput,
			Message:  "No response from AI",
		}
	}
	return assist.StripFences(decoded.Choices[0].Message.Content, req.Language), nil
}

func (c *Client) Name() string { return "pollinations" }

// Registered on import; the endpoint is keyless so there is nothing to
// validate up front.
func init() {
	assist.RegisterProvider("pollinations", func() (assist.Provider, error) {
		prompts, err := assist.NewPromptManager()
		if err != nil {
			return nil, err
		}
		return NewClient(os.Getenv("POLLINATIONS_URL"), prompts), nil
	})
}
