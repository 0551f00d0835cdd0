package assist

import (
	"context"
	"strings"
)

// Request is one code-generation instruction: a natural-language prompt plus
// the editor's current content.
type Request struct {
	Prompt      string
	CurrentCode string
	Language    string
}

// Provider is implemented by each text-generation backend.
type Provider interface {
	GenerateCode(ctx context.Context, req Request) (string, error)
	Name() string
}

// ProviderError is an error from a generation backend.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Common error codes shared across providers.
const (
	ErrCodeAPIKey       = "invalid_api_key"
	ErrCodeRateLimit    = "rate_limit_exceeded"
	ErrCodeServiceDown  = "service_unavailable"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeTimeout      = "timeout"
)

// StripFences removes markdown code fences models sometimes wrap answers in,
// despite being told not to.
func StripFences(content, language string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```"+language) {
		content = strings.TrimSpace(content[len("```"+language):])
	} else if strings.HasPrefix(content, "```") {
		if nl := strings.Index(content, "\n"); nl != -1 {
			content = strings.TrimSpace(content[nl+1:])
		}
	}
	if strings.HasSuffix(content, "```") {
		content = strings.TrimSpace(content[:len(content)-3])
	}
	return content
}
