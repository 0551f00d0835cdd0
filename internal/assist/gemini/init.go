package gemini

import "github.com/Tadwork/code-dojo/internal/assist"

// Register Gemini provider on package import.
func init() {
	assist.RegisterProvider("gemini", func() (assist.Provider, error) {
		config, err := NewConfig()
		if err != nil {
			return nil, err
		}
		prompts, err := assist.NewPromptManager()
		if err != nil {
			return nil, err
		}
		return NewClient(config, prompts)
	})
}
