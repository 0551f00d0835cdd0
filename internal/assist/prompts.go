package assist

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// promptTemplate is the on-disk shape of a prompt definition.
type promptTemplate struct {
	SystemPrompt   string `yaml:"system_prompt"`
	CreateTemplate string `yaml:"create_template"`
	UpdateTemplate string `yaml:"update_template"`
}

// PromptManager renders the system and user prompts sent to providers.
type PromptManager struct {
	system *template.Template
	create *template.Template
	update *template.Template
}

func NewPromptManager() (*PromptManager, error) {
	raw, err := templateFS.ReadFile("templates/generate.yaml")
	if err != nil {
		return nil, fmt.Errorf("read prompt template: %w", err)
	}
	var def promptTemplate
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}

	pm := &PromptManager{}
	if pm.system, err = template.New("system").Parse(def.SystemPrompt); err != nil {
		return nil, fmt.Errorf("parse system prompt: %w", err)
	}
	if pm.create, err = template.New("create").Parse(def.CreateTemplate); err != nil {
		return nil, fmt.Errorf("parse create prompt: %w", err)
	}
	if pm.update, err = template.New("update").Parse(def.UpdateTemplate); err != nil {
		return nil, fmt.Errorf("parse update prompt: %w", err)
	}
	return pm, nil
}

// SystemPrompt renders the instruction preamble for a language.
func (pm *PromptManager) SystemPrompt(language string) (string, error) {
	return render(pm.system, map[string]string{"Language": language})
}

// UserPrompt renders the user message: the update form when current code
// exists, the create form otherwise.
func (pm *PromptManager) UserPrompt(req Request) (string, error) {
	data := map[string]string{
		"Language": req.Language,
		"Code":     req.CurrentCode,
		"Prompt":   req.Prompt,
	}
	if req.CurrentCode != "" {
		return render(pm.update, data)
	}
	return render(pm.create, data)
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
