// Package prompts loads the persona prompt set embedded in the binary.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed persona.yaml
var personaYAML []byte

// Guardrail holds the classifier prompt and keyword lists.
type Guardrail struct {
	System        string   `yaml:"system"`
	AllowKeywords []string `yaml:"allow_keywords"`
	BlockKeywords []string `yaml:"block_keywords"`
}

// Persona is the full prompt set for one persona.
type Persona struct {
	Name            string    `yaml:"name"`
	BeginSentence   string    `yaml:"begin_sentence"`
	EmptyTranscript string    `yaml:"empty_transcript"`
	ReminderCue     string    `yaml:"reminder_cue"`
	Refusal         string    `yaml:"refusal"`
	System          string    `yaml:"system"`
	VoiceDirective  string    `yaml:"voice_directive"`
	TextDirective   string    `yaml:"text_directive"`
	Guardrail       Guardrail `yaml:"guardrail"`
}

// Default returns the embedded persona.
func Default() (*Persona, error) {
	return Parse(personaYAML)
}

// Parse decodes a persona document and checks the fields the server cannot run without.
func Parse(data []byte) (*Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse persona: %w", err)
	}

	var missing []string
	for name, v := range map[string]string{
		"begin_sentence":   p.BeginSentence,
		"system":           p.System,
		"refusal":          p.Refusal,
		"guardrail.system": p.Guardrail.System,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("parse persona: missing %s", strings.Join(missing, ", "))
	}

	if p.EmptyTranscript == "" {
		p.EmptyTranscript = "Hello"
	}
	p.Refusal = strings.TrimSpace(p.Refusal)
	return &p, nil
}
