package workflow

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Prompt is the system instruction for one step.
type Prompt struct {
	System string `yaml:"system"`
}

// Prompts is the catalog of step instructions.
type Prompts struct {
	Interviewer Prompt `yaml:"interviewer"`
	Analyst     Prompt `yaml:"analyst"`
	Generator   Prompt `yaml:"generator"`
}

// ParsePrompts decodes a YAML prompt catalog. Every step must have a system prompt.
func ParsePrompts(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	for name, v := range map[string]string{
		"interviewer": p.Interviewer.System,
		"analyst":     p.Analyst.System,
		"generator":   p.Generator.System,
	} {
		if v == "" {
			return nil, fmt.Errorf("parse prompts: %s.system is empty", name)
		}
	}
	return &p, nil
}

// DefaultPrompts returns the embedded catalog.
func DefaultPrompts() *Prompts {
	p, err := ParsePrompts(defaultPrompts)
	if err != nil {
		panic(err)
	}
	return p
}
