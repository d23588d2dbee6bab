package memory

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AlessandroMondin/Journey/plugin/ai"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Prompt is a system/user prompt pair.
type Prompt struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Prompts holds every prompt of the pipeline.
type Prompts struct {
	Merge   Prompt `yaml:"merge"`
	Mood    Prompt `yaml:"mood"`
	Summary Prompt `yaml:"summary"`
	Query   Prompt `yaml:"query"`
}

// LoadPrompts parses prompts from YAML; nil data loads the built-in set.
func LoadPrompts(data []byte) (*Prompts, error) {
	if data == nil {
		data = defaultPrompts
	}
	prompts := &Prompts{}
	if err := yaml.Unmarshal(data, prompts); err != nil {
		return nil, fmt.Errorf("memory: prompts parse error: %w", err)
	}
	if err := prompts.Validate(); err != nil {
		return nil, err
	}
	return prompts, nil
}

// Validate checks that every prompt is present.
func (p *Prompts) Validate() error {
	for name, prompt := range map[string]Prompt{
		"merge":   p.Merge,
		"mood":    p.Mood,
		"summary": p.Summary,
		"query":   p.Query,
	} {
		if strings.TrimSpace(prompt.System) == "" || strings.TrimSpace(prompt.User) == "" {
			return fmt.Errorf("memory: prompt %q is incomplete", name)
		}
	}
	return nil
}

// Messages renders the prompt pair with vars substituted.
func (p Prompt) Messages(vars map[string]string) []ai.Message {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)
	return ai.FormatMessages(r.Replace(p.System), r.Replace(p.User), nil)
}
