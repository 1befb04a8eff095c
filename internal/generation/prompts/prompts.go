package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultYAML []byte

type file struct {
	System string `yaml:"system"`
	Image  string `yaml:"image"`
}

// Set holds the parsed prompt templates.
type Set struct {
	system *template.Template
	image  string
}

type systemVars struct {
	User string
}

// Default parses the embedded prompt file.
func Default() (*Set, error) {
	return Parse(defaultYAML)
}

// Load reads prompts from path, falling back to the embedded defaults when
// path is empty.
func Load(path string) (*Set, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts %q: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	tmpl, err := template.New("system").Option("missingkey=error").Parse(f.System)
	if err != nil {
		return nil, fmt.Errorf("parse system prompt: %w", err)
	}
	return &Set{system: tmpl, image: strings.TrimSpace(f.Image)}, nil
}

// System renders the system prompt for the named user.
func (s *Set) System(userName string) (string, error) {
	var b strings.Builder
	if err := s.system.Execute(&b, systemVars{User: userName}); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}

// Image is the instruction sent with an image to be described.
func (s *Set) Image() string { return s.image }
