package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tokens holds the per-deployment values settings modules read from:
// EnvTokens for ordinary environment values, AuthTokens for secrets.
type Tokens struct {
	Env  map[string]any `json:"env_tokens" yaml:"env_tokens"`
	Auth map[string]any `json:"auth_tokens" yaml:"auth_tokens"`
}

// EmptyTokens returns tokens with empty, non-nil maps.
func EmptyTokens() *Tokens {
	return &Tokens{
		Env:  make(map[string]any),
		Auth: make(map[string]any),
	}
}

// ParseTokens parses a YAML tokens document.
func ParseTokens(data []byte) (*Tokens, error) {
	t := EmptyTokens()
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse tokens: %w", err)
	}
	if t.Env == nil {
		t.Env = make(map[string]any)
	}
	if t.Auth == nil {
		t.Auth = make(map[string]any)
	}
	return t, nil
}

// LoadTokens loads tokens from a YAML file.
func LoadTokens(path string) (*Tokens, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokens file: %w", err)
	}
	return ParseTokens(data)
}

// PathEnvVar returns the environment variable naming the tokens file for a
// deployment variant, e.g. "LMS_CFG".
func PathEnvVar(project string) string {
	return strings.ToUpper(project) + "_CFG"
}

// ResolvePath returns explicit if set, otherwise the value of the variant's
// PathEnvVar.
func ResolvePath(explicit, project string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(PathEnvVar(project))
}
