package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const testTokensYAML = `
env_tokens:
  ZENDESK_URL: https://example.zendesk.com
  ZENDESK_GROUP_ID_MAPPING:
    billing: 360000001
    support: 360000002
auth_tokens:
  ZENDESK_OAUTH_ACCESS_TOKEN: s3cret
`

func writeTokens(t *testing.T, content string) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "lms.yml")
	if err := os.WriteFile(fp, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return fp
}

func TestLoadTokens(t *testing.T) {
	tok, err := LoadTokens(writeTokens(t, testTokensYAML))
	if err != nil {
		t.Fatalf("LoadTokens() error: %v", err)
	}
	if tok.Env["ZENDESK_URL"] != "https://example.zendesk.com" {
		t.Errorf("ZENDESK_URL = %v", tok.Env["ZENDESK_URL"])
	}
	mapping, ok := tok.Env["ZENDESK_GROUP_ID_MAPPING"].(map[string]any)
	if !ok {
		t.Fatalf("ZENDESK_GROUP_ID_MAPPING has type %T", tok.Env["ZENDESK_GROUP_ID_MAPPING"])
	}
	if mapping["billing"] != 360000001 {
		t.Errorf("billing group = %v", mapping["billing"])
	}
	if tok.Auth["ZENDESK_OAUTH_ACCESS_TOKEN"] != "s3cret" {
		t.Errorf("auth token = %v", tok.Auth["ZENDESK_OAUTH_ACCESS_TOKEN"])
	}
}

func TestParseTokensMissingSections(t *testing.T) {
	tok, err := ParseTokens([]byte("env_tokens:\n  A: b\n"))
	if err != nil {
		t.Fatalf("ParseTokens() error: %v", err)
	}
	if tok.Auth == nil {
		t.Error("Auth should default to an empty map")
	}

	tok, err = ParseTokens(nil)
	if err != nil {
		t.Fatalf("ParseTokens(nil) error: %v", err)
	}
	if tok.Env == nil || tok.Auth == nil {
		t.Error("empty document should yield empty maps")
	}
}

func TestParseTokensInvalid(t *testing.T) {
	if _, err := ParseTokens([]byte("env_tokens: [unclosed")); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadTokensMissingFile(t *testing.T) {
	if _, err := LoadTokens(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv("CMS_CFG", "/etc/cms.yml")
	if got := ResolvePath("", "cms"); got != "/etc/cms.yml" {
		t.Errorf("ResolvePath from env = %q", got)
	}
	if got := ResolvePath("/tmp/explicit.yml", "cms"); got != "/tmp/explicit.yml" {
		t.Errorf("explicit path should win, got %q", got)
	}
	if got := PathEnvVar("lms"); got != "LMS_CFG" {
		t.Errorf("PathEnvVar(lms) = %q", got)
	}
}

func TestFileSource(t *testing.T) {
	fp := writeTokens(t, testTokensYAML)
	src := NewFileSource(fp)

	tok, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok.Auth["ZENDESK_OAUTH_ACCESS_TOKEN"] != "s3cret" {
		t.Errorf("auth token = %v", tok.Auth["ZENDESK_OAUTH_ACCESS_TOKEN"])
	}

	h1, err := src.Hash(context.Background())
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	if len(h1) != 64 {
		t.Errorf("expected 64-char hex hash, got %d chars", len(h1))
	}
	if err := os.WriteFile(fp, []byte("env_tokens: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	h2, _ := src.Hash(context.Background())
	if h1 == h2 {
		t.Error("hash should change with file content")
	}

	if src.Name() != "file:"+fp || src.Path() != fp {
		t.Errorf("Name() = %q, Path() = %q", src.Name(), src.Path())
	}

	if _, err := NewFileSource(filepath.Join(t.TempDir(), "nope.yml")).Load(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}
