package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reqdump.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
serve: ":9090"
parse_form: true
log_format: text
allow_origins:
  - https://app.example
rate_limit:
  requests_per_second: 10
  burst: 5
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Serve != ":9090" {
		t.Errorf("expected :9090, got %q", config.Serve)
	}
	if !config.ParseForm {
		t.Error("expected parse_form true")
	}
	if config.LogFormat != "text" {
		t.Errorf("expected text, got %q", config.LogFormat)
	}
	if len(config.AllowOrigins) != 1 || config.AllowOrigins[0] != "https://app.example" {
		t.Errorf("unexpected origins %v", config.AllowOrigins)
	}
	if config.RateLimit.RequestsPerSecond != 10 || config.RateLimit.Burst != 5 {
		t.Errorf("unexpected rate limit %+v", config.RateLimit)
	}
	if config.MaxMemory != defaultMaxMemory {
		t.Errorf("expected default max memory, got %d", config.MaxMemory)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"bad yaml", "serve: [unterminated"},
		{"bad log format", "log_format: xml"},
		{"bad max memory", "max_memory: -1"},
		{"negative rate", "rate_limit:\n  requests_per_second: -3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.contents)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "serve: \":9090\"\nlog_format: text\nindent: true\n")

	config, err := parseFlags([]string{"-config", path, "-serve", ":7070", "-rps", "3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Serve != ":7070" {
		t.Errorf("expected flag to win, got %q", config.Serve)
	}
	if config.LogFormat != "text" {
		t.Errorf("expected file value for unset flag, got %q", config.LogFormat)
	}
	if !config.Indent {
		t.Error("expected indent from file")
	}
	if config.RateLimit.RequestsPerSecond != 3 {
		t.Errorf("expected rps 3, got %d", config.RateLimit.RequestsPerSecond)
	}
}

func TestParseFlagsPositionalInput(t *testing.T) {
	config, err := parseFlags([]string{"-form", "request.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Input != "request.txt" {
		t.Errorf("expected request.txt, got %q", config.Input)
	}
	if !config.ParseForm {
		t.Error("expected -form to be set")
	}
}

func TestParseFlagsInvalid(t *testing.T) {
	if _, err := parseFlags([]string{"-log-format", "xml"}); err == nil {
		t.Error("expected error for invalid log format")
	}
}
