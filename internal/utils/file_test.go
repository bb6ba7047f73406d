package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDocumentToJSON(t *testing.T) {
	yamlDoc := []byte(`
name: Platform Engineer
baseline:
  1: 60
  2: 40
categories:
  - position: 1
    weight_percentage: 60
`)
	out, err := DocumentToJSON(yamlDoc, "persona.yaml")
	if err != nil {
		t.Fatalf("DocumentToJSON failed: %v", err)
	}

	var decoded struct {
		Name     string             `json:"name"`
		Baseline map[string]float64 `json:"baseline"`
	}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, out)
	}
	if decoded.Name != "Platform Engineer" {
		t.Errorf("Expected name 'Platform Engineer', got %q", decoded.Name)
	}
	if decoded.Baseline["1"] != 60 || decoded.Baseline["2"] != 40 {
		t.Errorf("Expected integer baseline keys as strings, got %v", decoded.Baseline)
	}

	raw := []byte(`{"name":"x"}`)
	out, err = DocumentToJSON(raw, "persona.json")
	if err != nil || string(out) != string(raw) {
		t.Errorf("Expected JSON to pass through unchanged, got %q (%v)", out, err)
	}

	if _, err := DocumentToJSON([]byte("name: [unclosed"), "bad.yml"); err == nil {
		t.Error("Expected error for malformed yaml")
	}
}

func TestFormatForFile(t *testing.T) {
	tests := map[string]string{
		"out.json":     "json",
		"out.YAML":     "yaml",
		"out.yml":      "yaml",
		"out.md":       "markdown",
		"out.txt":      "text",
		"out":          "fallback",
		"dir/out.html": "fallback",
	}
	for name, want := range tests {
		if got := FormatForFile(name, "fallback"); got != want {
			t.Errorf("FormatForFile(%q) = %q, expected %q", name, got, want)
		}
	}
}

func TestValidateFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "jd.txt")
	if err := os.WriteFile(file, []byte("Go developer"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := ValidateInputFile(file); err != nil {
		t.Errorf("Expected readable file to validate, got %v", err)
	}
	if err := ValidateInputFile(dir); err == nil {
		t.Error("Expected error for directory input")
	}
	if err := ValidateInputFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("Expected error for missing input")
	}

	nested := filepath.Join(dir, "a", "b", "persona.yaml")
	if err := ValidateOutputFile(nested); err != nil {
		t.Fatalf("ValidateOutputFile failed: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(nested)); err != nil {
		t.Errorf("Expected output directory to be created: %v", err)
	}
}

func TestFormatFileSize(t *testing.T) {
	if got := FormatFileSize(512); got != "512 B" {
		t.Errorf("Expected '512 B', got %q", got)
	}
	if got := FormatFileSize(1536); got != "1.5 KB" {
		t.Errorf("Expected '1.5 KB', got %q", got)
	}
}
