package common

import (
	"testing"
)

func TestValidateOutputFormat(t *testing.T) {
	supported := []string{"json", "yaml", "text", "markdown"}
	tests := []struct {
		name             string
		format           string
		supportedFormats []string
		expectError      bool
		expectedError    string
	}{
		{
			name:             "valid format - json",
			format:           "json",
			supportedFormats: supported,
		},
		{
			name:             "valid format - yaml",
			format:           "yaml",
			supportedFormats: supported,
		},
		{
			name:             "invalid format - xml",
			format:           "xml",
			supportedFormats: supported,
			expectError:      true,
			expectedError:    "unsupported output format 'xml'. Supported formats: [json yaml text markdown]",
		},
		{
			name:             "case sensitive - JSON uppercase",
			format:           "JSON",
			supportedFormats: supported,
			expectError:      true,
			expectedError:    "unsupported output format 'JSON'. Supported formats: [json yaml text markdown]",
		},
		{
			name:             "empty format string",
			format:           "",
			supportedFormats: supported,
			expectError:      true,
			expectedError:    "unsupported output format ''. Supported formats: [json yaml text markdown]",
		},
		{
			name:             "empty supported formats - should allow all",
			format:           "xml",
			supportedFormats: []string{},
		},
		{
			name:             "single supported format - invalid",
			format:           "text",
			supportedFormats: []string{"json"},
			expectError:      true,
			expectedError:    "unsupported output format 'text'. Supported formats: [json]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supportedFormats)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
					return
				}
				if tt.expectedError != "" && err.Error() != tt.expectedError {
					t.Errorf("Expected error '%s', got '%s'", tt.expectedError, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestResolveOutputFormat(t *testing.T) {
	supported := []string{"json", "yaml", "text", "markdown"}
	tests := []struct {
		name       string
		requested  string
		outputFile string
		expected   string
		expectErr  bool
	}{
		{"explicit wins over extension", "text", "persona.yaml", "text", false},
		{"extension when not requested", "", "persona.yaml", "yaml", false},
		{"markdown extension", "", "out/persona.md", "markdown", false},
		{"default for stdout", "", "", "json", false},
		{"default for unknown extension", "", "persona.out", "json", false},
		{"unsupported explicit format", "xml", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveOutputFormat(tt.requested, tt.outputFile, "json", supported)
			if tt.expectErr {
				if err == nil {
					t.Errorf("Expected error but got format %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected format %q, got %q", tt.expected, got)
			}
		})
	}
}

func BenchmarkValidateOutputFormat(b *testing.B) {
	supportedFormats := []string{"json", "yaml", "text", "markdown"}

	b.Run("valid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("json", supportedFormats)
		}
	})

	b.Run("invalid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("xml", supportedFormats)
		}
	})
}
