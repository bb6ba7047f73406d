package common

import (
	"fmt"
	"slices"

	"personakit/internal/utils"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ResolveOutputFormat picks the explicit format, then the one implied by the
// output file extension, then defaultFormat, and validates the result.
func ResolveOutputFormat(requested, outputFile, defaultFormat string, supportedFormats []string) (string, error) {
	format := requested
	if format == "" {
		format = utils.FormatForFile(outputFile, defaultFormat)
	}
	if err := ValidateOutputFormat(format, supportedFormats); err != nil {
		return "", err
	}
	return format, nil
}
