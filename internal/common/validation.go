package common

import (
	"fmt"
	"slices"
	"strings"
)

var formatAliases = map[string]string{
	"md":  "markdown",
	"txt": "text",
}

// NormalizeFormat lowercases format and resolves the short aliases md and txt
func NormalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if full, ok := formatAliases[format]; ok {
		return full
	}
	return format
}

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
