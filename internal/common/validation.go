package common

import (
	"fmt"
	"slices"
	"strings"

	"kandrai/internal/analysis"
	"kandrai/internal/formatters"
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

// ResolveFormat returns flagValue, or defaultFormat when the flag was left empty,
// after checking it against supportedFormats. With no configured formats the
// formatter registry decides.
func ResolveFormat(flagValue, defaultFormat string, supportedFormats []string) (string, error) {
	format := strings.TrimSpace(flagValue)
	if format == "" {
		format = defaultFormat
	}
	if len(supportedFormats) == 0 {
		supportedFormats = formatters.GlobalRegistry.GetSupportedFormats()
	}
	if err := ValidateOutputFormat(format, supportedFormats); err != nil {
		return "", err
	}
	return format, nil
}

// ValidateRole checks a --role flag value the same way the API checks "role".
func ValidateRole(role string) (analysis.Role, error) {
	req := analysis.Request{Role: analysis.Role(role)}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", err
	}
	return req.Role, nil
}
