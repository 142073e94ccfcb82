package common

import (
	"testing"

	"kandrai/internal/analysis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOutputFormat(t *testing.T) {
	supported := []string{"json", "text", "markdown"}

	tests := []struct {
		name          string
		format        string
		supported     []string
		expectedError string
	}{
		{name: "json", format: "json", supported: supported},
		{name: "markdown", format: "markdown", supported: supported},
		{
			name:          "unknown format",
			format:        "xml",
			supported:     supported,
			expectedError: "unsupported output format 'xml'. Supported formats: [json text markdown]",
		},
		{
			name:          "case sensitive",
			format:        "JSON",
			supported:     supported,
			expectedError: "unsupported output format 'JSON'. Supported formats: [json text markdown]",
		},
		{
			name:          "empty format",
			format:        "",
			supported:     supported,
			expectedError: "unsupported output format ''. Supported formats: [json text markdown]",
		},
		{name: "no restrictions", format: "xml", supported: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supported)
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.expectedError)
		})
	}
}

func TestResolveFormat(t *testing.T) {
	supported := []string{"json", "text", "markdown"}

	format, err := ResolveFormat("", "json", supported)
	require.NoError(t, err)
	assert.Equal(t, "json", format)

	format, err = ResolveFormat(" markdown ", "json", supported)
	require.NoError(t, err)
	assert.Equal(t, "markdown", format)

	_, err = ResolveFormat("yaml", "json", supported)
	assert.Error(t, err)
}

func TestResolveFormatFallsBackToRegistry(t *testing.T) {
	format, err := ResolveFormat("", "text", nil)
	require.NoError(t, err)
	assert.Equal(t, "text", format)

	_, err = ResolveFormat("yaml", "json", nil)
	assert.Error(t, err)
}

func TestValidateRole(t *testing.T) {
	tests := []struct {
		input    string
		expected analysis.Role
		wantErr  bool
	}{
		{input: "", expected: analysis.RoleRecruiter},
		{input: "recruiter", expected: analysis.RoleRecruiter},
		{input: "Candidate", expected: analysis.RoleCandidate},
		{input: " candidate ", expected: analysis.RoleCandidate},
		{input: "manager", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			role, err := ValidateRole(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, role)
		})
	}
}

func BenchmarkValidateOutputFormat(b *testing.B) {
	supportedFormats := []string{"json", "text", "markdown"}

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
