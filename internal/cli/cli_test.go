package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kandrai/internal/analysis"
	"kandrai/internal/config"
	"kandrai/internal/errors"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig is shared because cobra keeps the first context it sees on each subcommand.
var testConfig = &config.Config{
	LLM: config.LLMConfig{
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		BaseURL:   "http://127.0.0.1:1",
		APIKeyEnv: "KANDRAI_CLI_TEST_KEY",
		Timeout:   time.Second,
	},
	App: config.AppConfig{
		LogLevel:         "error",
		DefaultFormat:    "json",
		SupportedFormats: []string{"json", "text", "markdown"},
	},
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := Execute(context.Background(), testConfig, errors.NewDiscardLogger())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "kandrai version "+Version)
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	cv := filepath.Join(dir, "cv.txt")
	require.NoError(t, os.WriteFile(cv, []byte("  Senior Go engineer\n"), 0600))
	target := filepath.Join(dir, "out", "cv.json")

	_, err := runCLI(t, "extract", cv, "--format", "json", "-o", target)
	require.NoError(t, err)

	var got map[string]string
	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, map[string]string{"source": "cv.txt", "text": "Senior Go engineer"}, got)
}

func TestExtractCommandRejectsUnreadableDocx(t *testing.T) {
	docx := filepath.Join(t.TempDir(), "cv.docx")
	require.NoError(t, os.WriteFile(docx, []byte("PK"), 0600))

	_, err := runCLI(t, "extract", docx, "--format", "text", "-o", "")
	require.Error(t, err)
	assert.Equal(t, 400, errors.StatusCode(err))
}

func TestExtractCommandRejectsUnsupportedType(t *testing.T) {
	odt := filepath.Join(t.TempDir(), "cv.odt")
	require.NoError(t, os.WriteFile(odt, []byte("data"), 0600))

	_, err := runCLI(t, "extract", odt, "--format", "text", "-o", "")
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeUnsupportedFileType, appErr.Code)
}

func TestAnalyzeCommandFallsBackWithoutJobDescription(t *testing.T) {
	t.Setenv("KANDRAI_CLI_TEST_KEY", "")
	dir := t.TempDir()
	cv := filepath.Join(dir, "cv.md")
	require.NoError(t, os.WriteFile(cv, []byte("# Jane Doe\nGo, Kubernetes"), 0600))
	target := filepath.Join(dir, "report.json")

	_, err := runCLI(t, "analyze", "--cv", cv, "--jd", "", "--role", "Candidate", "--format", "json", "-o", target)
	require.NoError(t, err)

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	var result analysis.Result
	require.NoError(t, json.Unmarshal(raw, &result))

	report, err := result.Report()
	require.NoError(t, err)
	assert.Equal(t, analysis.FallbackStatus, report.EngineStatus)
	assert.Equal(t, []string{analysis.FieldJobDescription}, report.InputQuality.MissingInputs)
	assert.True(t, report.InputQuality.CVPresent)
	assert.JSONEq(t, `"Insufficient Data"`, string(result["risk_level"]))
}

func TestAnalyzeCommandRejectsUnknownRole(t *testing.T) {
	_, err := runCLI(t, "analyze", "--role", "manager", "--format", "json", "-o", "")
	require.Error(t, err)
	assert.Equal(t, 400, errors.StatusCode(err))
}

func TestApplyServeFlags(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Host: "0.0.0.0", Port: "8000", MaxRequestSize: 10 << 20}}
	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().StringP("port", "p", "", "")
	cmd.Flags().String("host", "", "")
	cmd.Flags().Int64("max-request-size", 0, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9090", "--max-request-size", "2048"}))

	require.NoError(t, applyServeFlags(cmd, cfg))
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, int64(2048), cfg.Server.MaxRequestSize)

	require.NoError(t, cmd.Flags().Set("max-request-size", "-1"))
	assert.Error(t, applyServeFlags(cmd, cfg))
}
