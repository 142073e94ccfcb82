package formatters

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"kandrai/internal/analysis"
	"kandrai/internal/errors"
)

// ExtractedText is the CLI output of the extract command.
type ExtractedText struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	return NewFormatterRegistryWithLogger(nil)
}

// NewFormatterRegistryWithLogger creates the default registry; analysis
// formatters log reports that only partially decode to logger.
func NewFormatterRegistryWithLogger(logger *errors.Logger) *FormatterRegistry {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "AnalysisResult", &AnalysisTextFormatter{logger: logger})
	registry.RegisterFormatter("markdown", "AnalysisResult", &AnalysisMarkdownFormatter{logger: logger})
	registry.RegisterFormatter("text", "ExtractedText", &ExtractedTextFormatter{})
	registry.RegisterFormatter("markdown", "ExtractedText", &ExtractedTextFormatter{markdown: true})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case analysis.Result:
		return "AnalysisResult"
	case ExtractedText:
		return "ExtractedText"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

func formatPercentage(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

// writeList writes items one per line behind prefix; empty lists write nothing.
func writeList(b *strings.Builder, heading string, items []string, numbered bool) {
	if len(items) == 0 {
		return
	}
	b.WriteString(heading)
	for i, item := range items {
		if numbered {
			fmt.Fprintf(b, "%d. %s\n", i+1, item)
		} else {
			fmt.Fprintf(b, "- %s\n", item)
		}
	}
	b.WriteString("\n")
}

// decodeReport returns the typed view of result. Fields of an unexpected type
// render empty; the decode error is only logged.
func decodeReport(result analysis.Result, logger *errors.Logger) analysis.Report {
	report, err := result.Report()
	if err != nil && logger != nil {
		logger.Debug("analysis.report_partial_decode", "error", err.Error())
	}
	return report
}

// AnalysisTextFormatter handles text formatting for analysis reports
type AnalysisTextFormatter struct {
	logger *errors.Logger
}

func (atf *AnalysisTextFormatter) Format(data any) (string, error) {
	result, ok := data.(analysis.Result)
	if !ok {
		return "", fmt.Errorf("expected analysis.Result, got %T", data)
	}
	report := decodeReport(result, atf.logger)

	var output strings.Builder

	output.WriteString("=== KANDRAI ANALYSIS ===\n")
	if report.KandraiEngine != "" {
		fmt.Fprintf(&output, "Engine: %s\n", report.KandraiEngine)
	}
	if report.EngineStatus != "" {
		fmt.Fprintf(&output, "Status: %s\n", report.EngineStatus)
	}
	output.WriteString("\n")

	output.WriteString("=== MATCH SCORE ===\n")
	fmt.Fprintf(&output, "Score: %s (%s)\n", formatPercentage(report.MatchScore.Percentage), report.MatchScore.Label)
	if report.MatchScore.ConfidenceExplanation != "" {
		fmt.Fprintf(&output, "Confidence: %s\n", report.MatchScore.ConfidenceExplanation)
	}
	if report.MatchScore.BrutalHonesty != "" {
		fmt.Fprintf(&output, "Brutal honesty: %s\n", report.MatchScore.BrutalHonesty)
	}
	output.WriteString("\n")

	if len(report.InputQuality.MissingInputs) > 0 {
		output.WriteString("=== INPUT QUALITY ===\n")
		fmt.Fprintf(&output, "Missing inputs: %s\n", strings.Join(report.InputQuality.MissingInputs, ", "))
		if report.InputQuality.Notes != "" {
			fmt.Fprintf(&output, "Notes: %s\n", report.InputQuality.Notes)
		}
		output.WriteString("\n")
	}

	output.WriteString("=== EXECUTIVE SUMMARY ===\n")
	fmt.Fprintf(&output, "Verdict: %s\n", report.ExecutiveSummary.OneLineVerdict)
	if report.ExecutiveSummary.HireNowVsLater != "" {
		fmt.Fprintf(&output, "Hire now vs later: %s\n", report.ExecutiveSummary.HireNowVsLater)
	}
	if report.ExecutiveSummary.ExecutiveAction != "" {
		fmt.Fprintf(&output, "Action: %s\n", report.ExecutiveSummary.ExecutiveAction)
	}
	output.WriteString("\n")

	writeList(&output, "=== EVIDENCE: CV SIGNALS ===\n", report.Evidence.CVSignals, false)
	writeList(&output, "=== EVIDENCE: KEY MISMATCHES ===\n", report.Evidence.KeyMismatches, false)
	writeList(&output, "=== MISSING HARD SKILLS ===\n", report.SkillsGap.MissingHardSkills, false)
	writeList(&output, "=== TRANSFERABLE STRENGTHS ===\n", report.SkillsGap.TransferableStrengths, false)
	writeList(&output, "=== INTERVIEW QUESTIONS ===\n", report.InterviewPlan.Top7Questions, true)
	writeList(&output, "=== RED FLAGS TO VERIFY ===\n", report.InterviewPlan.RedFlagsToVerify, false)
	writeList(&output, "=== WHY THIS SCORE ===\n", report.DecisionTrace.WhyThisScore, false)
	writeList(&output, "=== WHAT WOULD RAISE THE SCORE ===\n", report.DecisionTrace.WhatWouldRaiseScoreFast, false)

	return output.String(), nil
}

func (atf *AnalysisTextFormatter) SupportedType() string {
	return "AnalysisResult"
}

// AnalysisMarkdownFormatter handles markdown formatting for analysis reports
type AnalysisMarkdownFormatter struct {
	logger *errors.Logger
}

func (amf *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(analysis.Result)
	if !ok {
		return "", fmt.Errorf("expected analysis.Result, got %T", data)
	}
	report := decodeReport(result, amf.logger)

	var output strings.Builder

	output.WriteString("# Kandrai Analysis\n\n")
	if report.KandraiEngine != "" {
		fmt.Fprintf(&output, "_%s_", report.KandraiEngine)
		if report.EngineStatus != "" {
			fmt.Fprintf(&output, " · %s", report.EngineStatus)
		}
		output.WriteString("\n\n")
	}

	output.WriteString("## Match Score\n\n")
	fmt.Fprintf(&output, "**Score:** %s (%s)\n\n", formatPercentage(report.MatchScore.Percentage), report.MatchScore.Label)
	if report.MatchScore.BrutalHonesty != "" {
		fmt.Fprintf(&output, "> %s\n\n", report.MatchScore.BrutalHonesty)
	}

	if len(report.InputQuality.MissingInputs) > 0 {
		output.WriteString("## Input Quality\n\n")
		fmt.Fprintf(&output, "**Missing inputs:** %s\n\n", strings.Join(report.InputQuality.MissingInputs, ", "))
	}

	output.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&output, "**Verdict:** %s\n\n", report.ExecutiveSummary.OneLineVerdict)
	if report.ExecutiveSummary.ExecutiveAction != "" {
		fmt.Fprintf(&output, "**Action:** %s\n\n", report.ExecutiveSummary.ExecutiveAction)
	}

	writeList(&output, "## Evidence\n\n", report.Evidence.CVSignals, false)
	writeList(&output, "## Key Mismatches\n\n", report.Evidence.KeyMismatches, false)
	writeList(&output, "## Missing Hard Skills\n\n", report.SkillsGap.MissingHardSkills, false)
	writeList(&output, "## Interview Questions\n\n", report.InterviewPlan.Top7Questions, true)
	writeList(&output, "## Why This Score\n\n", report.DecisionTrace.WhyThisScore, false)
	writeList(&output, "## What Would Raise the Score\n\n", report.DecisionTrace.WhatWouldRaiseScoreFast, false)

	return output.String(), nil
}

func (amf *AnalysisMarkdownFormatter) SupportedType() string {
	return "AnalysisResult"
}

// ExtractedTextFormatter prints extracted text, optionally under a markdown heading
type ExtractedTextFormatter struct {
	markdown bool
}

func (etf *ExtractedTextFormatter) Format(data any) (string, error) {
	extracted, ok := data.(ExtractedText)
	if !ok {
		return "", fmt.Errorf("expected ExtractedText, got %T", data)
	}
	if etf.markdown {
		return fmt.Sprintf("# %s\n\n%s\n", extracted.Source, extracted.Text), nil
	}
	return extracted.Text + "\n", nil
}

func (etf *ExtractedTextFormatter) SupportedType() string {
	return "ExtractedText"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
