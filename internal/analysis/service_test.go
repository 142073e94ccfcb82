package analysis

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"kandrai/internal/errors"
	"kandrai/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply *llm.Completion
	err   error
	calls []llm.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	f.calls = append(f.calls, req)
	return f.reply, f.err
}

func TestAnalyzeBlankInputSkipsCompleter(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		missing []string
	}{
		{"blank jd", Request{JobDescription: "", CandidateText: "cv"}, []string{"job_description"}},
		{"whitespace candidate", Request{JobDescription: "jd", CandidateText: "   "}, []string{"candidate_text"}},
		{"both blank", Request{}, []string{"job_description", "candidate_text"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &fakeCompleter{}
			svc := NewService(completer, true, nil)

			outcome, err := svc.Analyze(context.Background(), tt.req)
			require.NoError(t, err)

			assert.True(t, outcome.Fallback)
			assert.Equal(t, tt.missing, outcome.Missing)
			assert.Empty(t, completer.calls)

			report, err := outcome.Result.Report()
			require.NoError(t, err)
			assert.Zero(t, report.MatchScore.Percentage)
			assert.Equal(t, "Insufficient Data", report.MatchScore.Label)
			assert.Equal(t, tt.missing, report.InputQuality.MissingInputs)
		})
	}
}

func TestAnalyzeCallsCompleterOnce(t *testing.T) {
	completer := &fakeCompleter{reply: &llm.Completion{
		Content:  `{"match_score":{"percentage":81,"label":"Strong"},"executive_summary":{"one_line_verdict":"Hire"}}`,
		Model:    "gpt-4o-mini",
		Provider: "openai",
		Usage:    &llm.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}}
	svc := NewService(completer, false, nil)

	outcome, err := svc.Analyze(context.Background(), Request{
		JobDescription: "Go developer",
		CVText:         "Gopher since 2012",
		RecruiterDoubt: "Remote only?",
	})
	require.NoError(t, err)

	require.Len(t, completer.calls, 1)
	assert.Equal(t, SystemPrompt, completer.calls[0].SystemPrompt)
	assert.Equal(t, "ROLE: recruiter\n\nJOB DESCRIPTION:\nGo developer\n\nCANDIDATE:\nGopher since 2012\n\nRECRUITER DOUBT:\nRemote only?",
		completer.calls[0].UserContent)

	assert.False(t, outcome.Fallback)
	assert.Equal(t, "gpt-4o-mini", outcome.Model)
	assert.Equal(t, int64(15), outcome.Usage.TotalTokens)
	assert.JSONEq(t, `81`, string(outcome.Result["match_score_simple"]))
	assert.JSONEq(t, `"Hire"`, string(outcome.Result["verdict"]))
	assert.JSONEq(t, `[]`, string(outcome.Result["explanations"]))
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name       string
		completer  *fakeCompleter
		req        Request
		wantStatus int
	}{
		{
			name:       "invalid role",
			completer:  &fakeCompleter{},
			req:        Request{Role: "boss", JobDescription: "jd", CandidateText: "cv"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing credential",
			completer:  &fakeCompleter{err: errors.NewConfigError(errors.ErrCodeMissingAPIKey, "OPENAI_API_KEY is not set on the server", nil)},
			req:        Request{JobDescription: "jd", CandidateText: "cv"},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "upstream failure",
			completer:  &fakeCompleter{err: errors.NewAIError(errors.ErrCodeAIServiceFailed, "status 500", nil)},
			req:        Request{JobDescription: "jd", CandidateText: "cv"},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "unclassified completer error",
			completer:  &fakeCompleter{err: fmt.Errorf("socket closed")},
			req:        Request{JobDescription: "jd", CandidateText: "cv"},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "reply not json",
			completer:  &fakeCompleter{reply: &llm.Completion{Content: "Sure! Here is the analysis"}},
			req:        Request{JobDescription: "jd", CandidateText: "cv"},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.completer, false, nil)
			outcome, err := svc.Analyze(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, outcome)
			assert.Equal(t, tt.wantStatus, errors.StatusCode(err))
		})
	}
}

func TestAnalyzeSchemaMismatchOnlyWarns(t *testing.T) {
	var logs bytes.Buffer
	logger := errors.NewLoggerWithWriter(&logs, slog.LevelDebug)
	completer := &fakeCompleter{reply: &llm.Completion{Content: `{"match_score":{"percentage":50}}`}}
	svc := NewService(completer, true, logger)

	outcome, err := svc.Analyze(context.Background(), Request{JobDescription: "jd", CandidateText: "cv"})
	require.NoError(t, err)
	assert.JSONEq(t, `50`, string(outcome.Result["match_score_simple"]))
	assert.Contains(t, logs.String(), "analysis.schema_mismatch")
}
