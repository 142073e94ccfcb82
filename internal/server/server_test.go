package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"kandrai/internal/analysis"
	"kandrai/internal/config"
	kandraiErrors "kandrai/internal/errors"
	"kandrai/internal/extract"
	"kandrai/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyEnv = "KANDRAI_TEST_SERVER_KEY"

// fakeUpstream is an OpenAI-compatible chat/completions endpoint.
type fakeUpstream struct {
	server *httptest.Server
	hits   atomic.Int32
	status int
	reply  string
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{status: http.StatusOK}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.reply))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeUpstream) answer(content string) {
	b, _ := json.Marshal(map[string]any{
		"model": "gpt-4o-mini-2024-07-18",
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
		"usage": map[string]any{"prompt_tokens": 900, "completion_tokens": 300, "total_tokens": 1200},
	})
	f.reply = string(b)
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			BaseURL:     baseURL,
			APIKeyEnv:   testKeyEnv,
			Temperature: 0.2,
			MaxTokens:   1400,
			Timeout:     5 * time.Second,
		},
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           "0",
			MaxRequestSize: 1 << 20,
		},
		CORS: config.CORSConfig{
			AllowedOrigins:       []string{"http://localhost:3000", "https://kandrai.vercel.app"},
			AllowedOriginPattern: `^https://.*\.vercel\.app$`,
			AllowCredentials:     true,
			MaxAge:               600,
		},
	}
}

type testEnv struct {
	handler  http.Handler
	upstream *fakeUpstream
}

func newTestEnv(t *testing.T, mutate func(*config.Config), extractOpts ...extract.Option) *testEnv {
	t.Helper()
	upstream := newFakeUpstream(t)
	cfg := testConfig(upstream.server.URL + "/v1")
	if mutate != nil {
		mutate(cfg)
	}

	logger := kandraiErrors.NewDiscardLogger()
	accessor := llm.NewAccessor(cfg.LLM, nil, logger)
	srv := NewServer(cfg, "test", Dependencies{
		Analyzer:  analysis.NewService(accessor, true, logger),
		Extractor: extract.New(logger, extractOpts...),
		LLM:       accessor,
	}, logger)

	handler, err := srv.Handler()
	require.NoError(t, err)
	return &testEnv{handler: handler, upstream: upstream}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *testEnv) upload(filename string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", filename)
	_, _ = part.Write(content)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRootAndHealth(t *testing.T) {
	t.Setenv(testKeyEnv, "")
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"service":"Kandrai API","version":"3.1.1","docs":"/openapi.json"}`, rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"engine":"kandrai","marker":"NEW-3.1.1","provider":"openai","credential_configured":false}`, rec.Body.String())

	t.Setenv(testKeyEnv, "sk-test")
	rec = env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, true, decodeBody(t, rec)["credential_configured"])

	rec = env.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, env.upstream.hits.Load())
}

func TestStatsAndOpenAPI(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody(t, rec)
	assert.Equal(t, "kandrai", stats["service"])
	assert.Equal(t, map[string]any{"enabled": false}, stats["circuit_breaker"])
	assert.Equal(t, float64(1<<20), stats["server"].(map[string]any)["max_request_size_bytes"])

	rec = env.do(httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decodeBody(t, rec)
	assert.Equal(t, "3.1.0", doc["openapi"])
	paths := doc["paths"].(map[string]any)
	for _, p := range []string{"/", "/health", "/stats", "/analyze", "/extract"} {
		assert.Contains(t, paths, p)
	}
}

func TestAnalyzeMissingCredentialMakesNoUpstreamCall(t *testing.T) {
	t.Setenv(testKeyEnv, "")
	env := newTestEnv(t, nil)
	env.upstream.answer(`{}`)

	rec := env.postJSON("/analyze", `{"job_description":"Go engineer","candidate_text":"Five years of Go"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, kandraiErrors.ErrCodeMissingAPIKey, body["error"])
	assert.Contains(t, body["detail"], testKeyEnv)
	assert.Zero(t, env.upstream.hits.Load())
}

func TestAnalyzeFallback(t *testing.T) {
	t.Setenv(testKeyEnv, "")
	env := newTestEnv(t, nil)

	tests := []struct {
		name    string
		body    string
		missing []any
		cv, jd  bool
	}{
		{"both blank", `{}`, []any{"job_description", "candidate_text"}, false, false},
		{"whitespace job description", `{"job_description":"  \n\t","candidate_text":"Go dev"}`, []any{"job_description"}, true, false},
		{"blank candidate", `{"job_description":"Go engineer","candidate_text":""}`, []any{"candidate_text"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postJSON("/analyze", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			body := decodeBody(t, rec)
			score := body["match_score"].(map[string]any)
			assert.Equal(t, float64(0), score["percentage"])
			assert.Equal(t, "Insufficient Data", score["label"])

			quality := body["input_quality"].(map[string]any)
			assert.Equal(t, tt.missing, quality["missing_inputs"])
			assert.Equal(t, tt.cv, quality["cv_present"])
			assert.Equal(t, tt.jd, quality["jd_present"])

			assert.Equal(t, float64(0), body["match_score_simple"])
			assert.Equal(t, "Insufficient Data", body["risk_level"])
		})
	}
	assert.Zero(t, env.upstream.hits.Load())
}

func TestAnalyzeSuccess(t *testing.T) {
	t.Setenv(testKeyEnv, "sk-test")
	env := newTestEnv(t, nil)
	env.upstream.answer(`{
		"kandrai_engine": "Recruitment Intelligence v3.1.1 | Enterprise",
		"match_score": {"percentage": 72, "label": "Medium Risk"},
		"executive_summary": {"one_line_verdict": "Strong backend fit"},
		"decision_trace": {"why_this_score": ["Go in production"]}
	}`)

	rec := env.postJSON("/analyze", `{"role":"candidate","job_description":"Go engineer","cv_text":"Five years of Go"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, float64(72), body["match_score_simple"])
	assert.Equal(t, "Medium Risk", body["risk_level"])
	assert.Equal(t, "Strong backend fit", body["verdict"])
	assert.Equal(t, []any{"Go in production"}, body["explanations"])
	assert.Equal(t, "Recruitment Intelligence v3.1.1 | Enterprise", body["kandrai_engine"])
	assert.Equal(t, int32(1), env.upstream.hits.Load())
}

func TestAnalyzeErrors(t *testing.T) {
	t.Setenv(testKeyEnv, "sk-test")

	tests := []struct {
		name     string
		status   int
		reply    string
		body     string
		wantCode int
		wantErr  string
		wantHits int32
	}{
		{
			name:     "upstream failure",
			status:   http.StatusInternalServerError,
			reply:    `{"error":{"message":"overloaded"}}`,
			body:     `{"job_description":"Go engineer","candidate_text":"Go dev"}`,
			wantCode: http.StatusBadGateway,
			wantErr:  kandraiErrors.ErrCodeAIServiceFailed,
			wantHits: 1,
		},
		{
			name:     "reply is not a JSON object",
			status:   http.StatusOK,
			body:     `{"job_description":"Go engineer","candidate_text":"Go dev"}`,
			wantCode: http.StatusBadGateway,
			wantErr:  kandraiErrors.ErrCodeAIResponseInvalid,
			wantHits: 1,
		},
		{
			name:     "malformed body",
			body:     `{"job_description":`,
			wantCode: http.StatusBadRequest,
			wantErr:  kandraiErrors.ErrCodeInvalidRequest,
		},
		{
			name:     "unknown role",
			body:     `{"role":"hiring_manager","job_description":"Go engineer","candidate_text":"Go dev"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  kandraiErrors.ErrCodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			if tt.status != 0 {
				env.upstream.status = tt.status
			}
			if tt.reply != "" {
				env.upstream.reply = tt.reply
			} else {
				env.upstream.answer("the model forgot the JSON")
			}

			rec := env.postJSON("/analyze", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			assert.Equal(t, tt.wantErr, body["error"])
			assert.NotEmpty(t, body["detail"])
			assert.Equal(t, tt.wantHits, env.upstream.hits.Load())
		})
	}
}

func TestAnalyzeRejectsWrongContentTypeAndMethod(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`job_description=x`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestSizeLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.Server.MaxRequestSize = 64 })

	rec := env.postJSON("/analyze", `{"job_description":"`+strings.Repeat("x", 200)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, kandraiErrors.ErrCodeRequestTooLarge, decodeBody(t, rec)["error"])
}

func TestExtract(t *testing.T) {
	env := newTestEnv(t, nil, extract.WithPDFPages(func([]byte) ([]string, error) {
		return []string{"", "  "}, nil
	}))

	tests := []struct {
		name       string
		filename   string
		content    string
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "plain text",
			filename:   "cv.txt",
			content:    "  Hello world\n",
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"text": "Hello world"},
		},
		{
			name:       "upper case suffix",
			filename:   "CV.TXT",
			content:    "Hello world",
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"text": "Hello world"},
		},
		{
			name:       "docx is rejected regardless of content",
			filename:   "cv.docx",
			content:    "PK\x03\x04 real docx bytes",
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"error": kandraiErrors.ErrCodeUnsupportedFileType, "detail": extract.MsgDocxOnFrontend},
		},
		{
			name:       "csv is unsupported",
			filename:   "cv.csv",
			content:    "a,b,c",
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"error": kandraiErrors.ErrCodeUnsupportedFileType, "detail": extract.MsgUnsupported},
		},
		{
			name:       "pdf without text",
			filename:   "scan.pdf",
			content:    "%PDF-1.4",
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   map[string]any{"error": kandraiErrors.ErrCodeNoExtractableText, "detail": extract.MsgNoPDFText},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.upload(tt.filename, []byte(tt.content))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantBody, decodeBody(t, rec))
		})
	}
}

func TestExtractRequiresFileField(t *testing.T) {
	env := newTestEnv(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("note", "no file here")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := env.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = env.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"http://localhost:3000", true},
		{"https://kandrai.vercel.app", true},
		{"https://kandrai-git-feature-x.vercel.app", true},
		{"http://preview.vercel.app", false},
		{"https://vercel.app.evil.example", false},
		{"https://evil.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			req.Header.Set("Access-Control-Request-Headers", "content-type,x-custom-header")
			rec := env.do(req)

			if tt.allowed {
				assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
				assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Headers"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://kandrai.vercel.app")
	rec := env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://kandrai.vercel.app", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := env.do(req)
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)
}

func TestNewCORSRejectsBadPattern(t *testing.T) {
	_, err := newCORS(config.CORSConfig{AllowedOriginPattern: "("})
	assert.Error(t, err)
}
