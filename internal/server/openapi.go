package server

import (
	"kandrai/internal/analysis"
)

func errorResponses(codes ...string) map[string]any {
	out := map[string]any{}
	descriptions := map[string]string{
		"400": "Invalid request or unsupported file",
		"422": "File parsed but contained no text",
		"500": "Unexpected failure",
		"502": "Upstream model failed or returned invalid JSON",
		"503": "Upstream credential not configured",
	}
	for _, code := range codes {
		out[code] = map[string]any{
			"description": descriptions[code],
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": "#/components/schemas/Error"},
				},
			},
		}
	}
	return out
}

func jsonResponse(description string, schema map[string]any) map[string]any {
	return map[string]any{
		"description": description,
		"content": map[string]any{
			"application/json": map[string]any{"schema": schema},
		},
	}
}

func withResponses(ok map[string]any, errs map[string]any) map[string]any {
	out := map[string]any{"200": ok}
	for code, resp := range errs {
		out[code] = resp
	}
	return out
}

// openAPIDocument describes the public routes for GET /openapi.json.
func openAPIDocument(version string) map[string]any {
	statusObject := map[string]any{"type": "object"}

	analyzeRequest := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"role": map[string]any{
				"type":    "string",
				"enum":    []string{string(analysis.RoleCandidate), string(analysis.RoleRecruiter)},
				"default": string(analysis.RoleRecruiter),
			},
			analysis.FieldJobDescription: map[string]any{"type": "string"},
			analysis.FieldCandidateText:  map[string]any{"type": "string"},
			"cv_text":                    map[string]any{"type": "string", "deprecated": true},
			"recruiter_doubt":            map[string]any{"type": "string"},
		},
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   serviceName,
			"version": version,
		},
		"paths": map[string]any{
			"/": map[string]any{
				"get": map[string]any{
					"summary":   "Service banner",
					"responses": withResponses(jsonResponse("Service banner", statusObject), nil),
				},
			},
			"/health": map[string]any{
				"get": map[string]any{
					"summary":   "Liveness and credential status",
					"responses": withResponses(jsonResponse("Health status", statusObject), nil),
				},
			},
			"/stats": map[string]any{
				"get": map[string]any{
					"summary":   "Runtime configuration and circuit breaker state",
					"responses": withResponses(jsonResponse("Statistics", statusObject), nil),
				},
			},
			"/analyze": map[string]any{
				"post": map[string]any{
					"summary": "Analyze a candidate against a job description",
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/json": map[string]any{"schema": analyzeRequest},
						},
					},
					"responses": withResponses(
						jsonResponse("Analysis report", analysis.ReportJSONSchema()),
						errorResponses("400", "500", "502", "503"),
					),
				},
			},
			"/extract": map[string]any{
				"post": map[string]any{
					"summary": "Extract plain text from a .txt or .pdf upload",
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"multipart/form-data": map[string]any{
								"schema": map[string]any{
									"type":     "object",
									"required": []string{"file"},
									"properties": map[string]any{
										"file": map[string]any{"type": "string", "format": "binary"},
									},
								},
							},
						},
					},
					"responses": withResponses(
						jsonResponse("Extracted text", map[string]any{
							"type":       "object",
							"properties": map[string]any{"text": map[string]any{"type": "string"}},
						}),
						errorResponses("400", "422", "500"),
					),
				},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"Error": map[string]any{
					"type":     "object",
					"required": []string{"error", "detail"},
					"properties": map[string]any{
						"error":  map[string]any{"type": "string"},
						"detail": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}
