package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"kandrai/internal/errors"
)

// Role is the perspective the report is written for.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleRecruiter Role = "recruiter"
)

// Input field names as they appear on the wire and in missing_inputs.
const (
	FieldJobDescription = "job_description"
	FieldCandidateText  = "candidate_text"
)

// Request is the body of POST /analyze.
type Request struct {
	Role           Role   `json:"role,omitempty"`
	JobDescription string `json:"job_description"`
	CandidateText  string `json:"candidate_text"`
	RecruiterDoubt string `json:"recruiter_doubt,omitempty"`

	// CVText is the field name older clients send instead of candidate_text.
	CVText string `json:"cv_text,omitempty"`
}

// Normalize applies defaults: recruiter role and the cv_text alias.
func (r *Request) Normalize() {
	r.Role = Role(strings.ToLower(strings.TrimSpace(string(r.Role))))
	if r.Role == "" {
		r.Role = RoleRecruiter
	}
	if strings.TrimSpace(r.CandidateText) == "" && strings.TrimSpace(r.CVText) != "" {
		r.CandidateText = r.CVText
	}
	r.CVText = ""
}

// Validate rejects structurally invalid requests. Blank texts are not an error.
func (r Request) Validate() error {
	switch r.Role {
	case RoleCandidate, RoleRecruiter:
		return nil
	default:
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("role must be %q or %q, got %q", RoleCandidate, RoleRecruiter, r.Role), nil)
	}
}

// MissingInputs lists the blank required fields, job description first.
func (r Request) MissingInputs() []string {
	missing := []string{}
	if strings.TrimSpace(r.JobDescription) == "" {
		missing = append(missing, FieldJobDescription)
	}
	if strings.TrimSpace(r.CandidateText) == "" {
		missing = append(missing, FieldCandidateText)
	}
	return missing
}

// Report is the typed form of the analysis object. The fallback is built from it and
// the text formatters read it; replies from the model are passed on as Result so
// fields the model adds are never lost.
type Report struct {
	KandraiEngine    string           `json:"kandrai_engine"`
	EngineStatus     string           `json:"engine_status"`
	InputQuality     InputQuality     `json:"input_quality"`
	ExecutiveSummary ExecutiveSummary `json:"executive_summary"`
	MatchScore       MatchScore       `json:"match_score"`
	Evidence         Evidence         `json:"evidence"`
	SkillsGap        SkillsGap        `json:"skills_gap"`
	InterviewPlan    InterviewPlan    `json:"interview_plan"`
	DecisionTrace    DecisionTrace    `json:"decision_trace"`

	MatchScoreSimple *float64 `json:"match_score_simple"`
	RiskLevel        *string  `json:"risk_level"`
	Verdict          *string  `json:"verdict"`
	Explanations     []string `json:"explanations"`
}

type InputQuality struct {
	CVPresent     bool     `json:"cv_present"`
	JDPresent     bool     `json:"jd_present"`
	MissingInputs []string `json:"missing_inputs"`
	Notes         string   `json:"notes"`
}

type ExecutiveSummary struct {
	OneLineVerdict      string `json:"one_line_verdict"`
	HireNowVsLater      string `json:"hire_now_vs_later"`
	ReplacementCostRisk string `json:"replacement_cost_risk"`
	ExecutiveAction     string `json:"executive_action"`
}

type MatchScore struct {
	Percentage            float64 `json:"percentage"`
	Label                 string  `json:"label"`
	ConfidenceIndex       float64 `json:"confidence_index"`
	ConfidenceExplanation string  `json:"confidence_explanation"`
	MarketContext         string  `json:"market_context"`
	BrutalHonesty         string  `json:"brutal_honesty"`
}

type Evidence struct {
	CVSignals     []string `json:"cv_signals"`
	JDSignals     []string `json:"jd_signals"`
	KeyMismatches []string `json:"key_mismatches"`
}

type SkillsGap struct {
	MissingHardSkills     []string `json:"missing_hard_skills"`
	MissingSoftSkills     []string `json:"missing_soft_skills"`
	TransferableStrengths []string `json:"transferable_strengths"`
	UpskillingPlan7Days   []string `json:"upskilling_plan_7_days"`
	UpskillingPlan30Days  []string `json:"upskilling_plan_30_days"`
}

type InterviewPlan struct {
	Top7Questions    []string `json:"top_7_questions"`
	RedFlagsToVerify []string `json:"red_flags_to_verify"`
	WorkSampleTest   string   `json:"work_sample_test"`
}

type DecisionTrace struct {
	WhyThisScore            []string `json:"why_this_score"`
	WhatWouldRaiseScoreFast []string `json:"what_would_raise_score_fast"`
}

// Result is an analysis object as returned to clients. Keys are kept as raw JSON.
type Result map[string]json.RawMessage

// Report decodes r into the typed view. Values of an unexpected type are left
// zero and reported through the error; the rest of the report is still filled.
func (r Result) Report() (Report, error) {
	var report Report
	b, err := json.Marshal(r)
	if err != nil {
		return report, err
	}
	if err := json.Unmarshal(b, &report); err != nil {
		return report, fmt.Errorf("decode analysis report: %w", err)
	}
	return report, nil
}
