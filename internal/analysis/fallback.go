package analysis

import (
	"encoding/json"
	"fmt"
	"slices"
)

const (
	EngineName          = "Recruitment Intelligence v3.1.1 | Enterprise"
	FallbackStatus      = "Guardrail Active | Insufficient Input"
	InsufficientLabel   = "Insufficient Data"
	fallbackVerdict     = "Insufficient data to evaluate this candidate."
	fallbackNotAssessed = "Not assessable without both inputs"
)

var fieldLabels = map[string]string{
	FieldJobDescription: "job description",
	FieldCandidateText:  "candidate text",
}

// BuildFallback returns the report served when required input is blank. The output
// depends only on missing, which must list the blank fields in canonical order.
func BuildFallback(missing []string) Report {
	if missing == nil {
		missing = []string{}
	}

	why := make([]string, 0, len(missing))
	raise := make([]string, 0, len(missing))
	for _, field := range missing {
		why = append(why, fmt.Sprintf("Missing required input: %s", field))
		raise = append(raise, fmt.Sprintf("Provide the %s", fieldLabels[field]))
	}

	verdict := fallbackVerdict
	label := InsufficientLabel
	var zero float64

	return Report{
		KandraiEngine: EngineName,
		EngineStatus:  FallbackStatus,
		InputQuality: InputQuality{
			CVPresent:     !slices.Contains(missing, FieldCandidateText),
			JDPresent:     !slices.Contains(missing, FieldJobDescription),
			MissingInputs: missing,
			Notes:         "Analysis skipped: both a job description and candidate text are required.",
		},
		ExecutiveSummary: ExecutiveSummary{
			OneLineVerdict:      fallbackVerdict,
			HireNowVsLater:      fallbackNotAssessed,
			ReplacementCostRisk: fallbackNotAssessed,
			ExecutiveAction:     "Supply the missing input and run the analysis again.",
		},
		MatchScore: MatchScore{
			Percentage:            0,
			Label:                 InsufficientLabel,
			ConfidenceIndex:       0,
			ConfidenceExplanation: "No model call was made because required input is missing.",
			MarketContext:         "",
			BrutalHonesty:         "Fit cannot be judged without both the role and the candidate.",
		},
		Evidence: Evidence{
			CVSignals:     []string{},
			JDSignals:     []string{},
			KeyMismatches: []string{},
		},
		SkillsGap: SkillsGap{
			MissingHardSkills:     []string{},
			MissingSoftSkills:     []string{},
			TransferableStrengths: []string{},
			UpskillingPlan7Days:   []string{},
			UpskillingPlan30Days:  []string{},
		},
		InterviewPlan: InterviewPlan{
			Top7Questions:    []string{},
			RedFlagsToVerify: []string{},
			WorkSampleTest:   "",
		},
		DecisionTrace: DecisionTrace{
			WhyThisScore:            why,
			WhatWouldRaiseScoreFast: raise,
		},

		MatchScoreSimple: &zero,
		RiskLevel:        &label,
		Verdict:          &verdict,
		Explanations:     why,
	}
}

// Result converts the report into the wire form used for model replies.
func (r Report) Result() (Result, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var out Result
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
