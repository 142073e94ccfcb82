package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ReportJSONSchema describes the object the system prompt asks the model for.
// Only keys and value types are checked; extra keys are allowed.
func ReportJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	num := map[string]any{"type": "number"}
	boolean := map[string]any{"type": "boolean"}
	list := map[string]any{"type": "array"}

	object := func(props map[string]any) map[string]any {
		required := make([]string, 0, len(props))
		for key := range props {
			required = append(required, key)
		}
		return map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		}
	}

	return object(map[string]any{
		"kandrai_engine": str,
		"engine_status":  str,
		"input_quality": object(map[string]any{
			"cv_present":     boolean,
			"jd_present":     boolean,
			"missing_inputs": list,
			"notes":          str,
		}),
		"executive_summary": object(map[string]any{
			"one_line_verdict":      str,
			"hire_now_vs_later":     str,
			"replacement_cost_risk": str,
			"executive_action":      str,
		}),
		"match_score": object(map[string]any{
			"percentage":             map[string]any{"type": "number", "minimum": 0, "maximum": 100},
			"label":                  str,
			"confidence_index":       num,
			"confidence_explanation": str,
			"market_context":         str,
			"brutal_honesty":         str,
		}),
		"evidence": object(map[string]any{
			"cv_signals":     list,
			"jd_signals":     list,
			"key_mismatches": list,
		}),
		"skills_gap": object(map[string]any{
			"missing_hard_skills":     list,
			"missing_soft_skills":     list,
			"transferable_strengths":  list,
			"upskilling_plan_7_days":  list,
			"upskilling_plan_30_days": list,
		}),
		"interview_plan": object(map[string]any{
			"top_7_questions":     list,
			"red_flags_to_verify": list,
			"work_sample_test":    str,
		}),
		"decision_trace": object(map[string]any{
			"why_this_score":              list,
			"what_would_raise_score_fast": list,
		}),
	})
}

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func reportSchema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		b, err := json.Marshal(ReportJSONSchema())
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("report.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("report.json")
	})
	return compiledSchema, compileErr
}

// CheckShape reports how data deviates from the report schema. It never alters data.
func CheckShape(data []byte) error {
	schema, err := reportSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
