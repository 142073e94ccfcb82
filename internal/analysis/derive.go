package analysis

import (
	"bytes"
	"encoding/json"

	"kandrai/internal/errors"
)

var (
	jsonNull       = json.RawMessage("null")
	jsonEmptyArray = json.RawMessage("[]")
)

// ParseReply decodes a model reply into a Result and adds the derived fields.
// Anything other than a JSON object is an upstream failure.
func ParseReply(content string) (Result, error) {
	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIResponseInvalid,
			"AI provider returned invalid JSON", err)
	}
	// "null" decodes into a nil map without error.
	if result == nil {
		return nil, errors.NewAIError(errors.ErrCodeAIResponseInvalid,
			"AI provider returned JSON that is not an object", nil)
	}
	Derive(result)
	return result, nil
}

// Derive copies the nested values the UI shows at top level. Missing parents or keys
// yield null, except explanations which defaults to an empty list.
func Derive(r Result) {
	r["match_score_simple"] = orNull(r.lookup("match_score", "percentage"))
	r["risk_level"] = orNull(r.lookup("match_score", "label"))
	r["verdict"] = orNull(r.lookup("executive_summary", "one_line_verdict"))

	explanations := r.lookup("decision_trace", "why_this_score")
	if explanations == nil || isNull(explanations) {
		explanations = jsonEmptyArray
	}
	r["explanations"] = explanations
}

// lookup walks nested objects. It returns nil when a step is absent or not an object.
func (r Result) lookup(path ...string) json.RawMessage {
	current := map[string]json.RawMessage(r)
	for i, key := range path {
		value, ok := current[key]
		if !ok {
			return nil
		}
		if i == len(path)-1 {
			return value
		}
		next, ok := asObject(value)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

func orNull(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return jsonNull
	}
	return raw
}
