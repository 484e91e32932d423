package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decision is the structured verdict a reasoning model returns for a
// pruning recommendation review.
type Decision struct {
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Valid decision values
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
	DecisionModify  = "modify"
)

// ParseDecision extracts a Decision from a model completion. Models
// frequently wrap JSON in markdown fences or surrounding prose, so the
// first JSON object found in the text is used.
func ParseDecision(completion string) (*Decision, error) {
	raw := extractJSON(completion)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object found in completion")
	}

	var d Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("failed to parse decision: %w", err)
	}

	d.Decision = strings.ToLower(strings.TrimSpace(d.Decision))
	switch d.Decision {
	case DecisionApprove, DecisionReject, DecisionModify:
	default:
		return nil, fmt.Errorf("unknown decision value: %q", d.Decision)
	}

	if d.Confidence < 0 || d.Confidence > 1 {
		return nil, fmt.Errorf("confidence out of range: %f", d.Confidence)
	}

	return &d, nil
}

// extractJSON returns the first balanced top-level JSON object in s
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
