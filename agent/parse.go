package agent

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/hupe1980/agentcouncil/core"
)

var errNoJSON = errors.New("no JSON object in model output")

// extractJSON returns the outermost JSON object of text, ignoring code fences
// and prose around it.
func extractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')

	if start < 0 || end <= start {
		return "", errNoJSON
	}

	return text[start : end+1], nil
}

// decodeJSON unmarshals the JSON object embedded in text into T. Malformed
// objects (trailing commas, single quotes, truncation) are repaired once.
func decodeJSON[T any](text string) (T, error) {
	var out T

	raw, err := extractJSON(text)
	if err != nil {
		start := strings.IndexByte(text, '{')
		if start < 0 {
			return out, err
		}

		// truncated output
		raw = text[start:]
	}

	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		fixed, rerr := jsonrepair.JSONRepair(raw)
		if rerr != nil {
			return out, err
		}

		if err := json.Unmarshal([]byte(fixed), &out); err != nil {
			return out, err
		}
	}

	return out, nil
}

// parseRisk maps free text to a Risk, defaulting to medium.
func parseRisk(s string) core.Risk {
	switch core.Risk(strings.ToLower(strings.TrimSpace(s))) {
	case core.RiskLow:
		return core.RiskLow
	case core.RiskHigh:
		return core.RiskHigh
	default:
		return core.RiskMedium
	}
}
