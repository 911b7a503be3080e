package reasoning

import (
	"encoding/json"
	"strings"

	"github.com/harunnryd/sabaki/internal/action"
)

type parseMode string

const (
	parseModeJSONObject parseMode = "json_object"
	parseModeJSONArray  parseMode = "json_array"
	parseModeExtracted  parseMode = "json_extracted"
	parseModePlainText  parseMode = "plain_text"
)

type proposalPayload struct {
	Thought   string          `json:"thought"`
	Reasoning string          `json:"reasoning"`
	Actions   []actionPayload `json:"actions"`
	Steps     []actionPayload `json:"steps"`
}

type actionPayload struct {
	Kind        string          `json:"kind"`
	Type        string          `json:"type"`
	Tool        string          `json:"tool"`
	Description string          `json:"description"`
	Args        json.RawMessage `json:"args"`
	Arguments   json.RawMessage `json:"arguments"`
}

// parseProposal reads a model reply into a thought and actions. Replies with
// no JSON at all are treated as a thought with nothing to run.
func parseProposal(raw string) (string, []action.Proposed, parseMode, bool) {
	normalized := cleanModelJSON(raw)
	if normalized == "" {
		return "", nil, parseModePlainText, false
	}

	if thought, actions, ok := parseObject(normalized); ok {
		return thought, actions, parseModeJSONObject, true
	}
	if actions, ok := parseArray(normalized); ok {
		return "", actions, parseModeJSONArray, true
	}

	if extracted := extractFirstBalancedJSON(normalized, '{', '}'); extracted != "" {
		if thought, actions, ok := parseObject(extracted); ok {
			return thought, actions, parseModeExtracted, true
		}
	}
	if extracted := extractFirstBalancedJSON(normalized, '[', ']'); extracted != "" {
		if actions, ok := parseArray(extracted); ok {
			return "", actions, parseModeExtracted, true
		}
	}

	if strings.ContainsAny(normalized, "{[") {
		return "", nil, parseModePlainText, false
	}
	return normalized, nil, parseModePlainText, true
}

func parseObject(raw string) (string, []action.Proposed, bool) {
	var payload proposalPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", nil, false
	}

	thought := strings.TrimSpace(payload.Thought)
	if thought == "" {
		thought = strings.TrimSpace(payload.Reasoning)
	}
	items := payload.Actions
	if len(items) == 0 {
		items = payload.Steps
	}
	if thought == "" && len(items) == 0 && payload.Actions == nil && payload.Steps == nil {
		return "", nil, false
	}
	return thought, normalizeActions(items), true
}

func parseArray(raw string) ([]action.Proposed, bool) {
	var items []actionPayload
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, false
	}
	actions := normalizeActions(items)
	return actions, len(actions) > 0
}

func normalizeActions(items []actionPayload) []action.Proposed {
	out := make([]action.Proposed, 0, len(items))
	for _, item := range items {
		kind := firstNonEmpty(item.Kind, item.Type, item.Tool)
		kind = action.NormalizeKind(kind)
		if kind == "" {
			continue
		}
		args := item.Args
		if len(args) == 0 {
			args = item.Arguments
		}
		out = append(out, action.Proposed{
			Kind:        kind,
			Description: strings.TrimSpace(item.Description),
			Args:        args,
		})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func cleanModelJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func extractFirstBalancedJSON(input string, open, close byte) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return strings.TrimSpace(input[start : i+1])
			}
		}
	}
	return ""
}
