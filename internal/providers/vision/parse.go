package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"server/internal/domain"
)

// Some checkpoints wrap their JSON in box-style control tokens.
var controlTokenPattern = regexp.MustCompile(`<\|[^|]+\|>`)

type rawAnalysis struct {
	Description json.RawMessage `json:"description"`
	Vocabulary  json.RawMessage `json:"vocabulary"`
}

// ParseAnalysis cleans the raw model output and decodes it into a normalized
// result. Parsing is idempotent: fenced, token-wrapped, and already-clean
// inputs all produce the same structure. A failure here is terminal for the
// job; no repair beyond the fixed cleanup heuristics is attempted.
func ParseAnalysis(raw string) (*domain.AnalysisResult, error) {
	cleaned := CleanModelOutput(raw)
	if cleaned == "" {
		return nil, errors.New("empty model output")
	}

	var parsed rawAnalysis
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	if len(parsed.Description) == 0 {
		return nil, errors.New("missing description field")
	}

	res := &domain.AnalysisResult{Vocabulary: []domain.VocabularyItem{}}

	// A looser response shape uses a bare string description; duplicate it
	// into both language fields.
	var desc domain.Description
	if err := json.Unmarshal(parsed.Description, &desc); err != nil {
		var plain string
		if err := json.Unmarshal(parsed.Description, &plain); err != nil {
			return nil, errors.New("unrecognized description shape")
		}
		desc = domain.Description{Target: plain, Native: plain}
	}
	res.Description = desc

	if len(parsed.Vocabulary) > 0 {
		var items []domain.VocabularyItem
		if err := json.Unmarshal(parsed.Vocabulary, &items); err == nil && items != nil {
			res.Vocabulary = items
		}
	}
	return res, nil
}

// CleanModelOutput strips markdown code fences, endpoint control tokens and
// surrounding whitespace from raw model text.
func CleanModelOutput(raw string) string {
	text := trimCodeFence(strings.TrimSpace(raw))
	text = controlTokenPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
