package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// LessonStatus enumerates the lifecycle states of an analysis job.
type LessonStatus string

const (
	LessonStatusPending   LessonStatus = "pending"
	LessonStatusCompleted LessonStatus = "completed"
	LessonStatusFailed    LessonStatus = "failed"
)

// IsTerminal reports whether the status is final. Terminal statuses never
// transition again.
func (s LessonStatus) IsTerminal() bool {
	return s == LessonStatusCompleted || s == LessonStatusFailed
}

// Difficulty enumerates supported learner levels.
type Difficulty string

const (
	DifficultyBeginner Difficulty = "beginner"
	DifficultyMedium   Difficulty = "medium"
	DifficultyAdvanced Difficulty = "advanced"
)

// NormalizeDifficulty maps free-form input onto a supported level,
// defaulting to beginner.
func NormalizeDifficulty(raw string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(raw))) {
	case DifficultyMedium:
		return DifficultyMedium
	case DifficultyAdvanced:
		return DifficultyAdvanced
	default:
		return DifficultyBeginner
	}
}

// Description carries the generated description in both languages.
type Description struct {
	Target string `json:"target"`
	Native string `json:"native"`
}

// VocabularyItem is a single salient word extracted from the image.
type VocabularyItem struct {
	Word          string `json:"word"`
	Pronunciation string `json:"pronunciation"`
	Category      string `json:"category"`
	Translation   string `json:"translation"`
}

// AnalysisResult is the structured payload produced by a completed analysis.
type AnalysisResult struct {
	Description Description      `json:"description"`
	Vocabulary  []VocabularyItem `json:"vocabulary"`
}

// Lesson is the durable record of one analysis job: owner, source image,
// status, result and the saved flag that pins its image to the permanent
// storage tier. (user_id, image_url) is the dedup key.
type Lesson struct {
	ID             string
	UserID         string
	ImageURL       string
	Status         LessonStatus
	Result         *AnalysisResult
	ErrorDetail    string
	TargetLanguage string
	NativeLanguage string
	Difficulty     Difficulty
	IsSaved        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ResultJSON marshals the result payload for storage. Returns nil when the
// lesson has no result yet.
func (l *Lesson) ResultJSON() []byte {
	if l == nil || l.Result == nil {
		return nil
	}
	raw, err := json.Marshal(l.Result)
	if err != nil {
		return nil
	}
	return raw
}

// DecodeResult parses a stored result payload. Empty input yields nil.
func DecodeResult(raw []byte) (*AnalysisResult, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var res AnalysisResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, err
	}
	if res.Vocabulary == nil {
		res.Vocabulary = []VocabularyItem{}
	}
	return &res, nil
}
