package domain

import "testing"

func TestNormalizeDifficulty(t *testing.T) {
	cases := []struct {
		in   string
		want Difficulty
	}{
		{"beginner", DifficultyBeginner},
		{"Beginner", DifficultyBeginner},
		{"medium", DifficultyMedium},
		{"ADVANCED", DifficultyAdvanced},
		{"", DifficultyBeginner},
		{"expert", DifficultyBeginner},
	}
	for _, c := range cases {
		if got := NormalizeDifficulty(c.in); got != c.want {
			t.Errorf("NormalizeDifficulty(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	if LessonStatusPending.IsTerminal() {
		t.Fatal("pending must not be terminal")
	}
	if !LessonStatusCompleted.IsTerminal() || !LessonStatusFailed.IsTerminal() {
		t.Fatal("completed and failed must be terminal")
	}
}

func TestDecodeResultEmptyVocabulary(t *testing.T) {
	res, err := DecodeResult([]byte(`{"description":{"target":"a cat","native":"un gato"}}`))
	if err != nil {
		t.Fatalf("DecodeResult returned error: %v", err)
	}
	if res.Vocabulary == nil {
		t.Fatal("expected vocabulary to default to an empty slice")
	}
	if res.Description.Target != "a cat" {
		t.Fatalf("Description.Target = %q", res.Description.Target)
	}
}

func TestDecodeResultNil(t *testing.T) {
	res, err := DecodeResult(nil)
	if err != nil {
		t.Fatalf("DecodeResult returned error: %v", err)
	}
	if res != nil {
		t.Fatal("expected nil result for empty payload")
	}
}

func TestNormalizeLanguageTag(t *testing.T) {
	if got := NormalizeLanguageTag("EN", "en"); got != "en" {
		t.Fatalf("NormalizeLanguageTag(EN) = %q, want en", got)
	}
	if got := NormalizeLanguageTag("zh-cn", "en"); got != "zh-CN" {
		t.Fatalf("NormalizeLanguageTag(zh-cn) = %q, want zh-CN", got)
	}
	if got := NormalizeLanguageTag("not a tag", "en"); got != "en" {
		t.Fatalf("NormalizeLanguageTag fallback = %q, want en", got)
	}
	if got := NormalizeLanguageTag("", "zh"); got != "zh" {
		t.Fatalf("NormalizeLanguageTag empty = %q, want zh", got)
	}
}
