package domain

import (
	"strings"

	"golang.org/x/text/language"
)

// NormalizeLanguageTag canonicalizes a BCP 47 language tag such as "en" or
// "zh-CN". Unparseable or empty input falls back to the provided default.
func NormalizeLanguageTag(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return fallback
	}
	return tag.String()
}
