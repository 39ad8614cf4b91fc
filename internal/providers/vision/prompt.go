package vision

import (
	"fmt"
	"strings"

	"server/internal/domain"
)

// BuildInstruction assembles the system instruction for one analysis call.
// The register of the generated description follows the difficulty level and
// the response is mandated to be a single JSON object.
func BuildInstruction(targetLanguage, nativeLanguage string, difficulty domain.Difficulty) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "You are a language learning assistant. Analyze the image and provide a learning experience tailored for a %s level student:\n", difficulty)
	fmt.Fprintf(sb, "1. A detailed description in the target language (%s).\n", targetLanguage)
	sb.WriteString("   - Beginner: Simple words, short sentences.\n")
	sb.WriteString("   - Medium: Natural flow, some intermediate vocabulary.\n")
	sb.WriteString("   - Advanced: Complex structures, idiomatic expressions, and nuances.\n")
	fmt.Fprintf(sb, "2. A comprehensive list of key vocabulary words found in the image in the target language (%s) appropriate for the %s level. Include all relevant objects and concepts.\n", targetLanguage, difficulty)
	fmt.Fprintf(sb, "3. For each word, include: word (in %s), pronunciation, category, and translation in the native language (%s).\n", targetLanguage, nativeLanguage)
	fmt.Fprintf(sb, "4. Also provide a translation of the full description into the native language (%s).\n", nativeLanguage)
	sb.WriteString("\nRespond ONLY in JSON format:\n")
	sb.WriteString(`{
  "description": {
    "target": "...",
    "native": "..."
  },
  "vocabulary": [
    {
      "word": "...",
      "pronunciation": "...",
      "category": "...",
      "translation": "..."
    }
  ]
}`)
	return sb.String()
}
