package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"studi/internal/models"
)

var codeBlockPattern = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```")

// ExtractJSON pulls the first well-formed JSON object out of text that may
// wrap it in markdown fences or surrounding prose. It returns the empty
// string when no balanced object is present.
func ExtractJSON(text string) string {
	if m := codeBlockPattern.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	// Scan for the matching close brace, honoring strings and escapes.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
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
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}

// ParseQuizJSON extracts and decodes a quiz payload from raw provider output,
// then validates its structure. All failures wrap ErrGenerationFailed.
func ParseQuizJSON(raw string) (*models.Quiz, error) {
	jsonText := ExtractJSON(raw)
	if jsonText == "" {
		return nil, fmt.Errorf("%w: no JSON object found in response", ErrGenerationFailed)
	}

	var quiz models.Quiz
	if err := json.Unmarshal([]byte(jsonText), &quiz); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrGenerationFailed, err)
	}

	// Default the question type when the provider omits it.
	for i := range quiz.Questions {
		if quiz.Questions[i].Type == "" {
			if len(quiz.Questions[i].CorrectAnswers) > 1 {
				quiz.Questions[i].Type = models.QuestionTypeMultiple
			} else {
				quiz.Questions[i].Type = models.QuestionTypeSingle
			}
		}
	}

	if err := quiz.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return &quiz, nil
}
