package llm

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

// scoreRe matches the grader's "Score: N/100" token anywhere in the text,
// tolerating case and spacing variations.
var scoreRe = regexp.MustCompile(`(?i)score\s*:\s*(\d{1,3})\s*/\s*100`)

// ParseGrade extracts the structured result from the grader's free text.
// When no parsable score is present the score stays nil and the full text is
// kept as feedback so a human can adjudicate.
func ParseGrade(text string) domain.GradeResult {
	result := domain.GradeResult{Feedback: strings.TrimSpace(text)}

	m := scoreRe.FindStringSubmatch(text)
	if m == nil {
		return result
	}

	score, err := strconv.Atoi(m[1])
	if err != nil || !domain.ValidScore(score) {
		return result
	}

	result.Score = &score
	return result
}
