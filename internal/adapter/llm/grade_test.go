package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGrade_StandardFormat(t *testing.T) {
	t.Parallel()

	text := "Score: 85/100\nGood translation, minor article mistake."

	result := ParseGrade(text)

	require.NotNil(t, result.Score)
	assert.Equal(t, 85, *result.Score)
	assert.Equal(t, text, result.Feedback)
}

func TestParseGrade_ToleratesCaseAndSpacing(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want int
	}{
		{"lowercase", "score: 70/100 solid work", 70},
		{"spaces around slash", "Score: 90 / 100", 90},
		{"no space after colon", "Score:100/100", 100},
		{"embedded in prose", "Nice try. Score : 55/100. Watch the word order.", 55},
		{"zero", "Score: 0/100 — not a translation of this sentence", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := ParseGrade(tc.text)
			require.NotNil(t, result.Score, "expected a score in %q", tc.text)
			assert.Equal(t, tc.want, *result.Score)
		})
	}
}

func TestParseGrade_NoScoreLine(t *testing.T) {
	t.Parallel()

	result := ParseGrade("The translation captures the meaning well.")

	assert.Nil(t, result.Score)
	assert.Equal(t, "The translation captures the meaning well.", result.Feedback)
}

func TestParseGrade_OutOfRangeScore(t *testing.T) {
	t.Parallel()

	result := ParseGrade("Score: 150/100 incredible!")

	assert.Nil(t, result.Score)
	assert.NotEmpty(t, result.Feedback)
}

func TestParseGrade_WrongDenominator(t *testing.T) {
	t.Parallel()

	result := ParseGrade("Score: 4/5")

	assert.Nil(t, result.Score)
}

func TestParseGrade_TrimsFeedback(t *testing.T) {
	t.Parallel()

	result := ParseGrade("\n  Score: 60/100\n\n")

	require.NotNil(t, result.Score)
	assert.Equal(t, "Score: 60/100", result.Feedback)
}
