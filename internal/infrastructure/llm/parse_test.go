package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"newsdigest/internal/domain"
)

func TestParseAssessment(t *testing.T) {
	t.Parallel()

	reply := "Score: 85\nCategory: technology\nExplanation: Major model release with production impact."
	got := parseAssessment(reply)

	assert.Equal(t, 85, got.Score)
	assert.Equal(t, domain.CategoryTechnology, got.Category)
	assert.Equal(t, "Major model release with production impact.", got.Explanation)
}

func TestParseAssessmentCaseAndWhitespace(t *testing.T) {
	t.Parallel()

	reply := "score:  42\ncategory: TRENDS\nexplanation:   minor update "
	got := parseAssessment(reply)

	assert.Equal(t, 42, got.Score)
	assert.Equal(t, domain.CategoryTrends, got.Category)
	assert.Equal(t, "minor update", got.Explanation)
}

func TestParseAssessmentDefaults(t *testing.T) {
	t.Parallel()

	got := parseAssessment("I cannot evaluate this content.")

	assert.Equal(t, 50, got.Score, "missing score falls back to the midpoint")
	assert.Equal(t, domain.CategoryOther, got.Category)
	assert.Equal(t, "no explanation", got.Explanation)
}

func TestParseAssessmentClampsScore(t *testing.T) {
	t.Parallel()

	got := parseAssessment("Score: 250\nCategory: research")
	assert.Equal(t, 100, got.Score)
	assert.Equal(t, domain.CategoryResearch, got.Category)
}

func TestParseAssessmentUnknownCategory(t *testing.T) {
	t.Parallel()

	got := parseAssessment("Score: 60\nCategory: blockchain")
	assert.Equal(t, domain.CategoryOther, got.Category)
}

func TestParseAssessmentMultilineExplanation(t *testing.T) {
	t.Parallel()

	reply := "Score: 70\nCategory: cases\nExplanation: First line.\nSecond line with detail."
	got := parseAssessment(reply)
	assert.Equal(t, "First line.\nSecond line with detail.", got.Explanation)
}

func TestParseInsights(t *testing.T) {
	t.Parallel()

	reply := `Here is what stands out today:
1. Agent frameworks are converging on a common tool protocol.
2. Video generation moved from demos to paid products.
- Open weights releases keep narrowing the quality gap.
4. A fourth line that should be cut.`

	got := parseInsights(reply)

	assert.Equal(t, []string{
		"Agent frameworks are converging on a common tool protocol.",
		"Video generation moved from demos to paid products.",
		"Open weights releases keep narrowing the quality gap.",
	}, got)
}

func TestParseInsightsEmptyReply(t *testing.T) {
	t.Parallel()

	assert.Empty(t, parseInsights("No notable developments."))
}

func TestItemPromptTruncatesBody(t *testing.T) {
	t.Parallel()

	item := domain.NormalizedItem{
		Title: "Short headline",
		Body:  strings.Repeat("x", 2000),
	}
	got := itemPrompt(item, 1000)

	assert.Contains(t, got, "Title: Short headline")
	assert.Len(t, got, len("Title: Short headline\n\nContent: ")+1000)
}

func TestItemPromptTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	item := domain.NormalizedItem{
		Title: "Заголовок",
		Body:  strings.Repeat("данные ", 200),
	}
	got := itemPrompt(item, 1001)

	assert.True(t, utf8.ValidString(got))
}

func TestTopSummaryLimitsToFiveItems(t *testing.T) {
	t.Parallel()

	var top []domain.ScoredItem
	for i := 0; i < 7; i++ {
		top = append(top, domain.ScoredItem{
			NormalizedItem: domain.NormalizedItem{Title: "Item"},
			Explanation:    "why it matters",
		})
	}
	got := topSummary(top)

	assert.Equal(t, 5, strings.Count(got, "Item"))
	assert.Contains(t, got, "1. Item")
	assert.NotContains(t, got, "6. Item")
}
