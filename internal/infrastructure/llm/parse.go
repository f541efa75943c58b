package llm

import (
	"regexp"
	"strconv"
	"strings"

	"newsdigest/internal/domain"
	"newsdigest/internal/ports"
	"newsdigest/internal/textutil"
)

var (
	scoreExpr       = regexp.MustCompile(`(?mi)^score:\s*(\d+)`)
	categoryExpr    = regexp.MustCompile(`(?mi)^category:\s*(\S+)`)
	explanationExpr = regexp.MustCompile(`(?msi)^explanation:\s*(.+)`)
	numberingExpr   = regexp.MustCompile(`^(\d+\.|-)\s*`)
)

// parseAssessment extracts score, category, and explanation from a
// provider reply. A reply missing the score line falls back to the
// neutral midpoint rather than failing the item.
func parseAssessment(reply string) ports.Assessment {
	assessment := ports.Assessment{
		Score:       50,
		Category:    domain.CategoryOther,
		Explanation: "no explanation",
	}

	if m := scoreExpr.FindStringSubmatch(reply); m != nil {
		if score, err := strconv.Atoi(m[1]); err == nil {
			if score < 0 {
				score = 0
			}
			if score > 100 {
				score = 100
			}
			assessment.Score = score
		}
	}

	if m := categoryExpr.FindStringSubmatch(reply); m != nil {
		assessment.Category = domain.ParseCategory(strings.ToLower(strings.TrimSpace(m[1])))
	}

	if m := explanationExpr.FindStringSubmatch(reply); m != nil {
		assessment.Explanation = strings.TrimSpace(m[1])
	}

	return assessment
}

// parseInsights pulls at most three numbered or dashed lines out of an
// insights reply.
func parseInsights(reply string) []string {
	var insights []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !numberingExpr.MatchString(line) {
			continue
		}
		insight := strings.TrimSpace(numberingExpr.ReplaceAllString(line, ""))
		if insight != "" {
			insights = append(insights, insight)
		}
		if len(insights) == 3 {
			break
		}
	}
	return insights
}

// itemPrompt renders one item into the importance prompt's content slot.
func itemPrompt(item domain.NormalizedItem, maxBody int) string {
	body := textutil.Truncate(item.Body, maxBody)
	return "Title: " + item.Title + "\n\nContent: " + body
}

// topSummary renders headline items for the insights prompt.
func topSummary(top []domain.ScoredItem) string {
	var b strings.Builder
	for i, item := range top {
		if i == 5 {
			break
		}
		b.WriteString(strconv.Itoa(i+1) + ". " + item.Title + "\n")
		b.WriteString(textutil.Truncate(item.Explanation, 200) + "\n\n")
	}
	return b.String()
}
