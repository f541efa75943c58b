// Package render formats finished digests for delivery surfaces. It
// consumes Digest values only and knows nothing about the pipeline.
package render

import (
	"fmt"
	"strings"

	"newsdigest/internal/domain"
	"newsdigest/internal/textutil"
)

const maxPerCategory = 3

// Telegram renders a digest as a MarkdownV2 message.
func Telegram(d *domain.Digest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Daily Digest — %s*\n\n", escape(d.GeneratedAt.Format("02.01.2006")))

	if len(d.TopItems) == 0 {
		b.WriteString(escape("No important news found today. Sources may be quiet or unavailable; try again later."))
		return b.String()
	}

	fmt.Fprintf(&b, "*Top %d items:*\n\n", len(d.TopItems))
	for i, item := range d.TopItems {
		fmt.Fprintf(&b, "*%d\\. %s*\n", i+1, escape(item.Title))
		if item.Explanation != "" {
			fmt.Fprintf(&b, "%s\n", escape(truncate(item.Explanation, 200)))
		}
		if item.URL != "" {
			fmt.Fprintf(&b, "[Read more](%s)\n", item.URL)
		}
		fmt.Fprintf(&b, "Score: %d · %s\n\n", item.Score, escape(strings.Join(item.SourceNames, ", ")))
	}

	if len(d.Insights) > 0 {
		b.WriteString("*Takeaways:*\n")
		for _, insight := range d.Insights {
			fmt.Fprintf(&b, "• %s\n", escape(insight))
		}
		b.WriteString("\n")
	}

	if len(d.Remainder) > 0 {
		b.WriteString("*More by category:*\n\n")
		for _, category := range domain.Categories() {
			items := d.Remainder[category]
			if len(items) == 0 {
				continue
			}
			fmt.Fprintf(&b, "*%s:*\n", escape(string(category)))
			for i, item := range items {
				if i == maxPerCategory {
					break
				}
				fmt.Fprintf(&b, "  • %s\n", escape(truncate(item.Title, 60)))
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

// Markdown renders a digest as a plain markdown document for archival.
func Markdown(d *domain.Digest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Daily Digest — %s\n\n", d.GeneratedAt.Format("02.01.2006"))
	fmt.Fprintf(&b, "Generated in %s from %d sources (%d items considered, %d included).\n\n",
		d.Elapsed.Round(1e6), d.Counts.Sources, d.Counts.Considered, d.Counts.Included)

	for i, item := range d.TopItems {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, item.Title)
		fmt.Fprintf(&b, "**Score:** %d/100 · **Category:** %s\n\n", item.Score, item.Category)
		if item.Explanation != "" {
			fmt.Fprintf(&b, "%s\n\n", item.Explanation)
		}
		if item.URL != "" {
			fmt.Fprintf(&b, "Source: [%s](%s)\n\n", strings.Join(item.SourceNames, ", "), item.URL)
		}
	}

	if len(d.Insights) > 0 {
		b.WriteString("## Takeaways\n\n")
		for _, insight := range d.Insights {
			fmt.Fprintf(&b, "- %s\n", insight)
		}
		b.WriteString("\n")
	}

	for _, category := range domain.Categories() {
		items := d.Remainder[category]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", category)
		for _, item := range items {
			fmt.Fprintf(&b, "- **%s** (%d/100)\n", item.Title, item.Score)
		}
		b.WriteString("\n")
	}

	return b.String()
}

var mdV2Escaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
)

func escape(s string) string {
	return mdV2Escaper.Replace(s)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return textutil.Truncate(s, max) + "..."
}
