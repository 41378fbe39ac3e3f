package output

import (
	"fmt"
	"io"

	"github.com/dshills/triage/internal/aggregate"
)

// MarkdownWriter outputs a PR-comment-friendly markdown listing.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, result *aggregate.Result) error {
	fmt.Fprintf(w, "## Review Feedback\n\n")

	// Summary table by kind
	counts := make(map[aggregate.Kind]int)
	for _, item := range result.Items {
		counts[item.Kind]++
	}
	fmt.Fprintf(w, "| Kind | Count |\n")
	fmt.Fprintf(w, "|------|-------|\n")
	for _, kind := range aggregate.Kinds() {
		if counts[kind] == 0 {
			continue
		}
		fmt.Fprintf(w, "| %s | %d |\n", kindHeadings[kind], counts[kind])
	}
	fmt.Fprintf(w, "| **Total** | **%d** |\n\n", result.Total)

	if result.Total == 0 {
		fmt.Fprintln(w, "Nothing outstanding. :white_check_mark:")
		return nil
	}

	for _, kind := range aggregate.Kinds() {
		if counts[kind] == 0 {
			continue
		}
		fmt.Fprintf(w, "<details>\n<summary>%s (%d)</summary>\n\n", kindHeadings[kind], counts[kind])
		for _, item := range result.Items {
			if item.Kind != kind {
				continue
			}
			m.writeItem(w, item)
		}
		fmt.Fprintf(w, "</details>\n\n")
	}

	return nil
}

func (m *MarkdownWriter) writeItem(w io.Writer, item aggregate.Record) {
	switch item.Kind {
	case aggregate.KindReviewComment:
		fmt.Fprintf(w, "- **`%s:%s`** [%s] %s: %s\n",
			item.Attr("path"), item.Attr("line"), item.Status,
			item.Attr("author"), firstLine(item.Attr("body"), 120))
	case aggregate.KindIssueComment:
		fmt.Fprintf(w, "- **%s**: %s\n",
			item.Attr("author"), firstLine(item.Attr("body"), 120))
	case aggregate.KindCheckRun, aggregate.KindStatusContext:
		fmt.Fprintf(w, "- **%s**: %s\n", item.Attr("name"), item.Status)
	case aggregate.KindIssue, aggregate.KindSecurityHotspot:
		fmt.Fprintf(w, "- **%s** `%s:%s` %s (`%s`)\n",
			item.Attr("severity"), item.Attr("component"), item.Attr("line"),
			firstLine(item.Attr("message"), 120), item.Key)
	}
}
