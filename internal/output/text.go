package output

import (
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/dshills/triage/internal/aggregate"
)

// TextWriter outputs a human-readable listing, one block per item, grouped
// by kind in the aggregator's declared order. Item numbers are part of the
// interface: people say "comment #3" in standups.
type TextWriter struct {
	// Details adds full comment bodies, diff excerpts, and the pre-filter
	// fetched count.
	Details bool
}

var kindHeadings = map[aggregate.Kind]string{
	aggregate.KindReviewComment:   "REVIEW COMMENTS",
	aggregate.KindIssueComment:    "ISSUE COMMENTS",
	aggregate.KindCheckRun:        "CHECKS",
	aggregate.KindStatusContext:   "STATUS CONTEXTS",
	aggregate.KindIssue:           "ISSUES",
	aggregate.KindSecurityHotspot: "SECURITY HOTSPOTS",
}

var kindLabels = map[aggregate.Kind]string{
	aggregate.KindReviewComment:   "Comment",
	aggregate.KindIssueComment:    "Comment",
	aggregate.KindCheckRun:        "Check",
	aggregate.KindStatusContext:   "Status",
	aggregate.KindIssue:           "Issue",
	aggregate.KindSecurityHotspot: "Hotspot",
}

func (t *TextWriter) Write(w io.Writer, result *aggregate.Result) error {
	ew := &errWriter{w: w}

	ew.printf("Found %d item", result.Total)
	if result.Total != 1 {
		ew.printf("s")
	}
	if t.Details && result.Fetched != result.Total {
		ew.printf(" (%d fetched before filters)", result.Fetched)
	}
	ew.println("")
	ew.println(strings.Repeat("─", 60))

	if result.Total == 0 {
		ew.println("Nothing to show.")
		return ew.err
	}

	n := 0
	var lastKind aggregate.Kind
	for _, item := range result.Items {
		if item.Kind != lastKind {
			ew.printf("\n%s\n", kindHeadings[item.Kind])
			ew.println(strings.Repeat("─", 40))
			lastKind = item.Kind
		}
		n++
		t.writeItem(ew, n, item)
	}

	return ew.err
}

func (t *TextWriter) writeItem(ew *errWriter, n int, item aggregate.Record) {
	ew.printf("\n%s #%d", kindLabels[item.Kind], n)
	if item.Status != "" {
		ew.printf("  [%s]", colorStatus(item.Status))
	}
	if item.Author == aggregate.AuthorBot {
		ew.printf("  (bot)")
	}
	ew.println("")

	switch item.Kind {
	case aggregate.KindReviewComment:
		ew.printf("  %s:%s  by %s\n", item.Attr("path"), item.Attr("line"), item.Attr("author"))
		t.writeBody(ew, item)
	case aggregate.KindIssueComment:
		ew.printf("  by %s at %s\n", item.Attr("author"), item.Attr("createdAt"))
		t.writeBody(ew, item)
	case aggregate.KindCheckRun:
		ew.printf("  %s  (workflow: %s)\n", item.Attr("name"), item.Attr("workflow"))
		if t.Details {
			ew.printf("  started: %s  completed: %s\n", item.Attr("startedAt"), item.Attr("completedAt"))
		}
	case aggregate.KindStatusContext:
		ew.printf("  %s  by %s\n", item.Attr("name"), item.Attr("author"))
	case aggregate.KindIssue, aggregate.KindSecurityHotspot:
		ew.printf("  %s  %s:%s\n", colorSeverity(item.Attr("severity")), item.Attr("component"), item.Attr("line"))
		ew.printf("  %s  (rule: %s, key: %s)\n", item.Attr("message"), item.Attr("rule"), item.Key)
	}
	ew.printf("  %s\n", item.Attr("url"))
}

func (t *TextWriter) writeBody(ew *errWriter, item aggregate.Record) {
	body := item.Attr("body")
	if !t.Details {
		body = firstLine(body, 100)
	}
	for _, line := range strings.Split(body, "\n") {
		ew.printf("  > %s\n", line)
	}
	if t.Details && item.Kind == aggregate.KindReviewComment {
		hunk := item.Attr("diffHunk")
		if hunk != aggregate.NotAvailable {
			for _, line := range strings.Split(hunk, "\n") {
				ew.printf("  | %s\n", line)
			}
		}
	}
}

func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " …"
	}
	if runes := []rune(s); len(runes) > max {
		s = string(runes[:max]) + "…"
	}
	return s
}

func colorStatus(status string) string {
	switch status {
	case "success", "resolved":
		return pterm.Green(status)
	case "failure", "error", "timed_out", "action_required":
		return pterm.Red(status)
	case "pending", "queued", "in_progress", "open", "to_review", "confirmed":
		return pterm.Yellow(status)
	default:
		return pterm.Gray(status)
	}
}

func colorSeverity(severity string) string {
	switch severity {
	case "BLOCKER", "CRITICAL", "HIGH":
		return pterm.Red(severity)
	case "MAJOR", "MEDIUM":
		return pterm.Yellow(severity)
	case aggregate.NotAvailable:
		return severity
	default:
		return pterm.Gray(severity)
	}
}
