package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/wudi/drawcheck/validation"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderMarkdown renders the report as a human-readable markdown summary.
// Domains render in lexical order so output is stable across runs.
func (r *Report) RenderMarkdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Validation Report %s\n\n", r.RequestID)
	fmt.Fprintf(&b, "Status: **%s**", r.Status)
	if r.DurationMs > 0 {
		fmt.Fprintf(&b, " (%d ms)", r.DurationMs)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "| Checks | Passed | Failed | Warnings | Critical | Pass rate |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %.1f%% |\n\n",
		r.Aggregate.TotalChecks, r.Aggregate.Passed, r.Aggregate.Failed,
		r.Aggregate.Warnings, r.Aggregate.CriticalFailures, r.Aggregate.PassRate)

	domains := make([]string, 0, len(r.PerDomain))
	for d := range r.PerDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	for _, d := range domains {
		res := r.PerDomain[d]
		fmt.Fprintf(&b, "## %s\n\n", d)
		fmt.Fprintf(&b, "%d checks: %d passed, %d failed, %d warnings\n\n",
			res.TotalChecks, res.Passed, res.Failed, res.Warnings)
		for _, iss := range res.Issues {
			b.WriteString(renderIssue(iss))
		}
		b.WriteByte('\n')
	}

	if len(r.Notes) > 0 {
		b.WriteString("## Notes\n\n")
		for _, n := range r.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func renderIssue(iss validation.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- **%s** `%s` %s", iss.Severity, iss.CheckType, iss.Message)
	if iss.Location != nil {
		fmt.Fprintf(&b, " (page %d)", iss.Location.Page+1)
	}
	if iss.StandardRef != "" {
		fmt.Fprintf(&b, " [%s]", iss.StandardRef)
	}
	b.WriteByte('\n')
	if iss.Suggestion != "" {
		fmt.Fprintf(&b, "  - Suggestion: %s\n", iss.Suggestion)
	}
	return b.String()
}

// RenderHTML converts the markdown summary to a standalone HTML fragment.
func (r *Report) RenderHTML() (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(r.RenderMarkdown()), &buf); err != nil {
		return "", fmt.Errorf("render report %s: %w", r.RequestID, err)
	}
	return buf.String(), nil
}
