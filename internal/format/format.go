// Package format renders result sets for display. Every renderer is pure:
// the same set always produces the same output.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperifyio/metasearch/internal/search"
)

// Kind names an output format.
type Kind string

const (
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
	KindJSON     Kind = "json"
	KindPDF      Kind = "pdf"
)

// DeepWebNotice accompanies deep-web listings.
const DeepWebNotice = "Deep web links only open through Tor or I2P. Follow applicable laws."

// ParseKind accepts text, markdown (or md), json and pdf.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return KindText, nil
	case "markdown", "md":
		return KindMarkdown, nil
	case "json":
		return KindJSON, nil
	case "pdf":
		return KindPDF, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Render writes rs to w in the given format.
func Render(kind Kind, rs search.ResultSet, w io.Writer) error {
	switch kind {
	case KindText, "":
		_, err := io.WriteString(w, Text(rs))
		return err
	case KindMarkdown:
		_, err := io.WriteString(w, Markdown(rs))
		return err
	case KindJSON:
		b, err := JSON(rs)
		if err != nil {
			return err
		}
		_, err = w.Write(append(b, '\n'))
		return err
	case KindPDF:
		return PDF(rs, w)
	}
	return fmt.Errorf("unknown output format %q", kind)
}

// Text renders a plain listing suitable for a terminal.
func Text(rs search.ResultSet) string {
	var b strings.Builder
	if rs.Reason != "" {
		fmt.Fprintf(&b, "%s\n", rs.Reason)
		return b.String()
	}
	if rs.Empty() {
		fmt.Fprintf(&b, "No results for %q.\n", rs.Query)
		return b.String()
	}
	writeText := func(title string, rs []search.Result) {
		fmt.Fprintf(&b, "%s (%d)\n", title, len(rs))
		for i, r := range rs {
			fmt.Fprintf(&b, "%2d. %s\n    %s\n", i+1, orUntitled(r.Title), r.Link)
			if r.Snippet != "" {
				fmt.Fprintf(&b, "    %s\n", r.Snippet)
			}
			fmt.Fprintf(&b, "    [%s, score %.2f]\n", r.Source, r.Score)
		}
		b.WriteString("\n")
	}
	if len(rs.Surface) > 0 {
		writeText("Surface web", rs.Surface)
	}
	if len(rs.DeepWeb) > 0 {
		writeText("Deep web", rs.DeepWeb)
		b.WriteString(DeepWebNotice + "\n")
	}
	return b.String()
}

// Markdown renders headed sections with numbered links.
func Markdown(rs search.ResultSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Search results: %s\n\n", escapeMarkdown(rs.Query))
	if rs.Reason != "" {
		fmt.Fprintf(&b, "_%s_\n", escapeMarkdown(rs.Reason))
		return b.String()
	}
	if rs.Empty() {
		b.WriteString("_No results._\n")
		return b.String()
	}
	writeSection := func(title string, rs []search.Result) {
		fmt.Fprintf(&b, "## %s\n\n", title)
		for i, r := range rs {
			fmt.Fprintf(&b, "%d. [%s](%s) (%s)\n", i+1, escapeMarkdown(orUntitled(r.Title)), markdownLink(r.Link), escapeMarkdown(r.Source))
			if r.Snippet != "" {
				fmt.Fprintf(&b, "   %s\n", escapeMarkdown(r.Snippet))
			}
		}
		b.WriteString("\n")
	}
	if len(rs.Surface) > 0 {
		writeSection("Surface web", rs.Surface)
	}
	if len(rs.DeepWeb) > 0 {
		writeSection("Deep web", rs.DeepWeb)
		fmt.Fprintf(&b, "> %s\n", DeepWebNotice)
	}
	return b.String()
}

// JSON renders rs as indented JSON. Both lists are always arrays.
func JSON(rs search.ResultSet) ([]byte, error) {
	return json.MarshalIndent(rs.Clone(), "", "  ")
}

func orUntitled(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(untitled)"
	}
	return s
}

var markdownEscaper = strings.NewReplacer(`[`, `\[`, `]`, `\]`, "`", "\\`", `*`, `\*`, `_`, `\_`)

func escapeMarkdown(s string) string { return markdownEscaper.Replace(s) }

// Characters that would end or split an inline link destination.
var linkEscaper = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29", "<", "%3C", ">", "%3E")

func markdownLink(link string) string { return linkEscaper.Replace(link) }
