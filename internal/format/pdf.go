package format

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/metasearch/internal/search"
)

var linkRe = regexp.MustCompile(`\[((?:\\.|[^\]])+)\]\(([^)]+)\)`) // [text](url)

// PDF renders the Markdown form of rs as a simple A4 document with
// clickable links.
func PDF(rs search.ResultSet, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	// Render line by line to avoid huge paragraphs
	scanner := bufio.NewScanner(strings.NewReader(Markdown(rs)))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		if s == "" {
			pdf.Ln(5)
			continue
		}
		if strings.HasPrefix(s, "#") {
			i := 0
			for i < len(s) && s[i] == '#' {
				i++
			}
			text := strings.TrimSpace(s[i:])
			if text == "" {
				continue
			}
			size := 14.0
			if i >= 2 {
				size = 12.0
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.CellFormat(0, 8, tr(unescapeMarkdown(text)), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 11)
			continue
		}
		s = strings.TrimPrefix(s, "> ")
		parts := linkRe.FindAllStringSubmatchIndex(s, -1)
		if len(parts) == 0 {
			pdf.MultiCell(0, 5, tr(unescapeMarkdown(s)), "", "L", false)
			continue
		}
		pos := 0
		for _, m := range parts {
			// m: [fullStart, fullEnd, textStart, textEnd, urlStart, urlEnd]
			if m[0] > pos {
				pdf.Write(5, tr(unescapeMarkdown(s[pos:m[0]])))
			}
			pdf.WriteLinkString(5, tr(unescapeMarkdown(s[m[2]:m[3]])), s[m[4]:m[5]])
			pos = m[1]
		}
		if pos < len(s) {
			pdf.Write(5, tr(unescapeMarkdown(s[pos:])))
		}
		pdf.Ln(6)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return pdf.Output(w)
}

var markdownUnescaper = strings.NewReplacer(`\[`, `[`, `\]`, `]`, "\\`", "`", `\*`, `*`, `\_`, `_`)

func unescapeMarkdown(s string) string { return markdownUnescaper.Replace(s) }
