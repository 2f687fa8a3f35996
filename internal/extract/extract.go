package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html/charset"
)

// Rule describes where one results page keeps its hits. Block selects the
// repeating element for a single hit; the other selectors are evaluated
// inside that element and take the first match.
type Rule struct {
	Block   string `yaml:"block" json:"block"`
	Title   string `yaml:"title" json:"title"`
	Link    string `yaml:"link" json:"link"`
	Snippet string `yaml:"snippet" json:"snippet"`
	// LinkAttr is the attribute holding the target; defaults to href.
	LinkAttr string `yaml:"linkAttr" json:"linkAttr"`
	// RedirectParam names a query parameter that wraps the real target in
	// engines that route clicks through themselves.
	RedirectParam string `yaml:"redirectParam" json:"redirectParam"`
}

// Hit is one extracted result. Fields whose element is absent are "".
type Hit struct {
	Title   string
	Link    string
	Snippet string
}

var ErrInvalidRule = errors.New("invalid extraction rule")

// Validate reports whether the rule has the selectors extraction requires and
// whether every selector compiles.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Block) == "" {
		return fmt.Errorf("%w: block selector is empty", ErrInvalidRule)
	}
	if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Link) == "" {
		return fmt.Errorf("%w: need a title or link selector", ErrInvalidRule)
	}
	// goquery treats a malformed selector as matching nothing, so compile
	// each one up front to surface typos in configured rules.
	for _, sel := range []string{r.Block, r.Title, r.Link, r.Snippet} {
		if sel == "" {
			continue
		}
		if _, err := cascadia.Compile(sel); err != nil {
			return fmt.Errorf("%w: selector %q: %v", ErrInvalidRule, sel, err)
		}
	}
	return nil
}

// RuleExtractor applies a Rule to an HTML page.
type RuleExtractor struct {
	Rule Rule
}

// Extract decodes input using the charset from contentType (or the page's own
// meta declaration) and returns one Hit per block that yields a link. Links
// are resolved against base when it is non-nil.
func (e RuleExtractor) Extract(input []byte, contentType string, base *url.URL) ([]Hit, error) {
	r, err := charset.NewReader(bytes.NewReader(input), contentType)
	if err != nil {
		// unknown label: fall back to the raw bytes
		r = bytes.NewReader(input)
	}
	return e.extract(r, base)
}

func (e RuleExtractor) extract(r io.Reader, base *url.URL) ([]Hit, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	rule := e.Rule
	attr := rule.LinkAttr
	if attr == "" {
		attr = "href"
	}
	linkSel := rule.Link
	if linkSel == "" {
		linkSel = rule.Title
	}

	var hits []Hit
	doc.Find(rule.Block).Each(func(_ int, block *goquery.Selection) {
		h := Hit{
			Title:   textOf(block, rule.Title),
			Snippet: textOf(block, rule.Snippet),
		}
		if href, ok := block.Find(linkSel).First().Attr(attr); ok {
			h.Link = resolveLink(strings.TrimSpace(href), base, rule.RedirectParam)
		}
		if h.Link == "" {
			return
		}
		hits = append(hits, h)
	})
	return hits, nil
}

func textOf(block *goquery.Selection, sel string) string {
	if sel == "" {
		return ""
	}
	return collapseSpaces(strings.TrimSpace(block.Find(sel).First().Text()))
}

// resolveLink unwraps a redirect parameter and resolves relative references.
// Fragment-only and javascript: links yield "".
func resolveLink(href string, base *url.URL, redirectParam string) string {
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if redirectParam != "" {
		if target := u.Query().Get(redirectParam); target != "" {
			return target
		}
	}
	return u.String()
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\u00a0' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
