package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalizers map one backend's raw JSON to surface Results. Absent fields
// decode to empty strings; only a payload that is not valid JSON is an error.
// Each result carries its base Score; source is the provider label.

type serpAPIResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// NormalizeSerpAPI handles the serpapi.com Google schema (organic_results).
func NormalizeSerpAPI(raw []byte, source string) ([]Result, error) {
	var r serpAPIResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("parse serpapi response: %w", err)
	}
	out := make([]Result, 0, len(r.OrganicResults))
	for _, it := range r.OrganicResults {
		out = append(out, newSurfaceResult(it.Title, it.Link, it.Snippet, source))
	}
	return out, nil
}

type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

// NormalizeBing handles the Bing Web Search v7 schema (webPages.value).
func NormalizeBing(raw []byte, source string) ([]Result, error) {
	var r bingResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("parse bing response: %w", err)
	}
	out := make([]Result, 0, len(r.WebPages.Value))
	for _, it := range r.WebPages.Value {
		out = append(out, newSurfaceResult(it.Name, it.URL, it.Snippet, source))
	}
	return out, nil
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Name     string     `json:"Name"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Results       []ddgTopic `json:"Results"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

// NormalizeDuckDuckGo handles the DuckDuckGo instant answer schema. The
// abstract comes first, then direct results, then related topics with nested
// topic groups flattened in document order.
func NormalizeDuckDuckGo(raw []byte, source string) ([]Result, error) {
	var r ddgResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("parse duckduckgo response: %w", err)
	}
	out := make([]Result, 0, 1+len(r.Results)+len(r.RelatedTopics))
	if r.AbstractURL != "" {
		out = append(out, newSurfaceResult(r.Heading, r.AbstractURL, r.AbstractText, source))
	}
	var walk func([]ddgTopic)
	walk = func(topics []ddgTopic) {
		for _, t := range topics {
			if len(t.Topics) > 0 {
				walk(t.Topics)
				continue
			}
			title, snippet := splitDDGText(t.Text)
			out = append(out, newSurfaceResult(title, t.FirstURL, snippet, source))
		}
	}
	walk(r.Results)
	walk(r.RelatedTopics)
	return out, nil
}

// splitDDGText splits "Title - description" the way DuckDuckGo joins them.
func splitDDGText(s string) (string, string) {
	if i := strings.Index(s, " - "); i > 0 {
		return s[:i], s[i+3:]
	}
	return s, ""
}

type searxResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// NormalizeSearxNG handles a SearxNG /search?format=json payload.
func NormalizeSearxNG(raw []byte, source string) ([]Result, error) {
	var r searxResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("parse searxng response: %w", err)
	}
	out := make([]Result, 0, len(r.Results))
	for _, it := range r.Results {
		out = append(out, newSurfaceResult(it.Title, it.URL, it.Content, source))
	}
	return out, nil
}

func newSurfaceResult(title, link, snippet, source string) Result {
	title = CleanText(title)
	snippet = CleanText(snippet)
	return Result{
		Title:   title,
		Link:    strings.TrimSpace(link),
		Snippet: snippet,
		Source:  source,
		Kind:    KindSurface,
		Score:   Score(title, snippet),
	}
}

// CleanText trims, collapses internal whitespace runs and applies NFC so that
// equal text from different providers scores the same.
func CleanText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// Cap truncates rs to at most n entries; n <= 0 leaves rs untouched.
func Cap(rs []Result, n int) []Result {
	if n > 0 && len(rs) > n {
		return rs[:n]
	}
	return rs
}
