package search

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
)

// FileProvider loads search results from a local JSON file for offline/testing use.
// The JSON file format is an array of objects: {"title": "...", "link": "...", "snippet": "..."};
// "url" is accepted in place of "link".
type FileProvider struct {
	Path  string
	Label string
}

type fileEntry struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

func (f *FileProvider) Name() string { return labelOr(f.Label, "file") }

func (f *FileProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, errors.New("file provider path is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	var raw []fileEntry
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Result, 0, len(raw))
	for _, e := range raw {
		link := e.Link
		if link == "" {
			link = e.URL
		}
		if link == "" {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(e.Title), q) || strings.Contains(strings.ToLower(e.Snippet), q) {
			out = append(out, newSurfaceResult(e.Title, link, e.Snippet, f.Name()))
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
