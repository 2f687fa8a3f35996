package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperifyio/metasearch/internal/fetch"
)

func TestSearxNG_Search_ParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q, want /search", r.URL.Path)
		}
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("format param missing")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Doc", "url": "https://example.com", "content": "snippet"},
				{"title": "Bad", "url": "", "content": "no url"},
				{"url": "https://untitled.example", "content": "title missing"},
			},
		})
	}))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, Client: &fetch.Client{HTTPClient: srv.Client()}}
	got, err := s.Search(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 linked results, got %d", len(got))
	}
	if got[1].Title != "" || got[1].Link != "https://untitled.example" || got[1].Snippet != "title missing" {
		t.Fatalf("untitled result should be kept with an empty title: %+v", got[1])
	}
	if got[0].Link != "https://example.com" {
		t.Fatalf("unexpected link: %q", got[0].Link)
	}
	if got[0].Source != "searxng" || got[0].Kind != KindSurface {
		t.Fatalf("unexpected source/kind: %q/%q", got[0].Source, got[0].Kind)
	}
}

func TestSearxNG_Search_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, Client: &fetch.Client{HTTPClient: srv.Client()}}
	if _, err := s.Search(context.Background(), "query", 5); err == nil {
		t.Fatalf("expected error on 500")
	}
}
