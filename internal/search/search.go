package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind tells which result list a Result belongs to.
type Kind string

const (
	KindSurface Kind = "surface"
	KindDeepWeb Kind = "deepweb"
)

// Result represents a single search hit from any provider.
type Result struct {
	Title   string  `json:"title"`
	Link    string  `json:"link"`
	Snippet string  `json:"snippet"`
	Source  string  `json:"source"` // provider label
	Kind    Kind    `json:"kind"`
	Score   float64 `json:"score"`
}

// Provider is a minimal interface for search providers.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// Mode selects which provider groups run for a query.
type Mode string

const (
	ModeSurface Mode = "surface"
	ModeDeep    Mode = "deep"
	ModeMixed   Mode = "mixed"
)

var ErrInvalidMode = errors.New("invalid search mode")

// ParseMode accepts surface, deep and mixed, case-insensitively. "deepweb" is
// accepted as an alias for deep.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "surface":
		return ModeSurface, nil
	case "deep", "deepweb":
		return ModeDeep, nil
	case "mixed":
		return ModeMixed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// IncludesSurface reports whether surface providers run in this mode.
func (m Mode) IncludesSurface() bool { return m == ModeSurface || m == ModeMixed }

// IncludesDeep reports whether overlay providers run in this mode.
func (m Mode) IncludesDeep() bool { return m == ModeDeep || m == ModeMixed }

// ResultSet is the aggregated answer to one query. Both lists are ordered by
// descending score and never share a link within a list.
type ResultSet struct {
	Query   string   `json:"query"`
	Mode    Mode     `json:"mode"`
	Surface []Result `json:"surface"`
	DeepWeb []Result `json:"deepweb"`
	// Reason is set when no provider could serve the requested mode.
	Reason string `json:"reason,omitempty"`
}

// Empty reports whether neither list holds a result.
func (rs ResultSet) Empty() bool { return len(rs.Surface) == 0 && len(rs.DeepWeb) == 0 }

// Clone returns a copy whose slices do not alias rs.
func (rs ResultSet) Clone() ResultSet {
	out := rs
	out.Surface = append(make([]Result, 0, len(rs.Surface)), rs.Surface...)
	out.DeepWeb = append(make([]Result, 0, len(rs.DeepWeb)), rs.DeepWeb...)
	return out
}

// Score is the length heuristic used to rank surface results:
// (0.6*len(title) + 0.4*len(snippet)) / 100, lengths in runes.
func Score(title, snippet string) float64 {
	return (0.6*float64(utf8.RuneCountInString(title)) + 0.4*float64(utf8.RuneCountInString(snippet))) / 100
}
