package aggregate

import (
	"net/url"
	"sort"
	"strings"

	"github.com/hyperifyio/metasearch/internal/search"
)

// DiversityWeight scales the bonus a result earns for being accepted early.
const DiversityWeight = 0.1

// Options controls Merge.
type Options struct {
	// MaxResults truncates the merged list. Zero keeps everything and
	// disables the diversity bonus.
	MaxResults int
	// Diversity adds DiversityWeight*(1 - seen/MaxResults) to each accepted
	// result, where seen counts the results accepted before it.
	Diversity bool
	// CanonicalizeLinks strips fragments and tracking parameters and
	// lower-cases the host before comparing links. Off means exact match.
	CanonicalizeLinks bool
}

// Merge flattens groups in order, keeps the first result for each link, drops
// results without a link, applies the diversity bonus at acceptance time,
// then stable-sorts by descending score and truncates to MaxResults.
// The input slices are not modified.
func Merge(groups [][]search.Result, opts Options) []search.Result {
	seen := map[string]struct{}{}
	out := make([]search.Result, 0, 64)
	for _, g := range groups {
		for _, r := range g {
			key := r.Link
			if opts.CanonicalizeLinks {
				key = canonicalLink(key)
			}
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			r.Link = key
			if opts.Diversity && opts.MaxResults > 0 {
				r.Score += diversityBonus(len(out), opts.MaxResults)
			}
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if opts.MaxResults > 0 && len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	return out
}

func diversityBonus(seen, requested int) float64 {
	b := DiversityWeight * (1 - float64(seen)/float64(requested))
	if b < 0 {
		return 0
	}
	return b
}

// canonicalLink returns "" for links that do not parse.
func canonicalLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	normalizeURL(u)
	return u.String()
}

func normalizeURL(u *url.URL) {
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	q := u.Query()
	// Remove common tracking params
	for _, p := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id", "gclid", "fbclid"} {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
}
