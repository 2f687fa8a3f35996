package overlay

import (
	"sort"

	"github.com/hyperifyio/metasearch/internal/extract"
)

// Engine is a known overlay portal: where it lives and how to read its
// result page.
type Engine struct {
	Name       string       `yaml:"name" json:"name"`
	Network    Network      `yaml:"network" json:"network"`
	Endpoint   string       `yaml:"endpoint" json:"endpoint"`
	QueryParam string       `yaml:"queryParam" json:"queryParam"`
	Rule       extract.Rule `yaml:"rule" json:"rule"`
}

var builtin = map[string]Engine{
	"ahmia": {
		Name:       "ahmia",
		Network:    NetworkTor,
		Endpoint:   "http://juhanurmihxlp77nkq76byazcldy2hlmovfu2epvl5ankdibsot4csyd.onion/search/",
		QueryParam: "q",
		Rule: extract.Rule{
			Block:         "li.result",
			Title:         "h4",
			Link:          "h4 a",
			Snippet:       "p",
			RedirectParam: "redirect_url",
		},
	},
	"torch": {
		Name:       "torch",
		Network:    NetworkTor,
		Endpoint:   "http://xmh57jrknzkhv6y3ls3ubitzfqnkrwxhopf5aygthi7d6rplyvk3noyd.onion/cgi-bin/omega/omega",
		QueryParam: "P",
		Rule: extract.Rule{
			Block:   "dl",
			Title:   "dt a",
			Snippet: "dd",
		},
	},
	"legwork": {
		Name:       "legwork",
		Network:    NetworkI2P,
		Endpoint:   "http://legwork.i2p/yacysearch.html",
		QueryParam: "query",
		Rule: extract.Rule{
			Block:   "div.searchresults",
			Title:   "h4.linktitle a",
			Snippet: "p.snippet",
		},
	},
}

// Builtin returns the built-in engine registered under name.
func Builtin(name string) (Engine, bool) {
	e, ok := builtin[name]
	return e, ok
}

// BuiltinNames lists the built-in engines in a stable order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Catalog resolves engine names to engines. Custom entries shadow built-ins
// of the same name.
type Catalog map[string]Engine

// Lookup returns the custom engine for name, falling back to the built-in one.
func (c Catalog) Lookup(name string) (Engine, bool) {
	if e, ok := c[name]; ok {
		return e, true
	}
	return Builtin(name)
}
