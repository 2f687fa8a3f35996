package extract

import "net/url"

// Extractor turns a fetched results page into hits. Implementations must be
// deterministic and tolerate pages that match nothing.
type Extractor interface {
	Extract(input []byte, contentType string, base *url.URL) ([]Hit, error)
}

var _ Extractor = RuleExtractor{}
