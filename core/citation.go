package core

import (
	"sort"
	"time"
)

// Citation is a source backing a research claim.
type Citation struct {
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Excerpt      string    `json:"excerpt,omitempty"`
	SourceWeight float64   `json:"source_weight"` // Domain trust in [0,1]
	Confidence   float64   `json:"confidence"`    // Relevance in [0,1]
	CrawledAt    time.Time `json:"crawled_at,omitempty"`
}

// DedupeCitations drops citations whose URL already appeared, keeping the
// first occurrence and the original order.
func DedupeCitations(cits []Citation) []Citation {
	seen := make(map[string]struct{}, len(cits))
	out := make([]Citation, 0, len(cits))

	for _, c := range cits {
		if _, ok := seen[c.URL]; ok {
			continue
		}

		seen[c.URL] = struct{}{}
		out = append(out, c)
	}

	return out
}

// MergeCitations unions a and b by URL. When both contain a URL the preferred
// entry is kept: higher confidence, then higher source weight, then the later
// crawl, then title and excerpt in lexical order. The kept entry therefore
// does not depend on argument order. Entries of a precede new entries of b.
func MergeCitations(a, b []Citation) []Citation {
	index := make(map[string]int, len(a)+len(b))
	out := make([]Citation, 0, len(a)+len(b))

	for _, list := range [][]Citation{a, b} {
		for _, c := range list {
			if i, ok := index[c.URL]; ok {
				if preferCitation(c, out[i]) {
					out[i] = c
				}

				continue
			}

			index[c.URL] = len(out)
			out = append(out, c)
		}
	}

	return out
}

// preferCitation reports whether c wins over cur for the same URL.
func preferCitation(c, cur Citation) bool {
	switch {
	case c.Confidence != cur.Confidence:
		return c.Confidence > cur.Confidence
	case c.SourceWeight != cur.SourceWeight:
		return c.SourceWeight > cur.SourceWeight
	case !c.CrawledAt.Equal(cur.CrawledAt):
		return c.CrawledAt.After(cur.CrawledAt)
	case c.Title != cur.Title:
		return c.Title < cur.Title
	default:
		return c.Excerpt < cur.Excerpt
	}
}

// RankCitations dedupes cits, sorts them by descending confidence (stable) and
// keeps at most limit entries. A limit of zero or less keeps everything.
func RankCitations(cits []Citation, limit int) []Citation {
	out := DedupeCitations(cits)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}
