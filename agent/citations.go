package agent

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/tool"
)

const (
	// DefaultSourceWeight applies to web hits from unknown domains.
	DefaultSourceWeight = 0.5
	// WikiSourceWeight applies to every Wikipedia hit.
	WikiSourceWeight = 0.8
)

// DomainWeight is the trust of sources whose host contains Domain.
type DomainWeight struct {
	Domain string
	Weight float64
}

// DefaultTrustedDomains is matched in order; the first substring match wins.
var DefaultTrustedDomains = []DomainWeight{
	{"developer.mozilla.org", 0.95},
	{"docs.", 0.9},
	{"nginx.org", 0.9},
	{"kernel.org", 0.9},
	{"ubuntu.com", 0.9},
	{"debian.org", 0.9},
	{"archlinux.org", 0.9},
	{"python.org", 0.9},
	{"go.dev", 0.9},
	{".gov", 0.9},
	{"redhat.com", 0.85},
	{".edu", 0.85},
	{"wikipedia.org", WikiSourceWeight},
	{"github.com", 0.8},
	{"stackoverflow.com", 0.75},
	{"serverfault.com", 0.75},
	{"askubuntu.com", 0.75},
	{"medium.com", 0.5},
}

// SourceWeight returns the trust of rawURL according to domains.
func SourceWeight(rawURL string, domains []DomainWeight) float64 {
	host := strings.ToLower(rawURL)
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = strings.ToLower(u.Host)
	}

	for _, d := range domains {
		if strings.Contains(host, d.Domain) {
			return d.Weight
		}
	}

	return DefaultSourceWeight
}

// rankDecay lowers the confidence of later hits of one result list.
func rankDecay(rank int) float64 {
	d := 1 - 0.05*float64(rank)
	if d < 0.5 {
		return 0.5
	}
	return d
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// ExtractCitations maps successful search, wiki and docs results to
// citations. Web hits are weighted by domains, wiki hits get
// WikiSourceWeight; confidence is the weight decayed by the hit's rank within
// its result list.
func ExtractCitations(results []core.ToolCallResult, domains []DomainWeight, now time.Time) []core.Citation {
	var cits []core.Citation

	for _, r := range results {
		if r.Failed() || r.Result == nil {
			continue
		}

		switch r.Name {
		case tool.NameWebSearch:
			hits, ok := decodeResult[[]tool.SearchHit](r.Result)
			if !ok {
				continue
			}

			for i, h := range hits {
				if h.URL == "" {
					continue
				}

				w := SourceWeight(h.URL, domains)
				cits = append(cits, core.Citation{
					URL:          h.URL,
					Title:        h.Title,
					Excerpt:      h.Snippet,
					SourceWeight: w,
					Confidence:   clamp01(w * rankDecay(i)),
					CrawledAt:    now,
				})
			}
		case tool.NameSearchWikipedia:
			wiki, ok := decodeResult[tool.WikiResult](r.Result)
			if !ok || wiki.URL == "" {
				continue
			}

			cits = append(cits, core.Citation{
				URL:          wiki.URL,
				Title:        wiki.Title,
				Excerpt:      wiki.Summary,
				SourceWeight: WikiSourceWeight,
				Confidence:   WikiSourceWeight,
				CrawledAt:    now,
			})
		case tool.NameLookupDocs:
			doc, ok := decodeResult[tool.DocResult](r.Result)
			if !ok || doc.URL == "" {
				continue
			}

			w := SourceWeight(doc.URL, domains)
			cits = append(cits, core.Citation{
				URL:          doc.URL,
				Title:        doc.Title,
				Excerpt:      doc.Excerpt,
				SourceWeight: w,
				Confidence:   w,
				CrawledAt:    now,
			})
		}
	}

	return cits
}

// decodeResult converts a tool result to T, directly or through JSON when the
// value was produced by a decoder (maps and slices of any).
func decodeResult[T any](v any) (T, bool) {
	if t, ok := v.(T); ok {
		return t, true
	}

	var out T

	b, err := json.Marshal(v)
	if err != nil {
		return out, false
	}

	if err := json.Unmarshal(b, &out); err != nil {
		return out, false
	}

	return out, true
}
