package core

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func citationsFrom(urls []int, confs []float64) []Citation {
	n := min(len(urls), len(confs))

	out := make([]Citation, n)
	for i := 0; i < n; i++ {
		out[i] = Citation{URL: fmt.Sprintf("https://example.com/%d", urls[i]), Confidence: confs[i]}
	}

	return out
}

// tiedCitations draws confidence and title from small sets so equal
// confidences for one URL are common.
func tiedCitations(urls, levels, titles []int) []Citation {
	n := min(len(urls), len(levels), len(titles))

	out := make([]Citation, n)
	for i := 0; i < n; i++ {
		out[i] = Citation{
			URL:        fmt.Sprintf("https://example.com/%d", urls[i]),
			Title:      fmt.Sprintf("title-%d", titles[i]),
			Confidence: float64(levels[i]) / 2,
		}
	}

	return out
}

func byURL(cits []Citation) map[string]Citation {
	out := make(map[string]Citation, len(cits))
	for _, c := range cits {
		out[c.URL] = c
	}
	return out
}

func bestByURL(lists ...[]Citation) map[string]float64 {
	best := map[string]float64{}

	for _, l := range lists {
		for _, c := range l {
			if v, ok := best[c.URL]; !ok || c.Confidence > v {
				best[c.URL] = c.Confidence
			}
		}
	}

	return best
}

func TestCitationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	urls := gen.SliceOf(gen.IntRange(0, 6))
	confs := gen.SliceOf(gen.Float64Range(0, 1))

	properties.Property("merge keeps one entry per URL with the highest confidence", prop.ForAll(
		func(ua []int, ca []float64, ub []int, cb []float64) bool {
			a, b := citationsFrom(ua, ca), citationsFrom(ub, cb)

			merged := MergeCitations(a, b)
			want := bestByURL(a, b)

			if len(merged) != len(want) {
				return false
			}

			for _, c := range merged {
				if want[c.URL] != c.Confidence {
					return false
				}
			}

			return true
		},
		urls, confs, urls, confs,
	))

	properties.Property("merge is order independent", prop.ForAll(
		func(ua []int, ca []float64, ub []int, cb []float64) bool {
			a, b := citationsFrom(ua, ca), citationsFrom(ub, cb)

			ab := bestByURL(MergeCitations(a, b))
			ba := bestByURL(MergeCitations(b, a))

			if len(ab) != len(ba) {
				return false
			}

			for url, v := range ab {
				if ba[url] != v {
					return false
				}
			}

			return true
		},
		urls, confs, urls, confs,
	))

	small := gen.SliceOf(gen.IntRange(0, 2))

	properties.Property("merge keeps the same entry per URL under equal confidence", prop.ForAll(
		func(ua, la, ta, ub, lb, tb []int) bool {
			a, b := tiedCitations(ua, la, ta), tiedCitations(ub, lb, tb)

			ab := byURL(MergeCitations(a, b))
			ba := byURL(MergeCitations(b, a))

			if len(ab) != len(ba) {
				return false
			}

			for url, c := range ab {
				if ba[url] != c {
					return false
				}
			}

			return true
		},
		urls, small, small, urls, small, small,
	))

	properties.Property("rank is unique, sorted and bounded", prop.ForAll(
		func(u []int, c []float64, limit int) bool {
			ranked := RankCitations(citationsFrom(u, c), limit)

			if limit > 0 && len(ranked) > limit {
				return false
			}

			seen := map[string]bool{}
			for i, r := range ranked {
				if seen[r.URL] {
					return false
				}
				seen[r.URL] = true

				if i > 0 && ranked[i-1].Confidence < r.Confidence {
					return false
				}
			}

			return true
		},
		urls, confs, gen.IntRange(0, 8),
	))

	properties.TestingRun(t)
}
