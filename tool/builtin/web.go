package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hupe1980/agentcouncil/tool"
)

const maxExcerptChars = 600

var errNoResults = errors.New("no results")

func (w *web) search(ctx context.Context, args tool.WebSearchArgs) ([]tool.SearchHit, error) {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return nil, errors.New("empty query")
	}

	limit := args.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	body, err := w.get(ctx, w.opts.SearchURL+"?q="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	var hits []tool.SearchHit

	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}

		a := s.Find("a.result__a").First()
		href, ok := a.Attr("href")
		if !ok {
			return true
		}

		target := resolveResultURL(href)
		if target == "" {
			return true
		}

		hits = append(hits, tool.SearchHit{
			URL:     target,
			Title:   collapse(a.Text()),
			Snippet: collapse(s.Find(".result__snippet").Text()),
		})

		return len(hits) < limit
	})

	return hits, nil
}

// resolveResultURL unwraps DuckDuckGo redirect links and drops anything that
// is not an absolute http(s) URL.
func resolveResultURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	if target := u.Query().Get("uddg"); target != "" {
		if u, err = url.Parse(target); err != nil {
			return ""
		}
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}

	return u.String()
}

type wikiSummary struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func (w *web) wikipedia(ctx context.Context, args tool.WikipediaArgs) (tool.WikiResult, error) {
	lang := strings.TrimSpace(args.Language)
	if lang == "" {
		lang = "en"
	}

	base := w.opts.WikipediaURL
	if strings.Contains(base, "%s") {
		base = fmt.Sprintf(base, lang)
	}

	title := strings.ReplaceAll(strings.TrimSpace(args.Query), " ", "_")

	body, err := w.get(ctx, base+"/api/rest_v1/page/summary/"+url.PathEscape(title))
	if err != nil {
		return tool.WikiResult{}, err
	}

	if body == nil {
		return tool.WikiResult{}, fmt.Errorf("wikipedia %q: %w", args.Query, errNoResults)
	}

	var s wikiSummary
	if err := json.Unmarshal(body, &s); err != nil {
		return tool.WikiResult{}, fmt.Errorf("decode wikipedia summary: %w", err)
	}

	page := s.ContentURLs.Desktop.Page
	if page == "" {
		page = base + "/wiki/" + url.PathEscape(title)
	}

	return tool.WikiResult{Title: s.Title, URL: page, Summary: s.Extract}, nil
}

func (w *web) lookupDocs(ctx context.Context, args tool.LookupDocsArgs) (tool.DocResult, error) {
	query := strings.TrimSpace(args.Topic + " " + args.Section + " documentation")

	hits, err := w.search(ctx, tool.WebSearchArgs{Query: query, MaxResults: 5})
	if err != nil {
		return tool.DocResult{}, err
	}

	if len(hits) == 0 {
		return tool.DocResult{}, fmt.Errorf("docs for %q: %w", args.Topic, errNoResults)
	}

	hit := pickDocsHit(hits)

	body, err := w.get(ctx, hit.URL)
	if err != nil || body == nil {
		// the search snippet is still a usable excerpt
		return tool.DocResult{Title: hit.Title, URL: hit.URL, Excerpt: hit.Snippet}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return tool.DocResult{Title: hit.Title, URL: hit.URL, Excerpt: hit.Snippet}, nil
	}

	title := collapse(doc.Find("title").First().Text())
	if title == "" {
		title = hit.Title
	}

	excerpt := pageExcerpt(doc)
	if excerpt == "" {
		excerpt = hit.Snippet
	}

	return tool.DocResult{Title: title, URL: hit.URL, Excerpt: excerpt}, nil
}

// pickDocsHit prefers hits that look like official documentation.
func pickDocsHit(hits []tool.SearchHit) tool.SearchHit {
	for _, h := range hits {
		u, err := url.Parse(h.URL)
		if err != nil {
			continue
		}

		if strings.HasPrefix(u.Host, "docs.") || strings.Contains(u.Host, "readthedocs") ||
			strings.Contains(u.Path, "/doc") || strings.HasPrefix(u.Host, "man7.") {
			return h
		}
	}

	return hits[0]
}

func pageExcerpt(doc *goquery.Document) string {
	if d, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && strings.TrimSpace(d) != "" {
		return truncate(collapse(d), maxExcerptChars)
	}

	var b strings.Builder

	doc.Find("main p, article p, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := collapse(s.Text())
		if len(text) < 40 {
			return true
		}

		if b.Len() > 0 {
			b.WriteByte(' ')
		}

		b.WriteString(text)

		return b.Len() < maxExcerptChars
	})

	return truncate(b.String(), maxExcerptChars)
}

func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n]) + "..."
}
