package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hupe1980/agentcouncil/logging"
	"github.com/hupe1980/agentcouncil/tool"
)

const (
	DefaultSearchURL    = "https://html.duckduckgo.com/html/"
	DefaultWikipediaURL = "https://%s.wikipedia.org"
	DefaultRepologyURL  = "https://repology.org/api/v1/project/"
	DefaultUserAgent    = "agentcouncil/1.0 (+https://github.com/hupe1980/agentcouncil)"

	defaultMaxResults = 10
	maxBodyBytes      = 2 << 20
)

// Options configures the network back-ends.
type Options struct {
	Client *http.Client
	// SearchURL is the DuckDuckGo HTML endpoint.
	SearchURL string
	// WikipediaURL is the wiki origin; a %s verb is replaced by the language.
	WikipediaURL string
	RepologyURL  string
	UserAgent    string
	Logger       logging.Logger
}

func defaultOptions() Options {
	return Options{
		Client:       &http.Client{Timeout: 15 * time.Second},
		SearchURL:    DefaultSearchURL,
		WikipediaURL: DefaultWikipediaURL,
		RepologyURL:  DefaultRepologyURL,
		UserAgent:    DefaultUserAgent,
	}
}

// Toolkit returns a toolkit with a handler for every built-in tool.
func Toolkit(optFns ...func(o *Options)) tool.Toolkit {
	opts := defaultOptions()

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	w := &web{opts: opts}

	return tool.Toolkit{
		WebSearch:        tool.SearchFunc(w.search),
		Wikipedia:        tool.WikiFunc(w.wikipedia),
		Calculator:       tool.CalculatorFunc(calculate),
		CommandValidator: tool.CommandValidatorFunc(validateCommand),
		PackageLookup:    tool.PackageLookupFunc(w.lookupPackage),
		DocsLookup:       tool.DocsLookupFunc(w.lookupDocs),
	}
}

type web struct {
	opts Options
}

// get fetches url and returns the body limited to maxBodyBytes. A 404 yields
// a nil body and no error.
func (w *web) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", w.opts.UserAgent)

	start := time.Now()

	resp, err := w.opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	w.opts.Logger.Debug("builtin.http.get", "url", url, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}
