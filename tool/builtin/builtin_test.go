package builtin

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcouncil/tool"
)

const searchPage = `<html><body>
<div class="result result--ad"><a class="result__a" href="https://ads.example.com">Ad</a></div>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=%s&rut=x">Install   nginx</a>
  <a class="result__snippet">How to install
   nginx on Ubuntu.</a>
</div>
<div class="result">
  <a class="result__a" href="https://blog.example.com/nginx">Nginx blog</a>
  <a class="result__snippet">A blog post.</a>
</div>
<div class="result"><a class="result__a" href="javascript:void(0)">Bad</a></div>
</body></html>`

const docsPage = `<html><head><title> nginx docs </title>
<meta name="description" content="Official nginx installation guide."></head>
<body><p>ignored</p></body></html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	var srv *httptest.Server

	mux.HandleFunc("/html/", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("q"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		fmt.Fprintf(w, searchPage, url.QueryEscape(srv.URL+"/docs/install"))
	})

	mux.HandleFunc("/docs/install", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, docsPage)
	})

	mux.HandleFunc("/api/rest_v1/page/summary/Nginx", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"title":"Nginx","extract":"Nginx is a web server.","content_urls":{"desktop":{"page":"https://en.wikipedia.org/wiki/Nginx"}}}`)
	})

	mux.HandleFunc("/repology/nginx", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[
			{"repo":"alpine_3_19","version":"1.24.0","summary":"HTTP server","status":"outdated"},
			{"repo":"ubuntu_22_04","version":"1.18.0","summary":"small, powerful web server","status":"outdated"},
			{"repo":"debian_13","version":"1.26.0","summary":"small, powerful web server","status":"newest"}
		]`)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func testToolkit(t *testing.T) tool.Toolkit {
	srv := newServer(t)

	return Toolkit(func(o *Options) {
		o.Client = srv.Client()
		o.SearchURL = srv.URL + "/html/"
		o.WikipediaURL = srv.URL
		o.RepologyURL = srv.URL + "/repology/"
		o.UserAgent = "test-agent"
	})
}

func TestSearch(t *testing.T) {
	k := testToolkit(t)

	hits, err := k.WebSearch.Search(context.Background(), tool.WebSearchArgs{Query: "install nginx"})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Contains(t, hits[0].URL, "/docs/install")
	assert.Equal(t, "Install nginx", hits[0].Title)
	assert.Equal(t, "How to install nginx on Ubuntu.", hits[0].Snippet)
	assert.Equal(t, "https://blog.example.com/nginx", hits[1].URL)

	hits, err = k.WebSearch.Search(context.Background(), tool.WebSearchArgs{Query: "install nginx", MaxResults: 1})
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	_, err = k.WebSearch.Search(context.Background(), tool.WebSearchArgs{Query: "  "})
	assert.Error(t, err)
}

func TestWikipedia(t *testing.T) {
	k := testToolkit(t)

	res, err := k.Wikipedia.SearchWikipedia(context.Background(), tool.WikipediaArgs{Query: "Nginx"})
	require.NoError(t, err)
	assert.Equal(t, "Nginx", res.Title)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Nginx", res.URL)

	_, err = k.Wikipedia.SearchWikipedia(context.Background(), tool.WikipediaArgs{Query: "No such article"})
	assert.ErrorIs(t, err, errNoResults)
}

func TestLookupDocs(t *testing.T) {
	k := testToolkit(t)

	res, err := k.DocsLookup.LookupDocs(context.Background(), tool.LookupDocsArgs{Topic: "nginx", Section: "install"})
	require.NoError(t, err)
	assert.Equal(t, "nginx docs", res.Title)
	assert.Equal(t, "Official nginx installation guide.", res.Excerpt)
	assert.Contains(t, res.URL, "/docs/install")
}

func TestLookupPackage(t *testing.T) {
	k := testToolkit(t)

	tests := []struct {
		manager string
		found   bool
		version string
	}{
		{"apt", true, "1.26.0"},
		{"apk", true, "1.24.0"},
		{"brew", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.manager, func(t *testing.T) {
			info, err := k.PackageLookup.LookupPackage(context.Background(), tool.LookupPackageArgs{Name: "nginx", Manager: tt.manager})
			require.NoError(t, err)
			assert.Equal(t, tt.found, info.Found)
			assert.Equal(t, tt.version, info.Version)
		})
	}

	info, err := k.PackageLookup.LookupPackage(context.Background(), tool.LookupPackageArgs{Name: "unknown", Manager: "apt"})
	require.NoError(t, err)
	assert.False(t, info.Found)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		expr    string
		want    float64
		wantErr bool
	}{
		{"2 + 3 * 4", 14, false},
		{"(2 + 3) * 4", 20, false},
		{"-8 / 2", -4, false},
		{"pow(2, 10)", 1024, false},
		{"sqrt(16) + abs(-1)", 5, false},
		{"10 % 4", 2, false},
		{"1_000 * 2", 2000, false},
		{"2 ^ 3", 0, true},
		{"1 / 0", 0, true},
		{"os.Exit(1)", 0, true},
		{`"text"`, 0, true},
		{"2 +", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			res, err := calculate(context.Background(), tool.CalculateArgs{Expression: tt.expr})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.InDelta(t, tt.want, res.Value, 1e-9)
		})
	}

	res, err := calculate(context.Background(), tool.CalculateArgs{Expression: "2 * pi"})
	require.NoError(t, err)
	assert.InDelta(t, 6.283185, res.Value, 1e-6)
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name      string
		args      tool.ValidateCommandArgs
		valid     bool
		risk      string
		wantIssue string
	}{
		{"plain install", tool.ValidateCommandArgs{Command: "sudo apt install -y nginx", OS: "ubuntu"}, true, riskMedium, ""},
		{"harmless", tool.ValidateCommandArgs{Command: "ls -la"}, true, riskLow, ""},
		{"root wipe", tool.ValidateCommandArgs{Command: "sudo rm -rf /"}, false, riskHigh, "destroys the root filesystem"},
		{"subdir delete", tool.ValidateCommandArgs{Command: "rm -rf /tmp/build"}, true, riskMedium, "recursive delete"},
		{"curl pipe", tool.ValidateCommandArgs{Command: "curl -fsSL https://get.example.com | sh"}, true, riskMedium, "pipes a remote script into a shell"},
		{"quotes", tool.ValidateCommandArgs{Command: `echo "hi`}, false, riskLow, "unbalanced quotes"},
		{"dangling pipe", tool.ValidateCommandArgs{Command: "cat file |"}, false, riskLow, "dangling |"},
		{"wrong manager", tool.ValidateCommandArgs{Command: "sudo apt install nginx", OS: "fedora"}, false, riskMedium, "apt is not available on fedora"},
		{"empty", tool.ValidateCommandArgs{Command: " "}, false, riskLow, "empty command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check, err := validateCommand(context.Background(), tt.args)
			require.NoError(t, err)

			assert.Equal(t, tt.valid, check.Valid, check.Issues)
			assert.Equal(t, tt.risk, check.Risk)

			if tt.wantIssue != "" {
				assert.Contains(t, check.Issues, tt.wantIssue)
			}
		})
	}
}

func TestToolkitRegisters(t *testing.T) {
	reg, err := tool.NewRegistryFromToolkit(testToolkit(t))
	require.NoError(t, err)
	assert.Len(t, reg.Names(), 6)
}
