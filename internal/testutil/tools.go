package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/hupe1980/agentcouncil/tool"
)

// FakeSearch returns n deterministic hits per query and counts invocations.
type FakeSearch struct {
	Hits  []tool.SearchHit
	calls atomic.Int32
}

// Search implements tool.WebSearcher.
func (f *FakeSearch) Search(_ context.Context, args tool.WebSearchArgs) ([]tool.SearchHit, error) {
	f.calls.Add(1)

	if len(f.Hits) > 0 {
		return f.Hits, nil
	}

	slug := strings.ReplaceAll(strings.ToLower(args.Query), " ", "-")

	return []tool.SearchHit{
		{URL: "https://docs.example.org/" + slug, Title: "Docs: " + args.Query, Snippet: "Reference for " + args.Query},
		{URL: "https://blog.example.com/" + slug, Title: "Blog: " + args.Query, Snippet: "A write-up"},
	}, nil
}

// Calls returns the number of searches.
func (f *FakeSearch) Calls() int { return int(f.calls.Load()) }

// FakeToolkit returns a toolkit with canned back-ends for every built-in tool.
func FakeToolkit() tool.Toolkit {
	return tool.Toolkit{
		WebSearch: &FakeSearch{},
		Wikipedia: tool.WikiFunc(func(_ context.Context, args tool.WikipediaArgs) (tool.WikiResult, error) {
			title := strings.ReplaceAll(args.Query, " ", "_")
			return tool.WikiResult{Title: args.Query, URL: "https://en.wikipedia.org/wiki/" + title, Summary: "Summary of " + args.Query}, nil
		}),
		Calculator: tool.CalculatorFunc(func(_ context.Context, args tool.CalculateArgs) (tool.CalcResult, error) {
			return tool.CalcResult{Expression: args.Expression, Value: 42}, nil
		}),
		CommandValidator: tool.CommandValidatorFunc(func(_ context.Context, args tool.ValidateCommandArgs) (tool.CommandCheck, error) {
			if strings.Contains(args.Command, "rm -rf /") {
				return tool.CommandCheck{Command: args.Command, Valid: false, Risk: "high", Issues: []string{"destroys the root filesystem"}}, nil
			}
			return tool.CommandCheck{Command: args.Command, Valid: true, Risk: "low"}, nil
		}),
		PackageLookup: tool.PackageLookupFunc(func(_ context.Context, args tool.LookupPackageArgs) (tool.PackageInfo, error) {
			return tool.PackageInfo{Name: args.Name, Manager: args.Manager, Version: "1.0.0", Found: true}, nil
		}),
		DocsLookup: tool.DocsLookupFunc(func(_ context.Context, args tool.LookupDocsArgs) (tool.DocResult, error) {
			return tool.DocResult{Title: args.Topic, URL: fmt.Sprintf("https://docs.example.org/%s", args.Topic), Excerpt: "Install guide"}, nil
		}),
	}
}
