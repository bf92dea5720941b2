package tool

import "context"

// WebSearcher backs web_search.
type WebSearcher interface {
	Search(ctx context.Context, args WebSearchArgs) ([]SearchHit, error)
}

// WikiSearcher backs search_wikipedia.
type WikiSearcher interface {
	SearchWikipedia(ctx context.Context, args WikipediaArgs) (WikiResult, error)
}

// Calculator backs calculate.
type Calculator interface {
	Calculate(ctx context.Context, args CalculateArgs) (CalcResult, error)
}

// CommandValidator backs validate_command.
type CommandValidator interface {
	ValidateCommand(ctx context.Context, args ValidateCommandArgs) (CommandCheck, error)
}

// PackageLookup backs lookup_package.
type PackageLookup interface {
	LookupPackage(ctx context.Context, args LookupPackageArgs) (PackageInfo, error)
}

// DocsLookup backs lookup_docs.
type DocsLookup interface {
	LookupDocs(ctx context.Context, args LookupDocsArgs) (DocResult, error)
}

// SearchFunc adapts a function to WebSearcher.
type SearchFunc func(ctx context.Context, args WebSearchArgs) ([]SearchHit, error)

// Search implements WebSearcher.
func (f SearchFunc) Search(ctx context.Context, args WebSearchArgs) ([]SearchHit, error) {
	return f(ctx, args)
}

// WikiFunc adapts a function to WikiSearcher.
type WikiFunc func(ctx context.Context, args WikipediaArgs) (WikiResult, error)

// SearchWikipedia implements WikiSearcher.
func (f WikiFunc) SearchWikipedia(ctx context.Context, args WikipediaArgs) (WikiResult, error) {
	return f(ctx, args)
}

// CalculatorFunc adapts a function to Calculator.
type CalculatorFunc func(ctx context.Context, args CalculateArgs) (CalcResult, error)

// Calculate implements Calculator.
func (f CalculatorFunc) Calculate(ctx context.Context, args CalculateArgs) (CalcResult, error) {
	return f(ctx, args)
}

// CommandValidatorFunc adapts a function to CommandValidator.
type CommandValidatorFunc func(ctx context.Context, args ValidateCommandArgs) (CommandCheck, error)

// ValidateCommand implements CommandValidator.
func (f CommandValidatorFunc) ValidateCommand(ctx context.Context, args ValidateCommandArgs) (CommandCheck, error) {
	return f(ctx, args)
}

// PackageLookupFunc adapts a function to PackageLookup.
type PackageLookupFunc func(ctx context.Context, args LookupPackageArgs) (PackageInfo, error)

// LookupPackage implements PackageLookup.
func (f PackageLookupFunc) LookupPackage(ctx context.Context, args LookupPackageArgs) (PackageInfo, error) {
	return f(ctx, args)
}

// DocsLookupFunc adapts a function to DocsLookup.
type DocsLookupFunc func(ctx context.Context, args LookupDocsArgs) (DocResult, error)

// LookupDocs implements DocsLookup.
func (f DocsLookupFunc) LookupDocs(ctx context.Context, args LookupDocsArgs) (DocResult, error) {
	return f(ctx, args)
}

// Toolkit gathers the external back-ends of the built-in tools. Nil handlers
// leave the corresponding tool unregistered.
type Toolkit struct {
	WebSearch        WebSearcher
	Wikipedia        WikiSearcher
	Calculator       Calculator
	CommandValidator CommandValidator
	PackageLookup    PackageLookup
	DocsLookup       DocsLookup
}

// Tools returns a typed Tool for every configured handler.
func (k Toolkit) Tools() []Tool {
	var tools []Tool

	if k.WebSearch != nil {
		tools = append(tools, Typed(NameWebSearch,
			"Search the web and return ranked hits with url, title and snippet.",
			k.WebSearch.Search))
	}

	if k.Wikipedia != nil {
		tools = append(tools, Typed(NameSearchWikipedia,
			"Look up a topic on Wikipedia and return the article summary.",
			k.Wikipedia.SearchWikipedia))
	}

	if k.Calculator != nil {
		tools = append(tools, Typed(NameCalculate,
			"Evaluate an arithmetic expression.",
			k.Calculator.Calculate))
	}

	if k.CommandValidator != nil {
		tools = append(tools, Typed(NameValidateCommand,
			"Check a shell command for syntax errors and risk on the target system.",
			k.CommandValidator.ValidateCommand))
	}

	if k.PackageLookup != nil {
		tools = append(tools, Typed(NameLookupPackage,
			"Look up a package in the repositories of a package manager.",
			k.PackageLookup.LookupPackage))
	}

	if k.DocsLookup != nil {
		tools = append(tools, Typed(NameLookupDocs,
			"Find official documentation for a piece of software.",
			k.DocsLookup.LookupDocs))
	}

	return tools
}

// NewRegistryFromToolkit registers every tool of k with a new Registry.
func NewRegistryFromToolkit(k Toolkit, optFns ...func(o *RegistryOptions)) (*Registry, error) {
	r := NewRegistry(optFns...)

	for _, t := range k.Tools() {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}

	return r, nil
}
