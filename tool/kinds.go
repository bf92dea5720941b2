package tool

// Built-in tool names.
const (
	NameWebSearch       = "web_search"
	NameSearchWikipedia = "search_wikipedia"
	NameCalculate       = "calculate"
	NameValidateCommand = "validate_command"
	NameLookupPackage   = "lookup_package"
	NameLookupDocs      = "lookup_docs"
)

// IsSearch reports whether name is subject to the per-tier search quota.
func IsSearch(name string) bool {
	return name == NameWebSearch || name == NameSearchWikipedia
}

// WebSearchArgs are the arguments of web_search.
type WebSearchArgs struct {
	Query      string `json:"query" description:"Search query"`
	MaxResults int    `json:"max_results,omitempty" description:"Maximum number of hits to return"`
}

// SearchHit is one web search result.
type SearchHit struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// WikipediaArgs are the arguments of search_wikipedia.
type WikipediaArgs struct {
	Query    string `json:"query" description:"Article or topic to look up"`
	Language string `json:"language,omitempty" description:"Wikipedia language code, defaults to en"`
}

// WikiResult is a Wikipedia article summary.
type WikiResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// CalculateArgs are the arguments of calculate.
type CalculateArgs struct {
	Expression string `json:"expression" description:"Arithmetic expression to evaluate"`
}

// CalcResult is the value of an evaluated expression.
type CalcResult struct {
	Expression string  `json:"expression"`
	Value      float64 `json:"value"`
}

// ValidateCommandArgs are the arguments of validate_command.
type ValidateCommandArgs struct {
	Command string `json:"command" description:"Shell command to check"`
	OS      string `json:"os,omitempty" description:"Target operating system or distribution"`
}

// CommandCheck is the verdict on a shell command.
type CommandCheck struct {
	Command string   `json:"command"`
	Valid   bool     `json:"valid"`
	Risk    string   `json:"risk"`
	Issues  []string `json:"issues,omitempty"`
}

// LookupPackageArgs are the arguments of lookup_package.
type LookupPackageArgs struct {
	Name    string `json:"name" description:"Package name"`
	Manager string `json:"manager" description:"Package manager" enum:"apt,dnf,yum,pacman,brew,apk,npm,pip"`
}

// PackageInfo describes a package in a repository.
type PackageInfo struct {
	Name        string `json:"name"`
	Manager     string `json:"manager"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Found       bool   `json:"found"`
}

// LookupDocsArgs are the arguments of lookup_docs.
type LookupDocsArgs struct {
	Topic   string `json:"topic" description:"Software or command to find documentation for"`
	Section string `json:"section,omitempty" description:"Optional section such as install or configuration"`
}

// DocResult is a documentation excerpt.
type DocResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Excerpt string `json:"excerpt"`
}
