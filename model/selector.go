package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Latency is the expected response time class of a model choice.
type Latency string

const (
	LatencyLow    Latency = "low"
	LatencyMedium Latency = "medium"
	LatencyHigh   Latency = "high"
)

// LongContextTokens is the context size from which the long-context model is preferred.
const LongContextTokens = 32_000

// Classes names the concrete model per selection class.
type Classes struct {
	Reasoning   string `mapstructure:"reasoning" yaml:"reasoning"`
	FastTool    string `mapstructure:"fast_tool" yaml:"fast_tool"`
	LongContext string `mapstructure:"long_context" yaml:"long_context"`
	Balanced    string `mapstructure:"balanced" yaml:"balanced"`
}

// DefaultClasses returns the built-in class mapping.
func DefaultClasses() Classes {
	return Classes{
		Reasoning:   "o3-mini",
		FastTool:    "gpt-4o-mini",
		LongContext: "gpt-4.1",
		Balanced:    "gpt-4o",
	}
}

// DefaultChain is the ordered fallback chain used when none is configured.
func DefaultChain() []string {
	return []string{"gpt-4o", "gpt-4o-mini", "claude-3-5-sonnet-latest", "claude-3-5-haiku-latest"}
}

// SelectionContext describes the request a model is chosen for.
type SelectionContext struct {
	Query             string
	ExpectedToolCalls int      // Number of tool calls the caller anticipates
	Tools             []string // Tools offered to the model
	LatencySensitive  bool     // Caller prefers a fast answer
	ContextTokens     int      // Estimated prompt size
}

// ModelSelectionResult is the outcome of SelectModel.
type ModelSelectionResult struct {
	SelectedModel    string   `json:"selected_model"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	FallbackChain    []string `json:"fallback_chain"`
	EstimatedLatency Latency  `json:"estimated_latency"`
}

var (
	reasoningPattern = regexp.MustCompile(`(?i)\b(prove|proof|theorem|lemma|undecidab\w*|complexity analysis|time complexity|space complexity|big[- ]o|formally verify|formal verification|derive|derivation|induction|np[- ]hard|np[- ]complete)\b`)
	toolPattern      = regexp.MustCompile(`(?i)\b(search|look ?up|latest|current|news|price|weather|calculate|compute|convert|install|package|version)\b`)
	urgencyPattern   = regexp.MustCompile(`(?i)\b(quick(ly)?|fast|asap|urgent(ly)?|right now|immediately)\b`)
)

// Selector holds the class mapping and the fallback chain. It is immutable
// after construction and safe for concurrent use.
type Selector struct {
	classes Classes
	chain   []string
}

// SelectorOptions configures a Selector.
type SelectorOptions struct {
	Classes Classes
	Chain   []string
}

// NewSelector creates a Selector. Empty class entries and an empty chain fall
// back to the defaults; duplicate chain entries are dropped.
func NewSelector(optFns ...func(o *SelectorOptions)) *Selector {
	opts := SelectorOptions{Classes: DefaultClasses(), Chain: DefaultChain()}

	for _, fn := range optFns {
		fn(&opts)
	}

	def := DefaultClasses()
	if opts.Classes.Reasoning == "" {
		opts.Classes.Reasoning = def.Reasoning
	}
	if opts.Classes.FastTool == "" {
		opts.Classes.FastTool = def.FastTool
	}
	if opts.Classes.LongContext == "" {
		opts.Classes.LongContext = def.LongContext
	}
	if opts.Classes.Balanced == "" {
		opts.Classes.Balanced = def.Balanced
	}

	if len(opts.Chain) == 0 {
		opts.Chain = DefaultChain()
	}

	return &Selector{classes: opts.Classes, chain: unique(opts.Chain)}
}

var defaultSelector = NewSelector()

// SelectModel picks a model with the default Selector.
func SelectModel(sc SelectionContext) ModelSelectionResult {
	return defaultSelector.Select(sc)
}

// Classes returns the configured class mapping.
func (s *Selector) Classes() Classes { return s.classes }

// Chain returns a copy of the fallback chain.
func (s *Selector) Chain() []string { return append([]string(nil), s.chain...) }

// Select applies the decision precedence, first match wins:
//
//  1. deep reasoning language selects the reasoning model regardless of urgency
//  2. tool-heavy and latency-sensitive selects the fast tool model
//  3. multi-tool chains or large contexts select the long-context model
//  4. otherwise the balanced default
func (s *Selector) Select(sc SelectionContext) ModelSelectionResult {
	query := strings.TrimSpace(sc.Query)
	latencySensitive := sc.LatencySensitive || urgencyPattern.MatchString(query)
	toolHeavy := sc.ExpectedToolCalls >= 2 || len(sc.Tools) >= 2 || toolPattern.MatchString(query)

	var res ModelSelectionResult

	switch {
	case reasoningPattern.MatchString(query):
		res = ModelSelectionResult{
			SelectedModel:    s.classes.Reasoning,
			Confidence:       0.9,
			Reasoning:        fmt.Sprintf("deep reasoning required (%q)", reasoningPattern.FindString(query)),
			EstimatedLatency: LatencyHigh,
		}
	case toolHeavy && latencySensitive:
		res = ModelSelectionResult{
			SelectedModel:    s.classes.FastTool,
			Confidence:       0.8,
			Reasoning:        "tool-heavy and latency-sensitive",
			EstimatedLatency: LatencyLow,
		}
	case sc.ExpectedToolCalls >= 4 || sc.ContextTokens >= LongContextTokens:
		res = ModelSelectionResult{
			SelectedModel:    s.classes.LongContext,
			Confidence:       0.75,
			Reasoning:        fmt.Sprintf("multi-tool chain (%d calls) or large context (%d tokens)", sc.ExpectedToolCalls, sc.ContextTokens),
			EstimatedLatency: LatencyMedium,
		}
	default:
		res = ModelSelectionResult{
			SelectedModel:    s.classes.Balanced,
			Confidence:       0.6,
			Reasoning:        "general purpose request",
			EstimatedLatency: LatencyMedium,
		}
	}

	res.FallbackChain = s.fallbackChain(res.SelectedModel)

	return res
}

func (s *Selector) fallbackChain(selected string) []string {
	chain := make([]string, 0, len(s.chain))
	for _, m := range s.chain {
		if m != selected {
			chain = append(chain, m)
		}
	}
	return chain
}

// NextFallback returns the first chain entry that is neither current nor in
// attempted. It returns false when the chain is exhausted; callers must treat
// that as terminal.
func (s *Selector) NextFallback(current string, attempted []string) (string, bool) {
	tried := make(map[string]struct{}, len(attempted)+1)
	tried[current] = struct{}{}

	for _, a := range attempted {
		tried[a] = struct{}{}
	}

	for _, m := range s.chain {
		if _, ok := tried[m]; !ok {
			return m, true
		}
	}

	return "", false
}

func unique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))

	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}
