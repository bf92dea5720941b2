package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectModel_Precedence(t *testing.T) {
	classes := DefaultClasses()

	tests := []struct {
		name    string
		sc      SelectionContext
		want    string
		latency Latency
	}{
		{
			name:    "reasoning wins over urgency",
			sc:      SelectionContext{Query: "prove that the halting problem is undecidable", LatencySensitive: true, ExpectedToolCalls: 3},
			want:    classes.Reasoning,
			latency: LatencyHigh,
		},
		{
			name:    "complexity analysis",
			sc:      SelectionContext{Query: "What is the time complexity of quicksort? quick answer please"},
			want:    classes.Reasoning,
			latency: LatencyHigh,
		},
		{
			name:    "tool heavy and urgent",
			sc:      SelectionContext{Query: "search the latest nginx version quickly"},
			want:    classes.FastTool,
			latency: LatencyLow,
		},
		{
			name:    "tool heavy by count with latency flag",
			sc:      SelectionContext{Query: "tell me about go", ExpectedToolCalls: 2, LatencySensitive: true},
			want:    classes.FastTool,
			latency: LatencyLow,
		},
		{
			name:    "multi tool chain",
			sc:      SelectionContext{Query: "compare these frameworks", ExpectedToolCalls: 5},
			want:    classes.LongContext,
			latency: LatencyMedium,
		},
		{
			name:    "large context",
			sc:      SelectionContext{Query: "summarize", ContextTokens: 40_000},
			want:    classes.LongContext,
			latency: LatencyMedium,
		},
		{
			name:    "balanced default",
			sc:      SelectionContext{Query: "hello there"},
			want:    classes.Balanced,
			latency: LatencyMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := SelectModel(tt.sc)

			assert.Equal(t, tt.want, res.SelectedModel)
			assert.Equal(t, tt.latency, res.EstimatedLatency)
			assert.NotEmpty(t, res.Reasoning)
			assert.NotContains(t, res.FallbackChain, res.SelectedModel)
		})
	}
}

func TestSelector_FallbackChainHasNoDuplicates(t *testing.T) {
	s := NewSelector(func(o *SelectorOptions) {
		o.Chain = []string{"a", "b", "a", " ", "c", "b"}
		o.Classes = Classes{Balanced: "b"}
	})

	assert.Equal(t, []string{"a", "b", "c"}, s.Chain())

	res := s.Select(SelectionContext{Query: "hi"})
	assert.Equal(t, "b", res.SelectedModel)
	assert.Equal(t, []string{"a", "c"}, res.FallbackChain)
	assert.Equal(t, DefaultClasses().Reasoning, s.Classes().Reasoning)
}

func TestSelector_NextFallback(t *testing.T) {
	s := NewSelector(func(o *SelectorOptions) { o.Chain = []string{"m1", "m2", "m3"} })

	next, ok := s.NextFallback("m1", []string{"m1"})
	require.True(t, ok)
	assert.Equal(t, "m2", next)

	next, ok = s.NextFallback("m2", []string{"m1", "m2"})
	require.True(t, ok)
	assert.Equal(t, "m3", next)

	next, ok = s.NextFallback("other", []string{"other"})
	require.True(t, ok)
	assert.Equal(t, "m1", next)

	next, ok = s.NextFallback("m3", []string{"m1", "m2", "m3"})
	assert.False(t, ok)
	assert.Empty(t, next)
}

func TestSelector_NextFallbackNeverReturnsAttempted(t *testing.T) {
	chain := []string{"a", "b", "c", "d"}
	s := NewSelector(func(o *SelectorOptions) { o.Chain = chain })

	// every subset of the chain
	for mask := 0; mask < 1<<len(chain); mask++ {
		var attempted []string
		for i, m := range chain {
			if mask&(1<<i) != 0 {
				attempted = append(attempted, m)
			}
		}

		next, ok := s.NextFallback("", attempted)
		if len(attempted) == len(chain) {
			assert.False(t, ok, attempted)
			continue
		}

		require.True(t, ok, attempted)
		assert.NotContains(t, attempted, next)
		assert.Contains(t, chain, next)
	}
}
