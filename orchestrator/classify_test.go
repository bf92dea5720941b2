package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/agentcouncil/core"
)

func stageTypes(c Classification) []core.AgentType {
	out := make([]core.AgentType, 0, len(c.Pipeline))
	for _, s := range c.Pipeline {
		out = append(out, s.Type)
	}
	return out
}

func TestClassify(t *testing.T) {
	ubuntu := core.SystemProfile{OS: "linux", Distro: "ubuntu"}

	tests := []struct {
		name    string
		query   string
		profile core.SystemProfile
		intent  Intent
		stages  []core.AgentType
	}{
		{"greeting", "hi there!", core.SystemProfile{}, IntentGreeting,
			[]core.AgentType{core.AgentTypeSynthesizer}},
		{"factual", "what is the capital of France", core.SystemProfile{}, IntentFactual,
			[]core.AgentType{core.AgentTypeResearch, core.AgentTypeSynthesizer}},
		{"reasoning", "explain the difference between TCP and UDP", core.SystemProfile{}, IntentReasoning,
			[]core.AgentType{core.AgentTypeResearch, core.AgentTypeSynthesizer}},
		{"operational unknown system", "how do I install nginx", core.SystemProfile{}, IntentOperational,
			[]core.AgentType{core.AgentTypeCurious, core.AgentTypeResearch, core.AgentTypePlanner, core.AgentTypeValidator, core.AgentTypeSynthesizer}},
		{"operational known system", "how do I install nginx", ubuntu, IntentOperational,
			[]core.AgentType{core.AgentTypeResearch, core.AgentTypePlanner, core.AgentTypeValidator, core.AgentTypeSynthesizer}},
		{"long greeting is not chit-chat", "hello, can you tell me what the weather in Paris is like today", core.SystemProfile{}, IntentFactual,
			[]core.AgentType{core.AgentTypeResearch, core.AgentTypeSynthesizer}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.query, tt.profile)
			assert.Equal(t, tt.intent, c.Intent)
			assert.Equal(t, tt.stages, stageTypes(c))
		})
	}
}

func TestClassify_ResearchStrategy(t *testing.T) {
	assert.Equal(t, "quick", Classify("explain why the sky is blue", core.SystemProfile{}).Pipeline[0].Data["strategy"])
	assert.Equal(t, "quick", Classify("who wrote hamlet", core.SystemProfile{}).Pipeline[0].Data["strategy"])
	assert.Equal(t, "adaptive",
		Classify("which european countries had the highest population growth in the last decade and what drove it", core.SystemProfile{}).Pipeline[0].Data["strategy"])
}

func TestClassify_Complexity(t *testing.T) {
	assert.Equal(t, ComplexitySimple, Classify("what is go", core.SystemProfile{}).Complexity)
	assert.Equal(t, ComplexityModerate, Classify("what are the main differences in memory models of go rust and c", core.SystemProfile{}).Complexity)
}
