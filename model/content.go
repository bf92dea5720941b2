package model

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentcouncil/core"
)

// FunctionResponseText renders a tool outcome as the text fed back to a
// provider. Structured results are JSON encoded; failures are prefixed with
// "error:" so the model can react to them.
func FunctionResponseText(fr core.FunctionResponse) string {
	if fr.Error != "" {
		return "error: " + fr.Error
	}

	switch v := fr.Response.(type) {
	case nil:
		return "null"
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// ToolResponses indexes the function responses of tool role contents by call
// id, preserving first-seen order.
func ToolResponses(contents []core.Content) (map[string]core.FunctionResponse, []string) {
	responses := map[string]core.FunctionResponse{}
	order := []string{}

	for _, c := range contents {
		if c.Role != core.RoleTool {
			continue
		}

		for _, p := range c.Parts {
			fr, ok := p.(core.FunctionResponsePart)
			if !ok || fr.FunctionResponse.ID == "" {
				continue
			}

			if _, exists := responses[fr.FunctionResponse.ID]; exists {
				continue
			}

			responses[fr.FunctionResponse.ID] = fr.FunctionResponse
			order = append(order, fr.FunctionResponse.ID)
		}
	}

	return responses, order
}
