// Package model defines the provider agnostic abstractions for interacting
// with language models, plus the routing layer on top of them.
//
// Core pieces:
//   - Model / Request / Response: one streaming generation interface with a
//     normalized tool call representation (ToolDefinition, FunctionCallPart)
//   - SelectModel: a pure classifier picking the model class for a request
//   - Selector: the ordered fallback chain and NextFallback
//   - Pool: provider lookup plus generation with automatic fallback
//
// Providers (model/openai, model/anthropic) implement Model so higher layers
// stay decoupled from vendor SDKs.
package model
