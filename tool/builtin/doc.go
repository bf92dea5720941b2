// Package builtin provides network backed handlers for the built-in tools:
// web search scraped from DuckDuckGo's HTML endpoint, Wikipedia summaries,
// package versions from Repology, documentation excerpts, an arithmetic
// calculator and a heuristic shell command checker.
//
//	reg, err := tool.NewRegistryFromToolkit(builtin.Toolkit())
package builtin
