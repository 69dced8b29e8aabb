// Package anthropic adapts the Anthropic messages API to the ai.Adapter
// contract. Chat only; Anthropic exposes no embedding endpoint.
package anthropic
