// Package openai adapts OpenAI-compatible chat and embedding APIs
// (OpenAI, Ollama, LocalAI, vLLM, DeepSeek) to the ai.Adapter contract.
package openai
