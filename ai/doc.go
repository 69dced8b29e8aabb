// Package ai defines the provider-orchestration layer: a uniform adapter
// abstraction over LLM vendors, credential pooling, failure isolation via
// a circuit breaker, and task routing with ordered fallback.
//
// Everything above the Adapter boundary only ever sees NormalizedResult;
// per-vendor response shapes are decoded entirely inside each adapter
// implementation (see the openai and anthropic subpackages).
package ai
