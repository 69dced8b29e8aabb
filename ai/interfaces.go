package ai

import "context"

// Capability describes what a provider adapter can do.
type Capability int

const (
	// CapabilityChat indicates the adapter can answer chat/completion payloads.
	CapabilityChat Capability = iota + 1
	// CapabilityEmbedding indicates the adapter can produce embedding vectors.
	CapabilityEmbedding
)

// TaskPayload carries the inputs for one adapter invocation.
// Exactly one of Prompt or Texts is used, depending on the capability the
// task requires: Prompt (plus optional System) for chat tasks, Texts for
// embedding tasks.
type TaskPayload struct {
	// Prompt is the user prompt for chat tasks.
	Prompt string

	// System is an optional system prompt for chat tasks.
	System string

	// Texts are the inputs for embedding tasks.
	Texts []string

	// Model overrides the adapter's configured model when non-empty.
	Model string

	// Credential is the secret drawn by the orchestrator for this attempt.
	// Empty for adapters without a credential pool.
	Credential string
}

// NormalizedResult is the uniform success shape returned by every adapter.
// Exactly one of Text or Vectors is populated, matching the invoked
// capability. Failures travel as ordinary errors, never inside the result.
type NormalizedResult struct {
	// Provider names the adapter that produced the result.
	Provider string

	// Text is the chat completion content for chat tasks.
	Text string

	// Vectors holds one embedding per input text for embedding tasks.
	Vectors [][]float32
}

// Adapter normalizes one vendor's chat/embedding API into NormalizedResult.
// Implementations are stateless except for injected credentials and must be
// safe for concurrent use.
type Adapter interface {
	// Name returns the adapter's registry name (e.g. "openai").
	Name() string

	// Can reports whether the adapter supports the capability.
	Can(c Capability) bool

	// Invoke executes the payload against the vendor API.
	// On success the result is non-nil and err is nil; on failure the
	// result is nil. A non-2xx vendor status or transport failure is a
	// provider error and feeds the caller's fallback chain.
	Invoke(ctx context.Context, payload *TaskPayload) (*NormalizedResult, error)
}

// Pooled is implemented by adapters that rotate credentials.
// The orchestrator draws one secret per attempt, advancing the pool
// cursor even when the attempt fails.
type Pooled interface {
	// Pool returns the adapter's credential pool.
	Pool() *CredentialPool
}
