// Package embedding turns text into fixed-dimension vectors via the
// provider orchestration layer, with dimension normalization and a
// degraded-mode fallback that favors availability over strictness.
package embedding
