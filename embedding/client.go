// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/planforge/ai"
)

// Executor is the slice of the orchestrator the client needs.
// *ai.Orchestrator satisfies it.
type Executor interface {
	ExecuteTask(ctx context.Context, task string, payload *ai.TaskPayload, opts *ai.ExecOptions) (*ai.NormalizedResult, error)
}

// Result is one embedding outcome. Degraded marks a placeholder vector
// produced after provider exhaustion; callers that need strict
// correctness must check it.
type Result struct {
	Vector   []float32
	Degraded bool
}

// Embedder is the embedding contract consumed by retrieval and
// ingestion. Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed generates a unit-normalized vector of the store's target
	// dimension for the text.
	Embed(ctx context.Context, text string) (Result, error)
}

// Client embeds text through the orchestrator's EMBED_TEXT route,
// guarded by a circuit breaker and the shared retry combinator.
// On total provider failure it degrades to a deterministic placeholder
// vector instead of returning an error.
type Client struct {
	exec    Executor
	dims    int
	breaker *ai.CircuitBreaker
	retry   ai.RetryPolicy
	logger  *slog.Logger
}

var _ Embedder = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy ai.RetryPolicy) Option {
	return func(c *Client) error {
		if policy.MaxAttempts <= 0 {
			return ai.ErrInvalidMaxAttempts
		}
		c.retry = policy
		return nil
	}
}

// WithBreaker overrides the default circuit breaker.
func WithBreaker(breaker *ai.CircuitBreaker) Option {
	return func(c *Client) error {
		c.breaker = breaker
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "embedding-client")
		return nil
	}
}

// NewClient creates an embedding client targeting dims-dimension vectors.
func NewClient(exec Executor, dims int, opts ...Option) (*Client, error) {
	if exec == nil {
		return nil, errors.New("executor required")
	}
	if dims < 1 {
		return nil, fmt.Errorf("target dimension must be positive, got %d", dims)
	}

	c := &Client{
		exec:    exec,
		dims:    dims,
		breaker: ai.NewCircuitBreaker(5, 30*time.Second),
		retry:   ai.DefaultRetryPolicy(),
		logger:  slog.Default().With("component", "embedding-client"),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Dimension returns the target vector dimension.
func (c *Client) Dimension() int {
	return c.dims
}

// Embed generates an embedding for text. The returned vector always has
// the target dimension and unit length. After retry and circuit-breaker
// exhaustion it returns a degraded placeholder rather than an error;
// the Degraded flag is the only signal.
func (c *Client) Embed(ctx context.Context, text string) (Result, error) {
	var raw []float32

	operation := func() error {
		result, err := c.exec.ExecuteTask(ctx, ai.TaskEmbedText, &ai.TaskPayload{Texts: []string{text}}, nil)
		if err != nil {
			return err
		}
		if len(result.Vectors) != 1 {
			return fmt.Errorf("expected 1 vector, received %d", len(result.Vectors))
		}
		raw = result.Vectors[0]
		return nil
	}

	if err := c.retry.Do(ctx, c.breaker, operation); err != nil {
		c.logger.Warn("embedding degraded to placeholder vector",
			"textLength", len(text),
			"err", err)
		return Result{Vector: placeholderVector(text, c.dims), Degraded: true}, nil
	}

	if len(raw) != c.dims {
		// Compatibility shim, not a semantic operation: keep it loud in
		// the logs so dimension drift is visible.
		c.logger.Warn("normalizing embedding dimension",
			"received", len(raw),
			"target", c.dims)
		raw = Normalize(raw, c.dims)
	}

	return Result{Vector: UnitNorm(raw)}, nil
}
