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


package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Logical task names routed by the orchestrator.
const (
	// TaskGenerateDraft produces a structured plan draft from a prompt.
	TaskGenerateDraft = "GENERATE_DRAFT"

	// TaskEmbedText produces embedding vectors for input texts.
	TaskEmbedText = "EMBED_TEXT"
)

// TaskRoute maps a logical task to an ordered adapter list: the primary
// first, then fallbacks in configured order. A given adapter never
// appears twice in one route.
type TaskRoute struct {
	Task      string
	Primary   string
	Fallbacks []string
}

// Providers returns the route's adapter names in attempt order.
func (r TaskRoute) Providers() []string {
	out := make([]string, 0, 1+len(r.Fallbacks))
	out = append(out, r.Primary)
	out = append(out, r.Fallbacks...)
	return out
}

// Validate checks the route invariants.
func (r TaskRoute) Validate() error {
	if r.Primary == "" {
		return fmt.Errorf("route %q: primary adapter required", r.Task)
	}
	seen := map[string]bool{}
	for _, name := range r.Providers() {
		if seen[name] {
			return fmt.Errorf("%w: %s in route %q", ErrDuplicateRouteAdapter, name, r.Task)
		}
		seen[name] = true
	}
	return nil
}

// ExecOptions are the operator escape hatches for a single call.
type ExecOptions struct {
	// Provider collapses the route to this single adapter, bypassing
	// fallback entirely. Not part of the failure-handling path.
	Provider string

	// Model overrides the adapter's configured model.
	Model string
}

// Orchestrator resolves logical tasks to adapter routes and executes
// them with short-circuit-on-success semantics. It is the sole entry
// point callers use to reach any vendor.
type Orchestrator struct {
	registry       *Registry
	routes         map[string]TaskRoute
	defaultRoute   TaskRoute
	attemptTimeout time.Duration
	logger         *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator) error

// WithRoute adds or replaces the route for a task.
func WithRoute(route TaskRoute) OrchestratorOption {
	return func(o *Orchestrator) error {
		if err := route.Validate(); err != nil {
			return err
		}
		o.routes[route.Task] = route
		return nil
	}
}

// WithDefaultRoute sets the route used for unknown tasks.
func WithDefaultRoute(route TaskRoute) OrchestratorOption {
	return func(o *Orchestrator) error {
		if err := route.Validate(); err != nil {
			return err
		}
		o.defaultRoute = route
		return nil
	}
}

// WithAttemptTimeout bounds each individual adapter attempt.
// A timed-out attempt is treated exactly like a failed one.
// Default is 60s; zero disables the per-attempt timeout.
func WithAttemptTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) error {
		o.attemptTimeout = d
		return nil
	}
}

// WithOrchestratorLogger sets a custom logger.
// Default is slog.Default().
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger.With("component", "orchestrator")
		return nil
	}
}

// NewOrchestrator creates an orchestrator over the given registry.
// At least one route (or a default route) should be configured before
// ExecuteTask is called.
func NewOrchestrator(registry *Registry, opts ...OrchestratorOption) (*Orchestrator, error) {
	if registry == nil {
		return nil, errors.New("registry required")
	}

	o := &Orchestrator{
		registry:       registry,
		routes:         make(map[string]TaskRoute),
		attemptTimeout: 60 * time.Second,
		logger:         slog.Default().With("component", "orchestrator"),
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// ExecuteTask resolves task to its route and tries each adapter strictly
// in order, returning the first success. Unknown tasks fall back to the
// default route. opts.Provider collapses the route to a single adapter.
//
// One credential-pool slot is consumed per attempt on pooled adapters,
// advancing pool state even when the attempt fails. Adapters are never
// attempted concurrently and never retried within one call.
func (o *Orchestrator) ExecuteTask(ctx context.Context, task string, payload *TaskPayload, opts *ExecOptions) (*NormalizedResult, error) {
	if payload == nil {
		payload = &TaskPayload{}
	}

	providers, err := o.resolve(task, opts)
	if err != nil {
		return nil, err
	}

	var attemptErrs []error
	for _, name := range providers {
		adapter, ok := o.registry.Get(name)
		if !ok {
			o.logger.Warn("route names unregistered adapter", "task", task, "provider", name)
			attemptErrs = append(attemptErrs, fmt.Errorf("%w: %s", ErrUnknownProvider, name))
			continue
		}

		result, err := o.attempt(ctx, task, adapter, payload, opts)
		if err == nil {
			return result, nil
		}

		// Caller cancellation is not a provider failure; stop here.
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, err
		}

		o.logger.Warn("provider attempt failed, advancing",
			"task", task,
			"provider", name,
			"err", err)
		attemptErrs = append(attemptErrs, fmt.Errorf("%s: %w", name, err))
	}

	return nil, fmt.Errorf("%w: %s: %w", ErrTaskExhausted, task, errors.Join(attemptErrs...))
}

// attempt runs one adapter invocation: draw a credential if pooled,
// apply the per-attempt timeout, invoke.
func (o *Orchestrator) attempt(ctx context.Context, task string, adapter Adapter, payload *TaskPayload, opts *ExecOptions) (*NormalizedResult, error) {
	// Copy so per-attempt fields never leak between adapters.
	attempt := *payload
	if opts != nil && opts.Model != "" {
		attempt.Model = opts.Model
	}

	if pooled, ok := adapter.(Pooled); ok {
		secret, err := pooled.Pool().Draw()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", adapter.Name(), err)
		}
		attempt.Credential = secret
	}

	if o.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.attemptTimeout)
		defer cancel()
	}

	o.logger.Debug("invoking provider", "task", task, "provider", adapter.Name())
	return adapter.Invoke(ctx, &attempt)
}

// resolve turns a task name plus options into an ordered provider list.
func (o *Orchestrator) resolve(task string, opts *ExecOptions) ([]string, error) {
	if opts != nil && opts.Provider != "" {
		if _, ok := o.registry.Get(opts.Provider); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, opts.Provider)
		}
		return []string{opts.Provider}, nil
	}

	route, ok := o.routes[task]
	if !ok {
		if o.defaultRoute.Primary == "" {
			return nil, fmt.Errorf("no route for task %q and no default route", task)
		}
		o.logger.Debug("unknown task, using default route", "task", task)
		route = o.defaultRoute
	}
	return route.Providers(), nil
}
