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


package generate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/planforge/ai"
	"github.com/poiesic/planforge/core"
)

// DefaultMaxContextChars bounds the retrieved context included in a
// prompt. Chunks past the budget are dropped whole, never truncated
// mid-chunk.
const DefaultMaxContextChars = 12000

// Executor is the slice of the orchestrator the pipeline needs.
// *ai.Orchestrator satisfies it.
type Executor interface {
	ExecuteTask(ctx context.Context, task string, payload *ai.TaskPayload, opts *ai.ExecOptions) (*ai.NormalizedResult, error)
}

// Request carries the inputs for one draft generation.
type Request struct {
	Subject   string
	Retrieved []*core.Chunk
}

// Pipeline turns a subject plus retrieved knowledge into a validated
// plan draft.
type Pipeline struct {
	exec            Executor
	maxContextChars int
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithMaxContextChars overrides the context character budget.
func WithMaxContextChars(limit int) Option {
	return func(p *Pipeline) error {
		if limit < 1 {
			return errors.New("context budget must be positive")
		}
		p.maxContextChars = limit
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "generate-pipeline")
		return nil
	}
}

// NewPipeline creates a generation pipeline over the executor.
func NewPipeline(exec Executor, opts ...Option) (*Pipeline, error) {
	if exec == nil {
		return nil, errors.New("executor required")
	}

	p := &Pipeline{
		exec:            exec,
		maxContextChars: DefaultMaxContextChars,
		logger:          slog.Default().With("component", "generate-pipeline"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Generate produces a validated plan draft for the request. Model output
// that cannot be parsed returns *ParseError; a parsed draft that
// violates the plan schema returns *ValidationError. There is no
// automatic regeneration on either, the caller decides whether to retry.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*core.PlanDraft, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return nil, errors.New("subject required")
	}

	chunks := p.boundContext(req.Retrieved)
	prompt, err := renderUserPrompt(req.Subject, chunks)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("generating plan draft",
		"subject", req.Subject,
		"contextChunks", len(chunks))

	result, err := p.exec.ExecuteTask(ctx, ai.TaskGenerateDraft, &ai.TaskPayload{
		Prompt: prompt,
		System: systemPrompt,
	}, nil)
	if err != nil {
		return nil, err
	}

	draft, err := parseDraft(result.Text)
	if err != nil {
		return nil, err
	}

	if err := draft.Validate(); err != nil {
		p.logger.Warn("generated draft failed schema validation",
			"subject", req.Subject,
			"err", err)
		return nil, &ValidationError{Err: err}
	}

	return draft, nil
}

// boundContext keeps the highest-ranked chunks that fit the character
// budget. Retrieval order is preserved.
func (p *Pipeline) boundContext(chunks []*core.Chunk) []*core.Chunk {
	kept := make([]*core.Chunk, 0, len(chunks))
	used := 0
	for _, chunk := range chunks {
		if chunk == nil {
			continue
		}
		length := chunk.CharLength
		if length == 0 {
			length = len([]rune(chunk.Text))
		}
		if used+length > p.maxContextChars {
			p.logger.Debug("context budget reached, dropping remaining chunks",
				"kept", len(kept),
				"dropped", len(chunks)-len(kept))
			break
		}
		kept = append(kept, chunk)
		used += length
	}
	return kept
}

// parseDraft strips code fences, repairs common JSON defects, and
// unmarshals the model output.
func parseDraft(raw string) (*core.PlanDraft, error) {
	text := stripCodeFences(raw)
	text = repairJSON(text)

	var draft core.PlanDraft
	if err := json.Unmarshal([]byte(text), &draft); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	return &draft, nil
}
