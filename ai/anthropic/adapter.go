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


package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/planforge/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
)

// AdapterName is the registry name for this adapter.
const AdapterName = "anthropic"

// Adapter implements ai.Adapter for the Anthropic messages API.
type Adapter struct {
	name  string
	model string
	pool  *ai.CredentialPool

	mu      sync.Mutex
	clients map[string]*anthropic.LLM

	logger *slog.Logger
}

var (
	_ ai.Adapter = (*Adapter)(nil)
	_ ai.Pooled  = (*Adapter)(nil)
)

// NewAdapter creates an Anthropic adapter. Unlike local OpenAI-compatible
// services, Anthropic always requires at least one API key; a missing key
// is a configuration error fatal for this adapter only.
func NewAdapter(config *ai.Config) (*Adapter, error) {
	if config.AnthropicModel == "" {
		return nil, errors.New("anthropic adapter: model is required")
	}
	pool := ai.NewCredentialPool(AdapterName, config.AnthropicKeys)
	if pool.Size() == 0 {
		return nil, fmt.Errorf("anthropic adapter: %w", ai.ErrMissingAPIKey)
	}

	return &Adapter{
		name:    AdapterName,
		model:   config.AnthropicModel,
		pool:    pool,
		clients: make(map[string]*anthropic.LLM),
		logger:  slog.Default().With("component", "anthropic-adapter"),
	}, nil
}

// Name returns the registry name.
func (a *Adapter) Name() string {
	return a.name
}

// Can reports chat support only.
func (a *Adapter) Can(c ai.Capability) bool {
	return c == ai.CapabilityChat
}

// Pool returns the credential pool for round-robin key rotation.
func (a *Adapter) Pool() *ai.CredentialPool {
	return a.pool
}

// Invoke executes a chat payload. Embedding payloads are rejected.
func (a *Adapter) Invoke(ctx context.Context, payload *ai.TaskPayload) (*ai.NormalizedResult, error) {
	if len(payload.Texts) > 0 {
		return nil, fmt.Errorf("anthropic: %w", ai.ErrNotCapable)
	}
	if payload.Prompt == "" {
		return nil, errors.New("anthropic chat: empty prompt")
	}

	client, err := a.client(payload.Credential)
	if err != nil {
		return nil, err
	}

	content := make([]llms.MessageContent, 0, 2)
	if payload.System != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(payload.System)},
		})
	}
	content = append(content, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(payload.Prompt)},
	})

	opts := []llms.CallOption{llms.WithTemperature(0.0)}
	if payload.Model != "" {
		opts = append(opts, llms.WithModel(payload.Model))
	}

	response, err := client.GenerateContent(ctx, content, opts...)
	if err != nil {
		a.logger.Error("chat request failed", "err", err)
		return nil, fmt.Errorf("anthropic chat: %w", err)
	}
	if len(response.Choices) < 1 {
		return nil, errors.New("anthropic chat: no choices returned")
	}

	return &ai.NormalizedResult{Provider: a.name, Text: response.Choices[0].Content}, nil
}

func (a *Adapter) client(credential string) (*anthropic.LLM, error) {
	if credential == "" {
		return nil, fmt.Errorf("anthropic client: %w", ai.ErrMissingAPIKey)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if client, ok := a.clients[credential]; ok {
		return client, nil
	}

	client, err := anthropic.New(
		anthropic.WithToken(credential),
		anthropic.WithModel(a.model),
	)
	if err != nil {
		return nil, fmt.Errorf("anthropic client: %w", err)
	}

	a.clients[credential] = client
	return client, nil
}
