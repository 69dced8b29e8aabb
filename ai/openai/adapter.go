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


package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/planforge/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// AdapterName is the registry name for this adapter.
const AdapterName = "openai"

// Adapter implements ai.Adapter for OpenAI-compatible services.
// It is stateless except for the injected credential pool and a cache
// of per-key clients.
type Adapter struct {
	name           string
	baseURL        string
	model          string
	embeddingHost  string
	embeddingModel string
	pool           *ai.CredentialPool

	// Chat and embedding services may live on different hosts, so each
	// gets its own per-key client cache.
	mu           sync.Mutex
	clients      map[string]*openai.LLM
	embedClients map[string]*openai.LLM

	logger *slog.Logger
}

var (
	_ ai.Adapter = (*Adapter)(nil)
	_ ai.Pooled  = (*Adapter)(nil)
)

// NewAdapter creates an adapter from the shared AI configuration.
// Services that require no authentication (local Ollama and friends)
// may be configured with an empty key list; a placeholder token is used.
func NewAdapter(config *ai.Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	keys := config.OpenAIKeys
	if len(keys) == 0 {
		// Token "none" keeps local OpenAI-compatible servers happy.
		keys = []string{"none"}
	}

	return &Adapter{
		name:           AdapterName,
		baseURL:        config.OpenAIBaseURL,
		model:          config.OpenAIModel,
		embeddingHost:  config.EmbeddingHost,
		embeddingModel: config.EmbeddingModel,
		pool:           ai.NewCredentialPool(AdapterName, keys),
		clients:        make(map[string]*openai.LLM),
		embedClients:   make(map[string]*openai.LLM),
		logger:         slog.Default().With("component", "openai-adapter"),
	}, nil
}

// Name returns the registry name.
func (a *Adapter) Name() string {
	return a.name
}

// Can reports chat and embedding support.
func (a *Adapter) Can(c ai.Capability) bool {
	return c == ai.CapabilityChat || c == ai.CapabilityEmbedding
}

// Pool returns the credential pool for round-robin key rotation.
func (a *Adapter) Pool() *ai.CredentialPool {
	return a.pool
}

// Invoke executes the payload: embedding when Texts is set, chat otherwise.
func (a *Adapter) Invoke(ctx context.Context, payload *ai.TaskPayload) (*ai.NormalizedResult, error) {
	if len(payload.Texts) > 0 {
		client, err := a.client(payload.Credential, true)
		if err != nil {
			return nil, err
		}
		return a.embed(ctx, client, payload)
	}

	client, err := a.client(payload.Credential, false)
	if err != nil {
		return nil, err
	}
	return a.chat(ctx, client, payload)
}

func (a *Adapter) embed(ctx context.Context, client *openai.LLM, payload *ai.TaskPayload) (*ai.NormalizedResult, error) {
	a.logger.Debug("generating embeddings", "count", len(payload.Texts))

	vectors, err := client.CreateEmbedding(ctx, payload.Texts)
	if err != nil {
		a.logger.Error("embedding request failed", "count", len(payload.Texts), "err", err)
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(vectors) != len(payload.Texts) {
		return nil, fmt.Errorf("openai embedding: expected %d vectors, received %d", len(payload.Texts), len(vectors))
	}

	return &ai.NormalizedResult{Provider: a.name, Vectors: vectors}, nil
}

func (a *Adapter) chat(ctx context.Context, client *openai.LLM, payload *ai.TaskPayload) (*ai.NormalizedResult, error) {
	if payload.Prompt == "" {
		return nil, errors.New("openai chat: empty prompt")
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

	opts := []llms.CallOption{llms.WithTemperature(0.0), llms.WithJSONMode()}
	if payload.Model != "" {
		opts = append(opts, llms.WithModel(payload.Model))
	}

	response, err := client.GenerateContent(ctx, content, opts...)
	if err != nil {
		a.logger.Error("chat request failed", "err", err)
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(response.Choices) < 1 {
		return nil, errors.New("openai chat: no choices returned")
	}

	return &ai.NormalizedResult{Provider: a.name, Text: response.Choices[0].Content}, nil
}

// client returns the cached client for the credential, building it on
// first use. Keys rotate per attempt, so each cache stays small (one
// client per pool secret).
func (a *Adapter) client(credential string, embed bool) (*openai.LLM, error) {
	if credential == "" {
		credential = "none"
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cache := a.clients
	baseURL := a.baseURL
	if embed {
		cache = a.embedClients
		baseURL = a.embeddingHost
	}

	if client, ok := cache[credential]; ok {
		return client, nil
	}

	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(credential),
		openai.WithModel(a.model),
		openai.WithEmbeddingModel(a.embeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}

	cache[credential] = client
	return client, nil
}
