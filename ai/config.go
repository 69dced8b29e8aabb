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
	"errors"
	"os"
	"strconv"
	"strings"
)

// Environment variable names for the configuration surface.
// Key variables accept a comma-separated pool of secrets for rotation.
const (
	EnvOpenAIKeys      = "PLANFORGE_OPENAI_API_KEYS"
	EnvOpenAIBaseURL   = "PLANFORGE_OPENAI_BASE_URL"
	EnvOpenAIModel     = "PLANFORGE_OPENAI_MODEL"
	EnvAnthropicKeys   = "PLANFORGE_ANTHROPIC_API_KEYS"
	EnvAnthropicModel  = "PLANFORGE_ANTHROPIC_MODEL"
	EnvEmbeddingHost   = "PLANFORGE_EMBEDDING_HOST"
	EnvEmbeddingModel  = "PLANFORGE_EMBEDDING_MODEL"
	EnvEmbeddingDim    = "PLANFORGE_EMBEDDING_DIMENSION"
	EnvChunkSize       = "PLANFORGE_CHUNK_SIZE"
	EnvChunkOverlap    = "PLANFORGE_CHUNK_OVERLAP"
	EnvTopK            = "PLANFORGE_TOP_K"
	EnvMinSimilarity   = "PLANFORGE_MIN_SIMILARITY"
)

// Config holds configuration for vendor adapters and pipeline defaults.
type Config struct {
	// OpenAIBaseURL is the base URL for the OpenAI-compatible chat API.
	// Example: "http://localhost:11434/v1" for a local server.
	OpenAIBaseURL string

	// OpenAIModel is the chat model identifier for the OpenAI adapter.
	OpenAIModel string

	// OpenAIKeys is the credential pool for the OpenAI adapter.
	OpenAIKeys []string

	// AnthropicModel is the chat model identifier for the Anthropic adapter.
	AnthropicModel string

	// AnthropicKeys is the credential pool for the Anthropic adapter.
	AnthropicKeys []string

	// EmbeddingHost is the base URL for the embedding service API.
	EmbeddingHost string

	// EmbeddingModel is the model identifier for text embeddings.
	EmbeddingModel string

	// EmbeddingDimension is the target dimension every stored vector is
	// normalized to. Default: 768.
	EmbeddingDimension int

	// ChunkSize is the default fixed-window chunk size in characters.
	ChunkSize int

	// ChunkOverlap is the default overlap between consecutive chunks.
	ChunkOverlap int

	// TopK is the default retrieval result limit.
	TopK int

	// MinSimilarity is the default minimum similarity gate for retrieval.
	MinSimilarity float32
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithOpenAI configures the OpenAI-compatible chat adapter.
func WithOpenAI(baseURL, model string, keys []string) ConfigOption {
	return func(c *Config) {
		c.OpenAIBaseURL = baseURL
		c.OpenAIModel = model
		c.OpenAIKeys = keys
	}
}

// WithAnthropic configures the Anthropic chat adapter.
func WithAnthropic(model string, keys []string) ConfigOption {
	return func(c *Config) {
		c.AnthropicModel = model
		c.AnthropicKeys = keys
	}
}

// WithEmbedding configures the embedding service.
func WithEmbedding(host, model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.EmbeddingModel = model
	}
}

// WithEmbeddingDimension sets the target embedding dimension.
func WithEmbeddingDimension(dims int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingDimension = dims
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services.
func DefaultConfig() *Config {
	return &Config{
		OpenAIBaseURL:      "http://localhost:11434/v1",
		OpenAIModel:        "qwen2.5:3b",
		EmbeddingHost:      "http://localhost:11434/v1",
		EmbeddingModel:     "embeddinggemma",
		AnthropicModel:     "claude-3-5-haiku-latest",
		EmbeddingDimension: 768,
		ChunkSize:          1000,
		ChunkOverlap:       100,
		TopK:               5,
		MinSimilarity:      0.2,
	}
}

// NewConfig creates a Config with default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// ConfigFromEnv builds a Config from the environment, starting from the
// defaults. Unset variables leave the default in place.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv(EnvOpenAIBaseURL); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv(EnvOpenAIModel); v != "" {
		cfg.OpenAIModel = v
	}
	if v := os.Getenv(EnvOpenAIKeys); v != "" {
		cfg.OpenAIKeys = ParseKeyList(v)
	}
	if v := os.Getenv(EnvAnthropicModel); v != "" {
		cfg.AnthropicModel = v
	}
	if v := os.Getenv(EnvAnthropicKeys); v != "" {
		cfg.AnthropicKeys = ParseKeyList(v)
	}
	if v := os.Getenv(EnvEmbeddingHost); v != "" {
		cfg.EmbeddingHost = v
	}
	if v := os.Getenv(EnvEmbeddingModel); v != "" {
		cfg.EmbeddingModel = v
	}
	if v, err := strconv.Atoi(os.Getenv(EnvEmbeddingDim)); err == nil && v > 0 {
		cfg.EmbeddingDimension = v
	}
	if v, err := strconv.Atoi(os.Getenv(EnvChunkSize)); err == nil && v > 0 {
		cfg.ChunkSize = v
	}
	if v, err := strconv.Atoi(os.Getenv(EnvChunkOverlap)); err == nil && v >= 0 {
		cfg.ChunkOverlap = v
	}
	if v, err := strconv.Atoi(os.Getenv(EnvTopK)); err == nil && v > 0 {
		cfg.TopK = v
	}
	if v, err := strconv.ParseFloat(os.Getenv(EnvMinSimilarity), 32); err == nil {
		cfg.MinSimilarity = float32(v)
	}

	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// Hosts get the /v1 suffix required by OpenAI-compatible APIs
// (Ollama, LocalAI, vLLM, etc) when it is missing.
func (c *Config) Normalize() {
	c.OpenAIBaseURL = normalizeHost(c.OpenAIBaseURL)
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.OpenAIBaseURL == "" {
		return errors.New("ai config: OpenAIBaseURL is required")
	}
	if c.OpenAIModel == "" {
		return errors.New("ai config: OpenAIModel is required")
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.EmbeddingDimension < 1 {
		return errors.New("ai config: EmbeddingDimension must be positive")
	}
	if c.ChunkSize < 1 {
		return errors.New("ai config: ChunkSize must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap*2 >= c.ChunkSize {
		return errors.New("ai config: ChunkOverlap must be non-negative and less than half of ChunkSize")
	}
	return nil
}
