// Copyright 2025 Coverdesk
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
	"strings"
	"time"
)

// Config holds configuration for the AI collaborators.
type Config struct {
	// ParserURL is the base URL of the text extraction service.
	ParserURL string

	// ParserAPIKey authenticates against the extraction service.
	ParserAPIKey string

	// ParserTimeout bounds a single parse call. Default: 300s.
	ParserTimeout time.Duration

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server.
	EmbeddingHost string

	// EmbeddingModel is the model identifier for text embeddings.
	EmbeddingModel string

	// EmbeddingAPIKey authenticates against the embedding service.
	// "none" works for local services without authentication.
	EmbeddingAPIKey string

	// TaggerHost is the base URL for the tagging LLM API. Empty disables the
	// tagging stage.
	TaggerHost string

	// TaggerModel is the chat model used for document tagging.
	TaggerModel string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithParser sets the extraction service endpoint and key.
func WithParser(url, apiKey string) ConfigOption {
	return func(c *Config) {
		c.ParserURL = url
		c.ParserAPIKey = apiKey
	}
}

// WithParserTimeout sets the per-call parse timeout.
func WithParserTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.ParserTimeout = d
	}
}

// WithEmbedding sets the embedding service host and model.
func WithEmbedding(host, model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.EmbeddingModel = model
	}
}

// WithEmbeddingAPIKey sets the embedding service credential.
func WithEmbeddingAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingAPIKey = key
	}
}

// WithTagger enables the tagging stage against the given host and model.
func WithTagger(host, model string) ConfigOption {
	return func(c *Config) {
		c.TaggerHost = host
		c.TaggerModel = model
	}
}

// DefaultConfig returns a Config with defaults for local OpenAI-compatible
// services. The parser has no usable default and must be configured.
func DefaultConfig() *Config {
	return &Config{
		ParserTimeout:   300 * time.Second,
		EmbeddingHost:   "http://localhost:11434/v1",
		EmbeddingModel:  "embeddinggemma",
		EmbeddingAPIKey: "none",
	}
}

// NewConfig creates a Config with defaults and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures hosts are in the canonical form OpenAI-compatible APIs
// expect (a /v1 suffix).
func (c *Config) Normalize() {
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/") + "/v1"
	}
	if c.TaggerHost != "" && !strings.HasSuffix(c.TaggerHost, "/v1") {
		c.TaggerHost = strings.TrimSuffix(c.TaggerHost, "/") + "/v1"
	}
}

// Validate checks that the configuration is valid and complete. It
// normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ParserTimeout <= 0 {
		return errors.New("ai config: ParserTimeout must be positive")
	}
	if c.TaggerHost != "" && c.TaggerModel == "" {
		return errors.New("ai config: TaggerModel is required when TaggerHost is set")
	}
	return nil
}

// TaggingEnabled reports whether the optional tagging stage is configured.
func (c *Config) TaggingEnabled() bool {
	return c.TaggerHost != ""
}
