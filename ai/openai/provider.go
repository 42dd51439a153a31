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


package openai

import (
	"log/slog"

	"github.com/coverdesk/docpipe/ai"
)

// Provider implements ai.Provider using OpenAI-compatible services for
// embedding and tagging. The document parser is injected since extraction
// runs against a dedicated service (ai/docparse) or locally (ai/local).
type Provider struct {
	config   *ai.Config
	embedder *Embedder
	tagger   *Tagger
	parser   ai.DocumentParser
	logger   *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// NewProvider creates a provider with OpenAI-compatible embedding and
// tagging services and the given parser. The tagger is only created when the
// config enables tagging.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction.
func NewProvider(config *ai.Config, parser ai.DocumentParser) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	var tagger *Tagger
	if config.TaggingEnabled() {
		tagger, err = newTagger(config)
		if err != nil {
			return nil, err
		}
	}

	return &Provider{
		config:   config,
		embedder: embedder,
		tagger:   tagger,
		parser:   parser,
		logger:   slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Parser returns the document extraction service.
func (p *Provider) Parser() ai.DocumentParser {
	return p.parser
}

// Tagger returns the tagging service, or nil when tagging is disabled.
func (p *Provider) Tagger() ai.Tagger {
	if p.tagger == nil {
		return nil
	}
	return p.tagger
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
