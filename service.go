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

package docpipe

import (
	"context"
	"log/slog"
	"time"

	"github.com/coverdesk/docpipe/ai"
	"github.com/coverdesk/docpipe/ai/docparse"
	"github.com/coverdesk/docpipe/ai/local"
	"github.com/coverdesk/docpipe/ai/openai"
	"github.com/coverdesk/docpipe/blob"
	"github.com/coverdesk/docpipe/cache"
	"github.com/coverdesk/docpipe/chunker"
	"github.com/coverdesk/docpipe/config"
	"github.com/coverdesk/docpipe/ingestion"
	"github.com/coverdesk/docpipe/queue"
	"github.com/coverdesk/docpipe/server"
	"github.com/coverdesk/docpipe/storage"
	"github.com/coverdesk/docpipe/storage/memory"
	"github.com/coverdesk/docpipe/storage/postgres"
)

// Service wires storage, queueing, blob access, AI services and the
// ingestion pipeline into one composable unit.
type Service struct {
	store    storage.Store
	queue    *queue.Manager
	cache    *cache.EmbeddingCache
	provider ai.Provider
	pipeline *ingestion.Pipeline
	hub      *server.Hub
	server   *server.Server
	logger   *slog.Logger
}

// cachingProvider swaps the provider's embedder for a cache-backed one.
type cachingProvider struct {
	ai.Provider
	embedder ai.Embedder
}

func (p *cachingProvider) Embedder() ai.Embedder { return p.embedder }

// NewService builds the full service from configuration. A DSN of "memory"
// (or empty) selects the in-memory store, which is useful for local
// development and tests.
func NewService(ctx context.Context, cfg config.Config) (*Service, error) {
	store, err := openStore(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	downloader, err := blob.NewFileStore(cfg.Blob.Root)
	if err != nil {
		store.Close()
		return nil, err
	}

	provider, embeddingCache, err := buildProvider(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	manager := queue.NewManager(store)
	hub := server.NewHub()
	hub.Start()

	chunkOpts := []chunker.Option{}
	if cfg.Pipeline.TargetChunkChars > 0 {
		chunkOpts = append(chunkOpts, chunker.WithTargetChars(cfg.Pipeline.TargetChunkChars))
	}
	if cfg.Pipeline.OverlapChars > 0 {
		chunkOpts = append(chunkOpts, chunker.WithOverlapChars(cfg.Pipeline.OverlapChars))
	}
	if cfg.Pipeline.TrustPageNumbers {
		chunkOpts = append(chunkOpts, chunker.WithTrustPageNumbers())
	}

	pipelineOpts := []ingestion.Option{
		ingestion.WithNotifier(hub),
		ingestion.WithChunker(chunker.New(chunkOpts...)),
	}
	if cfg.Pipeline.RunBudgetSeconds > 0 {
		pipelineOpts = append(pipelineOpts,
			ingestion.WithRunBudget(time.Duration(cfg.Pipeline.RunBudgetSeconds)*time.Second))
	}
	if cfg.Pipeline.EmbedConcurrency > 1 {
		pipelineOpts = append(pipelineOpts,
			ingestion.WithEmbedConcurrency(cfg.Pipeline.EmbedConcurrency))
	}

	pipeline, err := ingestion.NewPipeline(store, manager, downloader, provider, pipelineOpts...)
	if err != nil {
		hub.Stop()
		if embeddingCache != nil {
			embeddingCache.Close()
		}
		provider.Close()
		store.Close()
		return nil, err
	}

	return &Service{
		store:    store,
		queue:    manager,
		cache:    embeddingCache,
		provider: provider,
		pipeline: pipeline,
		hub:      hub,
		server:   server.NewServer(cfg.Server.Addr, pipeline, store, hub),
		logger:   slog.Default().With("component", "service"),
	}, nil
}

func openStore(ctx context.Context, dsn string) (storage.Store, error) {
	if dsn == "" || dsn == "memory" {
		return memory.NewStore(), nil
	}
	return postgres.Open(ctx, dsn)
}

func buildProvider(cfg config.Config) (ai.Provider, *cache.EmbeddingCache, error) {
	aiOpts := []ai.ConfigOption{
		ai.WithEmbedding(cfg.AI.EmbeddingHost, cfg.AI.EmbeddingModel),
	}
	if cfg.AI.EmbeddingAPIKey != "" {
		aiOpts = append(aiOpts, ai.WithEmbeddingAPIKey(cfg.AI.EmbeddingAPIKey))
	}
	if cfg.AI.ParserURL != "" {
		aiOpts = append(aiOpts, ai.WithParser(cfg.AI.ParserURL, cfg.AI.ParserAPIKey))
	}
	if cfg.AI.ParserTimeoutSeconds > 0 {
		aiOpts = append(aiOpts,
			ai.WithParserTimeout(time.Duration(cfg.AI.ParserTimeoutSeconds)*time.Second))
	}
	if cfg.AI.TaggerHost != "" {
		aiOpts = append(aiOpts, ai.WithTagger(cfg.AI.TaggerHost, cfg.AI.TaggerModel))
	}
	aiConfig := ai.NewConfig(aiOpts...)

	var parser ai.DocumentParser
	if cfg.AI.LocalParser || cfg.AI.ParserURL == "" {
		parser = local.NewParser()
	} else {
		var err error
		parser, err = docparse.NewClient(aiConfig)
		if err != nil {
			return nil, nil, err
		}
	}

	provider, err := openai.NewProvider(aiConfig, parser)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.Cache.Enabled {
		return provider, nil, nil
	}

	embeddingCache, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		provider.Close()
		return nil, nil, err
	}
	return &cachingProvider{
		Provider: provider,
		embedder: cache.NewCachingEmbedder(provider.Embedder(), embeddingCache),
	}, embeddingCache, nil
}

// Pipeline returns the ingestion pipeline.
func (s *Service) Pipeline() *ingestion.Pipeline { return s.pipeline }

// Queue returns the job queue manager.
func (s *Service) Queue() *queue.Manager { return s.queue }

// Store returns the storage backend.
func (s *Service) Store() storage.Store { return s.store }

// Server returns the HTTP server.
func (s *Service) Server() *server.Server { return s.server }

// Close releases all resources in reverse construction order.
func (s *Service) Close() error {
	s.pipeline.Release()
	s.hub.Stop()

	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Error("error closing embedding cache", "err", err)
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing storage backend", "err", err)
		return err
	}
	return nil
}
