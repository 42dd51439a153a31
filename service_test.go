package docpipe

import (
	"context"
	"testing"

	"github.com/coverdesk/docpipe/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Server:   config.ServerConfig{Addr: ":0"},
		Database: config.DatabaseConfig{DSN: "memory"},
		Blob:     config.BlobConfig{Root: t.TempDir()},
		Cache:    config.CacheConfig{Enabled: true},
		AI: config.AIConfig{
			EmbeddingHost:        "http://localhost:11434/v1",
			EmbeddingModel:       "embeddinggemma",
			ParserTimeoutSeconds: 300,
		},
		Pipeline: config.PipelineConfig{RunBudgetSeconds: 480},
	}
}

func TestNewService(t *testing.T) {
	t.Run("create service with in-memory store", func(t *testing.T) {
		svc, err := NewService(context.Background(), testConfig(t))
		require.NoError(t, err)
		require.NotNil(t, svc)
		defer svc.Close()

		assert.NotNil(t, svc.Pipeline())
		assert.NotNil(t, svc.Queue())
		assert.NotNil(t, svc.Store())
		assert.NotNil(t, svc.Server())
		assert.NotNil(t, svc.cache)
	})

	t.Run("cache disabled leaves embedder unwrapped", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Cache.Enabled = false

		svc, err := NewService(context.Background(), cfg)
		require.NoError(t, err)
		defer svc.Close()

		assert.Nil(t, svc.cache)
	})

	t.Run("error with missing blob root", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Blob.Root = "/nonexistent/blob/root"

		_, err := NewService(context.Background(), cfg)
		require.Error(t, err)
	})

	t.Run("tagger requires model", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.AI.TaggerHost = "http://localhost:11434"
		cfg.AI.TaggerModel = ""

		_, err := NewService(context.Background(), cfg)
		require.Error(t, err)
	})
}

func TestServiceClose(t *testing.T) {
	svc, err := NewService(context.Background(), testConfig(t))
	require.NoError(t, err)
	require.NoError(t, svc.Close())
}
