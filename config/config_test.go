package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(embeddingAPIKeyEnv, "")

	cfg := Load()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 300, cfg.AI.ParserTimeoutSeconds)
	assert.Equal(t, 480, cfg.Pipeline.RunBudgetSeconds)
	assert.Equal(t, 2000, cfg.Pipeline.TargetChunkChars)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  addr: ":9090"
ai:
  embeddingModel: "text-embedding-3-large"
pipeline:
  embedConcurrency: 4
  trustPageNumbers: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(listenAddrEnv, "")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "text-embedding-3-large", cfg.AI.EmbeddingModel)
	assert.Equal(t, 4, cfg.Pipeline.EmbedConcurrency)
	assert.True(t, cfg.Pipeline.TrustPageNumbers)
	// Unset fields keep defaults.
	assert.Equal(t, 480, cfg.Pipeline.RunBudgetSeconds)
	assert.Equal(t, "https://api.openai.com", cfg.AI.EmbeddingHost)
}

func TestLoadIgnoresUnreadableFile(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv(databaseDSNEnv, "")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadIgnoresMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))
	t.Setenv(configPathEnv, path)

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
database:
  dsn: "postgres://file@localhost/db"
ai:
  embeddingApiKey: "from-file"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "postgres://env@localhost/db")
	t.Setenv(embeddingAPIKeyEnv, "sk-from-env")
	t.Setenv(listenAddrEnv, ":7070")

	cfg := Load()

	assert.Equal(t, "postgres://env@localhost/db", cfg.Database.DSN)
	assert.Equal(t, "sk-from-env", cfg.AI.EmbeddingAPIKey)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}
