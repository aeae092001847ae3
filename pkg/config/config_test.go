package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "embedded", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Graph.DefaultDepth)
	assert.False(t, cfg.Graph.CreateMissingNodes)
	assert.False(t, cfg.CircuitBreaker.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NEO4J_URI", "bolt://graph.example.com:7687")
	t.Setenv("NEO4J_USER", "svc")
	t.Setenv("NEO4J_PASSWORD", "hunter2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "neo4j", cfg.Database.Driver, "a Neo4j URI selects the neo4j driver")
	assert.Equal(t, "bolt://graph.example.com:7687", cfg.Database.URI)
	assert.Equal(t, "svc", cfg.Database.Username)
	assert.Equal(t, "hunter2", cfg.Database.Password)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
log:
  level: debug
  format: json
database:
  driver: embedded
  uri: /var/lib/graphmodel
graph:
  default_depth: 2
  bulk_concurrency: 4
circuit_breaker:
  enabled: true
  failure_threshold: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/var/lib/graphmodel", cfg.Database.URI)
	assert.Equal(t, 2, cfg.Graph.DefaultDepth)
	assert.Equal(t, 4, cfg.Graph.BulkConcurrency)
	assert.True(t, cfg.CircuitBreaker.Enabled)
	assert.Equal(t, uint32(3), cfg.CircuitBreaker.FailureThreshold)
}
