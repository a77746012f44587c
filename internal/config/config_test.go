package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadParsesAndAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
queue:
  root_dir: /var/lib/gateway/queue
connector:
  server_addr: gws.example.com:7500
resender:
  timeout: 30s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "/var/lib/gateway/queue", cfg.Queue.RootDir)
	require.Equal(t, "gws.example.com:7500", cfg.Connector.ServerAddr)
	require.Equal(t, 30*time.Second, cfg.Resender.Timeout)

	require.Equal(t, 30, cfg.Queue.BatchSize)
	require.Equal(t, time.Second, cfg.Exporter.AcquireTimeout)
	require.Equal(t, 1000, cfg.Distributor.Capacity)
	require.Equal(t, 8, cfg.Executor.PoolSize)
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
