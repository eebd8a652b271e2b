package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8082, cfg.Server.SyncPort)
	assert.Equal(t, 3002, cfg.Server.InvoicingPort)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, 30*24*time.Hour, cfg.Invoicing.Expiry)
	assert.Equal(t, "http://localhost:3002", cfg.Invoicing.PublicBaseURL)
	assert.Equal(t, "Centro Histórico", cfg.Invoicing.Zones["ZONA_001"].Name)
	assert.Equal(t, 5*time.Second, cfg.Relay.Interval)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  sync_port: 9000
store:
  backend: database
invoicing:
  public_base_url: https://facturas.example.com/
  expiry_days: 7
  zones:
    Z1:
      name: Puerto
      price_per_hour: 1.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("MEYPARK_SYNC_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.SyncPort)
	assert.Equal(t, "database", cfg.Store.Backend)
	assert.Equal(t, "https://facturas.example.com", cfg.Invoicing.PublicBaseURL)
	assert.Equal(t, 7*24*time.Hour, cfg.Invoicing.Expiry)
	assert.Equal(t, ZoneInfo{Name: "Puerto", PricePerHour: 1.5}, cfg.Invoicing.Zones["Z1"])
	assert.Equal(t, "http://localhost:9100/api/data", cfg.Relay.UpstreamURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
