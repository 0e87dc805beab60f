package params

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9090")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("NODE_URL", "http://node:1234")
	t.Setenv("NODE_TIMEOUT_MS", "1500")
	t.Setenv("CONFIRM_TIMEOUT_MS", "not-a-number")
	t.Setenv("CHAIN_ID", "42161")
	t.Setenv("LADDER_REMAINDER_TO_LAST", "true")
	t.Setenv("LOG_MAX_BACKUPS", "9")

	cfg := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, ":9090", cfg.API.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.CORSOrigins)
	assert.Equal(t, "http://node:1234", cfg.Node.URL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Node.Timeout)
	assert.Equal(t, Default().Node.ConfirmTimeout, cfg.Node.ConfirmTimeout)
	assert.Equal(t, int64(42161), cfg.Orders.ChainID)
	assert.True(t, cfg.Orders.LadderRemainderToLast)
	assert.Equal(t, 9, cfg.Log.MaxBackups)
	assert.Empty(t, cfg.Log.File)
}

func TestLoadFromEnv_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MARKETS_FILE=markets.yaml\nLOG_FILE=/tmp/desk.log\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("MARKETS_FILE")
		os.Unsetenv("LOG_FILE")
	})

	cfg := LoadFromEnv(path)

	assert.Equal(t, "markets.yaml", cfg.Orders.MarketsFile)
	assert.Equal(t, "/tmp/desk.log", cfg.Log.File)
	assert.Equal(t, Default().API, cfg.API)
}
