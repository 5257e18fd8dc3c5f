package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkixbridge/bridge/pkg/config"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadHashesPassword(t *testing.T) {
	path := writeTempConfig(t, `
account: "1001"
password: "hunter2"
server_url: "http://mkix.example"
OneBot_url: "ws://onebot.example/ws"
max_memo_size: 100
ssl_check: true
webp: false
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.NotEqual(t, "hunter2", cfg.Password)
	assert.Len(t, cfg.Password, 32)
}

func TestLoadRejectsMissingFields(t *testing.T) {
	path := writeTempConfig(t, `
account: "1001"
`)

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestEncryptKeyFor(t *testing.T) {
	path := writeTempConfig(t, `
account: "1001"
password: "hunter2"
server_url: "http://mkix.example"
OneBot_url: "ws://onebot.example/ws"
max_memo_size: 100
encrypt:
  g1: "0123456789abcdef"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	key, ok := cfg.EncryptKeyFor("g1")
	assert.True(t, ok)
	assert.Equal(t, "0123456789abcdef", key)

	_, ok = cfg.EncryptKeyFor("missing")
	assert.False(t, ok)
}
