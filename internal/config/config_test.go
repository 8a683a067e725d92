package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRead(t *testing.T) {
	path := writeConfig(t, `
app:
  name: Demo dApp
  description: session demo
  url: https://demo.example
  icons:
    - https://demo.example/icon.png
chain_id: 137
walletconnect_project_id: proj-1
rpc_node: https://rpc.example
wallet_endpoint: ws://127.0.0.1:1248
redis:
  address: 127.0.0.1
  port: "6379"
  db: 2
log_level: 3
`)

	conf, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "Demo dApp", conf.App.Name)
	assert.Equal(t, uint64(137), conf.ChainID)
	assert.Equal(t, "proj-1", conf.WalletConnectProjectID)
	assert.Equal(t, "ws://127.0.0.1:1248", conf.WalletEndpoint)
	require.NotNil(t, conf.Redis)
	assert.Equal(t, "127.0.0.1:6379", conf.Redis.Addr())
	assert.Equal(t, 2, conf.Redis.DB)
	assert.Equal(t, 3, conf.LogLevel)
}

func TestReadDefaultsChainID(t *testing.T) {
	path := writeConfig(t, `
app:
  name: Demo dApp
`)
	conf, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), conf.ChainID)
	assert.Nil(t, conf.Redis)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestReadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "app: [unclosed")
	_, err := Read(path)
	assert.Error(t, err)
}
