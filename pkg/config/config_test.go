package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/raftline/internal/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadParsesFullConfig(t *testing.T) {
	path := writeConfig(t, `
node_id: node-1
data_dir: /var/lib/raftline
bind_address: 0.0.0.0:7000
election_mode: candidate
fencing_enabled: true
peers:
  - id: node-2
    address: 10.0.0.2:7000
  - id: node-3
    address: 10.0.0.3:7000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "node-1", cfg.NodeID)
	assert.Equal(t, "candidate", cfg.ElectionMode)
	assert.True(t, cfg.FencingEnabled)
	assert.Len(t, cfg.Peers, 2)
	assert.Equal(t, types.PeerID("node-1"), cfg.PeerID())
	assert.Equal(t, "/var/lib/raftline/journal.db", cfg.JournalPath())
	assert.Equal(t, "/var/lib/raftline/replicaset.db", cfg.ReplicaSetPath())
}

func TestLoadDefaultsDataDirToCurrentDirectory(t *testing.T) {
	path := writeConfig(t, "node_id: node-1\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.DataDir)
}

func TestLoadDefaultsFencingEnabledToTrue(t *testing.T) {
	path := writeConfig(t, "node_id: node-1\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.FencingEnabled)
}

func TestLoadHonorsExplicitFencingDisabled(t *testing.T) {
	path := writeConfig(t, "node_id: node-1\nfencing_enabled: false\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.FencingEnabled)
}

func TestLoadRequiresNodeID(t *testing.T) {
	path := writeConfig(t, "data_dir: /tmp\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "node_id is required")
}

func TestLoadReportsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
