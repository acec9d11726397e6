// Package config loads a node's YAML configuration file: its local
// identity, storage locations, and election policy. Plain
// yaml.Unmarshal into a tagged struct, no schema validation library.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/raftline/internal/types"
)

// PeerConfig is one statically-configured replica-set member.
type PeerConfig struct {
	ID      string `yaml:"id"`
	Address string `yaml:"address"`
}

// Config is a node's full configuration file.
type Config struct {
	NodeID       string       `yaml:"node_id"`
	DataDir      string       `yaml:"data_dir"`
	BindAddress  string       `yaml:"bind_address"`
	ElectionMode string       `yaml:"election_mode"`
	Peers        []PeerConfig `yaml:"peers,omitempty"`

	// FencingEnabledRaw is the as-parsed value; nil means the key was
	// absent from the file. FencingEnabled defaults to true, which a
	// plain bool field can't distinguish from an explicit "false".
	FencingEnabledRaw *bool `yaml:"fencing_enabled"`

	// FencingEnabled is the resolved policy: FencingEnabledRaw if set,
	// true otherwise. Populated by Load.
	FencingEnabled bool `yaml:"-"`
}

// Load reads and parses the YAML configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.NodeID == "" {
		return Config{}, fmt.Errorf("parse config: node_id is required")
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}
	if cfg.FencingEnabledRaw == nil {
		cfg.FencingEnabled = true
	} else {
		cfg.FencingEnabled = *cfg.FencingEnabledRaw
	}
	return cfg, nil
}

// JournalPath is where this node's durable journal lives.
func (c Config) JournalPath() string {
	return c.DataDir + "/journal.db"
}

// ReplicaSetPath is where this node's persistent peer registry lives.
func (c Config) ReplicaSetPath() string {
	return c.DataDir + "/replicaset.db"
}

// PeerID is this node's identity in replica-set vocabulary.
func (c Config) PeerID() types.PeerID {
	return types.PeerID(c.NodeID)
}
