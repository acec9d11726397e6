package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/raftline/internal/consensus"
	"github.com/cuemby/raftline/pkg/config"
)

// statusCmd reports the durable state of a node's data directory. It
// opens the node the same way serve does (recovering from the journal
// and replica-set registry) and closes it again; no control-plane
// transport exists to query a running serve process directly, so this
// only reflects state as of the last persisted update.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the last persisted consensus status for this node's data directory",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	node, cfg, err := openNode(cmd)
	if err != nil {
		return err
	}
	defer node.Close()

	s := node.Status()
	fmt.Printf("node_id:             %s\n", cfg.NodeID)
	fmt.Printf("term:                %d\n", s.Term)
	fmt.Printf("volatile_term:       %d\n", s.VolatileTerm)
	fmt.Printf("state:               %s\n", s.State)
	fmt.Printf("leader:              %s\n", s.Leader)
	fmt.Printf("election_mode:       %s\n", s.Mode)
	fmt.Printf("is_enabled:          %t\n", s.IsEnabled)
	fmt.Printf("is_cfg_candidate:    %t\n", s.IsCfgCandidate)
	fmt.Printf("fencing_enabled:     %t\n", s.FencingEnabled)
	fmt.Printf("fencing_paused:      %t\n", s.FencingPaused)
	fmt.Printf("election_quorum:     %d\n", s.ElectionQuorumSize)
	fmt.Printf("cluster_size:        %d\n", s.ClusterSize)
	return nil
}

func openNode(cmd *cobra.Command) (*consensus.Node, config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath, _ = cmd.InheritedFlags().GetString("config")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("load config: %w", err)
	}
	node, err := consensus.Init(consensus.Config{
		LocalID:        cfg.PeerID(),
		JournalPath:    cfg.JournalPath(),
		ReplicaSetPath: cfg.ReplicaSetPath(),
	})
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("init node: %w", err)
	}
	return node, cfg, nil
}
