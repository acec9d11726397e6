package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/raftline/internal/consensus"
	"github.com/cuemby/raftline/pkg/config"
	"github.com/cuemby/raftline/pkg/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the consensus integration layer as a long-lived node",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := log.WithComponent(log.ComponentConsensus)
	logger.Info().Str("node_id", cfg.NodeID).Msg("starting raftlined")

	node, err := consensus.Init(consensus.Config{
		LocalID:        cfg.PeerID(),
		JournalPath:    cfg.JournalPath(),
		ReplicaSetPath: cfg.ReplicaSetPath(),
		OnFatal: func(err error) {
			logger.Error().Err(err).Msg("fatal consensus error, halting")
			os.Exit(1)
		},
	})
	if err != nil {
		return fmt.Errorf("init node: %w", err)
	}
	defer node.Close()

	for _, p := range cfg.Peers {
		if err := node.RegisterPeer(toPeerID(p.ID), toPeerAddress(p.Address)); err != nil {
			return fmt.Errorf("register peer %s: %w", p.ID, err)
		}
	}

	mode, err := parseElectionMode(cfg.ElectionMode)
	if err != nil {
		return err
	}
	if err := node.SetElectionMode(mode); err != nil {
		return fmt.Errorf("set election mode: %w", err)
	}
	if err := node.SetElectionFencingEnabled(cfg.FencingEnabled); err != nil {
		return fmt.Errorf("set fencing policy: %w", err)
	}

	node.OnStatusChange(func(s consensus.Status) {
		logger.Debug().
			Str("event_id", s.EventID).
			Uint64("term", s.Term).
			Str("state", s.State.String()).
			Str("leader", string(s.Leader)).
			Msg("status changed")
	})

	// No HTTP surface is bound here; an embedding binary mounts
	// pkg/metrics.Handler() on its own mux.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	return nil
}
