package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// modeCmd opens the node's data directory the same way status.go does,
// applies the election mode to that freshly opened Node, and closes it
// again. The election mode is held in memory only and is not written to
// the journal or the replica-set registry, so the change does not
// outlive the command and does not reach a running serve process.
var modeCmd = &cobra.Command{
	Use:   "mode [off|voter|manual|candidate]",
	Short: "Set this node's election mode",
	Args:  cobra.ExactArgs(1),
	RunE:  runMode,
}

func runMode(cmd *cobra.Command, args []string) error {
	mode, err := parseElectionMode(args[0])
	if err != nil {
		return err
	}

	node, _, err := openNode(cmd)
	if err != nil {
		return err
	}
	defer node.Close()

	if err := node.SetElectionMode(mode); err != nil {
		return fmt.Errorf("set election mode: %w", err)
	}
	fmt.Printf("election mode set to %s\n", mode)
	return nil
}
