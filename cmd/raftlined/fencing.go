package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var fencingCmd = &cobra.Command{
	Use:   "fencing",
	Short: "Control this node's leader-fencing policy",
}

var fencingEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable leader fencing on quorum loss",
	RunE:  runFencingSet(true),
}

var fencingDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable leader fencing; unfences the limbo immediately",
	RunE:  runFencingSet(false),
}

var fencingPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Latch fencing_paused, suppressing the next fence on quorum loss",
	RunE:  runFencingPause,
}

func init() {
	fencingCmd.AddCommand(fencingEnableCmd)
	fencingCmd.AddCommand(fencingDisableCmd)
	fencingCmd.AddCommand(fencingPauseCmd)
}

func runFencingSet(enabled bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		node, _, err := openNode(cmd)
		if err != nil {
			return err
		}
		defer node.Close()

		if err := node.SetElectionFencingEnabled(enabled); err != nil {
			return fmt.Errorf("set fencing policy: %w", err)
		}
		fmt.Printf("fencing enabled: %t\n", enabled)
		return nil
	}
}

func runFencingPause(cmd *cobra.Command, args []string) error {
	node, _, err := openNode(cmd)
	if err != nil {
		return err
	}
	defer node.Close()

	if err := node.ElectionFencingPause(); err != nil {
		return fmt.Errorf("pause fencing: %w", err)
	}
	fmt.Println("fencing paused")
	return nil
}
