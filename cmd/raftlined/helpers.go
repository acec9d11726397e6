package main

import (
	"fmt"

	"github.com/cuemby/raftline/internal/consensus"
	"github.com/cuemby/raftline/internal/types"
)

func toPeerID(s string) types.PeerID {
	return types.PeerID(s)
}

func toPeerAddress(s string) types.PeerAddress {
	return types.PeerAddress(s)
}

func parseElectionMode(s string) (consensus.ElectionMode, error) {
	switch s {
	case "", "off":
		return consensus.ModeOff, nil
	case "voter":
		return consensus.ModeVoter, nil
	case "manual":
		return consensus.ModeManual, nil
	case "candidate":
		return consensus.ModeCandidate, nil
	default:
		return consensus.ModeInvalid, fmt.Errorf("unknown election mode %q (want off, voter, manual, or candidate)", s)
	}
}
