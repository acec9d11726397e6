/*
Package log provides the structured logging used across the consensus
integration layer, built on zerolog.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	consensusLog := log.WithComponent(log.ComponentConsensus)
	consensusLog.Info().Uint64("term", 5).Msg("term advanced")

	nodeLog := log.WithNodeID("node-1")
	nodeLog.Warn().Msg("quorum lost")

Component loggers exist per subsystem (consensus, journal, replicaset,
limbo, async_worker) so log lines can be filtered to the part of the
integration layer that produced them without threading a logger
through every call.

Never log a full Raft request's vclock or vote payload verbatim in
production; log the term and peer ID fields instead.
*/
package log
