/*
Package metrics defines and registers the Prometheus metrics exposed by
the consensus integration layer: term/leadership gauges, quorum and
fencing state, broadcast and relay counters, and durable-write and
promotion-latency histograms.

Metrics are registered at package init time via prometheus.MustRegister
and exposed for scraping through Handler(), which callers mount on
their own HTTP server (this package does not bind a port itself).

# Usage

	http.Handle("/metrics", metrics.Handler())

	timer := metrics.NewTimer()
	if err := journal.Submit(rec); err != nil {
		return err
	}
	timer.ObserveDuration(metrics.DurableWriteDuration)

Gauges like Term, VolatileTerm, and IsLeader are pushed by the update
trigger each time it refreshes the node's status summary; callers
should not derive them by polling elsewhere.
*/
package metrics
