// Package metrics exposes the engine's Prometheus collectors: best bid/ask
// gauges per symbol, a match counter, a reject counter, and an
// audit-dropped-writes counter.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// BestBid and BestAsk report the current top-of-book price per symbol,
	// in ticks. A missing series for a symbol means "no value" (the book's
	// sentinel is active) rather than zero.
	BestBid = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hft_exchange",
		Subsystem: "book",
		Name:      "best_bid_price",
		Help:      "Best bid price in ticks, per symbol.",
	}, []string{"symbol"})

	BestAsk = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hft_exchange",
		Subsystem: "book",
		Name:      "best_ask_price",
		Help:      "Best ask price in ticks, per symbol.",
	}, []string{"symbol"})

	// Matches counts completed matching steps per symbol.
	Matches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hft_exchange",
		Subsystem: "book",
		Name:      "matches_total",
		Help:      "Number of matching steps executed, per symbol.",
	}, []string{"symbol"})

	// Rejects counts rejected NOS messages by reject reason.
	Rejects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hft_exchange",
		Subsystem: "engine",
		Name:      "rejects_total",
		Help:      "Number of rejected NOS messages, by reason.",
	}, []string{"reason"})

	// AuditDroppedWrites counts audit events dropped because the consumer
	// fell behind or a write failed.
	AuditDroppedWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hft_exchange",
		Subsystem: "audit",
		Name:      "dropped_writes_total",
		Help:      "Number of audit events dropped or failed to write.",
	})
)

// Register adds all collectors to reg. Called once at process startup.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(BestBid, BestAsk, Matches, Rejects, AuditDroppedWrites)
}
