// Package metrics defines and registers all custom Prometheus metrics for the
// sweet shop API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation through promauto; HTTP request metrics come from the
// echoprometheus middleware installed by the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sweetshop"

// ── Inventory metrics ─────────────────────────────────────────────────────────

// PurchasesTotal counts purchase attempts.
// Label:
//   - result: "ok", "insufficient_stock", "not_found", "invalid_amount",
//     "duplicate" or "error"
var PurchasesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "purchases_total",
		Help:      "Total number of purchase attempts, labelled by result.",
	},
	[]string{"result"},
)

// UnitsSoldTotal counts units removed from stock by successful purchases.
var UnitsSoldTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "units_sold_total",
		Help:      "Total number of units sold.",
	},
)

// RestocksTotal counts restock attempts.
// Label:
//   - result: same values as PurchasesTotal
var RestocksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "restocks_total",
		Help:      "Total number of restock attempts, labelled by result.",
	},
	[]string{"result"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts register and login attempts.
// Labels:
//   - action: "register" or "login"
//   - result: "ok", "rejected" or "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts.",
	},
	[]string{"action", "result"},
)

// RateLimitedTotal counts requests rejected by the rate limiter.
var RateLimitedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected with 429.",
	},
)

// ── Movement recorder metrics ─────────────────────────────────────────────────

// MovementsQueueDepth tracks the number of movements waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var MovementsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "movements_queue_depth",
		Help:      "Current number of stock movements pending in each recorder channel.",
	},
	[]string{"worker_id"},
)

// MovementsRecordedTotal counts persisted stock movements.
// Labels:
//   - kind: "purchase" or "restock"
//   - result: "ok" or "error"
var MovementsRecordedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "movements_recorded_total",
		Help:      "Total number of stock movements written to the audit trail.",
	},
	[]string{"kind", "result"},
)

// MovementsDroppedTotal counts movements discarded because a recorder
// channel was full or the recorder was shutting down.
var MovementsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "movements_dropped_total",
		Help:      "Total number of stock movements dropped before recording.",
	},
)
