// Package metrics defines and registers all custom Prometheus metrics for the
// community API. It is the single source of truth for metric names, labels,
// and help strings; metrics register with the default registry at import time
// via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "community"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok" or "rejected"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts account registrations.
// Label:
//   - result: "ok", "duplicate", "reserved", or "rejected"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// SessionsDestroyedTotal counts sessions removed before natural expiry
// (logout or password change).
var SessionsDestroyedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_destroyed_total",
		Help:      "Total number of sessions destroyed by logout or revocation.",
	},
)

// ── Ledger metrics ────────────────────────────────────────────────────────────

// HabitCompletionsTotal counts habit completion requests.
// Label:
//   - result: "applied" (streak written) or "noop" (already completed today)
var HabitCompletionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "habit_completions_total",
		Help:      "Total number of habit completions, by result.",
	},
	[]string{"result"},
)

// SeatsBookedTotal counts booking attempts.
// Label:
//   - result: "booked" or "rejected"
var SeatsBookedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "seats_booked_total",
		Help:      "Total number of seat booking attempts, by result.",
	},
	[]string{"result"},
)

// VotesCastTotal counts vote casts.
// Label:
//   - result: "cast" or "error"
var VotesCastTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_cast_total",
		Help:      "Total number of votes cast or replaced, by result.",
	},
	[]string{"result"},
)

// LedgerConflictsTotal counts optimistic-concurrency conflicts detected by the
// ledger's conditional writes.
// Label:
//   - resource: "habit", "bus", or "ticket"
var LedgerConflictsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_conflicts_total",
		Help:      "Total number of conditional-update conflicts, by resource.",
	},
	[]string{"resource"},
)

// ── Audit trail metrics ───────────────────────────────────────────────────────

// AuditEventsTotal counts audit events written to the activity trail.
// Label:
//   - result: "written", "error", or "dropped" (shard buffer full)
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit events processed, by result.",
	},
	[]string{"result"},
)

// AuditQueueDepth tracks the number of audit events waiting in each worker
// channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
