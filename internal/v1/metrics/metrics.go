package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the ShoutWars coordination server.
//
// Naming convention: namespace_subsystem_name
// - namespace: shoutwars
// - subsystem: room, sync, session, sweeper
//
// Metric Types:
// - Gauge: current state (rooms, sessions, users per room)
// - Counter: cumulative events (syncs, evictions)
// - Histogram: latency distributions (sync barrier duration)

var (
	// ActiveRooms tracks the current number of live rooms.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shoutwars",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of live rooms",
	})

	// RoomUsers tracks the number of users in each room.
	RoomUsers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "shoutwars",
		Subsystem: "room",
		Name:      "users_count",
		Help:      "Number of users in each room",
	}, []string{"room_id"})

	// ActiveSessions tracks the current number of live sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shoutwars",
		Subsystem: "session",
		Name:      "sessions_active",
		Help:      "Current number of live sessions",
	})

	// SyncRequests counts sync calls by outcome status.
	SyncRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shoutwars",
		Subsystem: "sync",
		Name:      "requests_total",
		Help:      "Total sync calls by outcome",
	}, []string{"status"})

	// SyncDuration tracks time spent inside the sync barrier.
	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shoutwars",
		Subsystem: "sync",
		Name:      "barrier_seconds",
		Help:      "Time spent inside the sync barrier",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .2, .3, .5, 1},
	})

	// SyncEvents counts events accepted into sync records by kind.
	SyncEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shoutwars",
		Subsystem: "sync",
		Name:      "events_total",
		Help:      "Total events accepted into sync records",
	}, []string{"kind"})

	// SweeperCycles counts completed sweeper cycles.
	SweeperCycles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shoutwars",
		Subsystem: "sweeper",
		Name:      "cycles_total",
		Help:      "Completed sweeper cycles",
	})

	// SweeperRoomsEvicted counts rooms removed by the sweeper.
	SweeperRoomsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shoutwars",
		Subsystem: "sweeper",
		Name:      "rooms_evicted_total",
		Help:      "Rooms evicted for being unavailable",
	})

	// SweeperUsersKicked counts silent users kicked by the sweeper.
	SweeperUsersKicked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shoutwars",
		Subsystem: "sweeper",
		Name:      "users_kicked_total",
		Help:      "Users kicked for exceeding the sync timeout",
	})

	// SweeperRecordsTrimmed counts fully consumed sync records removed.
	SweeperRecordsTrimmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shoutwars",
		Subsystem: "sweeper",
		Name:      "records_trimmed_total",
		Help:      "Fully consumed sync records trimmed",
	})

	// SweeperSessionsPurged counts orphaned sessions removed.
	SweeperSessionsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shoutwars",
		Subsystem: "sweeper",
		Name:      "sessions_purged_total",
		Help:      "Orphaned sessions purged",
	})
)
