package room

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shoutwars/server/internal/v1/apierr"
	"github.com/shoutwars/server/internal/v1/types"
)

// Phase is a per-user, monotonic progress marker within a sync record.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseWaiting
	PhaseSyncing
	PhaseSynced
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseWaiting:
		return "waiting"
	case PhaseSyncing:
		return "syncing"
	case PhaseSynced:
		return "synced"
	default:
		return "unknown"
	}
}

// Event is a single immutable report or action submitted by a user.
type Event struct {
	ID   uuid.UUID
	From uuid.UUID
	Type string
	Data any
}

// SyncRecord accumulates one tick of exchanged events for a room and tracks
// each user's progress through the sync barrier.
//
// A record's own mutex only matters for reads on records already handed out
// to callers; rooms mutate records while holding the room mutex.
type SyncRecord struct {
	id uuid.UUID

	mu         sync.RWMutex
	reports    map[uuid.UUID]*Event
	actions    map[uuid.UUID]*Event
	usersPhase map[uuid.UUID]Phase
}

// NewSyncRecord creates an empty record with a fresh time-ordered id.
func NewSyncRecord() *SyncRecord {
	return &SyncRecord{
		id:         types.NewID(),
		reports:    make(map[uuid.UUID]*Event),
		actions:    make(map[uuid.UUID]*Event),
		usersPhase: make(map[uuid.UUID]Phase),
	}
}

// ID returns the record's id.
func (r *SyncRecord) ID() uuid.UUID {
	return r.id
}

// AddEvents merges the caller's reports and actions into the record and
// advances the caller to WAITING. It rejects callers that already
// participated in this record and events not authored by the caller.
func (r *SyncRecord) AddEvents(from uuid.UUID, reports, actions []*Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.usersPhase[from] > PhaseCreated {
		return apierr.BadRequest("Record already synced.")
	}
	for _, report := range reports {
		if report.From != from {
			return apierr.BadRequest("Invalid report from.")
		}
	}
	for _, action := range actions {
		if action.From != from {
			return apierr.BadRequest("Invalid action from.")
		}
	}
	for _, report := range reports {
		r.reports[report.ID] = report
	}
	for _, action := range actions {
		r.actions[action.ID] = action
	}
	r.usersPhase[from] = PhaseWaiting
	return nil
}

// Phase returns the user's phase; users the record has never seen are CREATED.
func (r *SyncRecord) Phase(userID uuid.UUID) Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.usersPhase[userID]
}

// AdvancePhase moves the user's phase forward. Phases are monotonic: a
// new phase at or below the current one is a no-op returning false.
func (r *SyncRecord) AdvancePhase(userID uuid.UUID, newPhase Phase) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if newPhase <= r.usersPhase[userID] {
		return false
	}
	r.usersPhase[userID] = newPhase
	return true
}

// MaxPhase returns the maximum phase across all users known to the record,
// CREATED if the record has seen none.
func (r *SyncRecord) MaxPhase() Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	max := PhaseCreated
	for _, phase := range r.usersPhase {
		if phase > max {
			max = phase
		}
	}
	return max
}

// Reports returns a snapshot of the accumulated reports.
func (r *SyncRecord) Reports() []*Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reports := make([]*Event, 0, len(r.reports))
	for _, report := range r.reports {
		reports = append(reports, report)
	}
	return reports
}

// Actions returns a snapshot of the accumulated actions.
func (r *SyncRecord) Actions() []*Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	actions := make([]*Event, 0, len(r.actions))
	for _, action := range r.actions {
		actions = append(actions, action)
	}
	return actions
}
