// Package room implements the room state and the barrier-synchronized
// event exchange at the heart of the server.
package room

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shoutwars/server/internal/v1/apierr"
	"github.com/shoutwars/server/internal/v1/logging"
	"github.com/shoutwars/server/internal/v1/types"
	"go.uber.org/zap"
)

const (
	// VersionMaxLength is the maximum room version string length.
	VersionMaxLength = 32
	// SizeMin and SizeMax bound the room capacity.
	SizeMin = 2
	SizeMax = 4

	// DefaultWaitTimeout bounds the stragglers wait of the sync barrier.
	DefaultWaitTimeout = 200 * time.Millisecond
	// DefaultSyncTimeout bounds the fan-out wait of the sync barrier.
	DefaultSyncTimeout = 50 * time.Millisecond
)

// Room owns the user set, the ordered sync-record list, and the barrier
// that coordinates concurrent sync calls.
type Room struct {
	id            uuid.UUID
	version       string
	size          int
	lobbyLifetime time.Duration
	gameLifetime  time.Duration

	mu         sync.RWMutex
	wake       chan struct{} // closed and replaced on every barrier broadcast
	expireTime time.Time
	users      []*User // insertion order; the first entry is the owner
	inLobby    bool
	info       any
	records    []*SyncRecord // ordered by id, hence by creation time
}

// NewRoom creates a room in lobby state containing only the owner and one
// empty tail record.
func NewRoom(version string, owner *User, size int, lobbyLifetime, gameLifetime time.Duration) (*Room, error) {
	if len(version) == 0 || len(version) > VersionMaxLength {
		return nil, apierr.BadRequestf("Invalid room version length: %d. Must be between 1 and 32.", len(version))
	}
	if size < SizeMin || size > SizeMax {
		return nil, apierr.BadRequestf("Invalid room size: %d. Must be between 2 and 4.", size)
	}
	return &Room{
		id:            types.NewID(),
		version:       version,
		size:          size,
		lobbyLifetime: lobbyLifetime,
		gameLifetime:  gameLifetime,
		wake:          make(chan struct{}),
		expireTime:    time.Now().Add(lobbyLifetime),
		users:         []*User{owner},
		inLobby:       true,
		records:       []*SyncRecord{NewSyncRecord()},
	}, nil
}

// ID returns the room id.
func (r *Room) ID() uuid.UUID {
	return r.id
}

// Version returns the client version the room was created with.
func (r *Room) Version() string {
	return r.version
}

// Size returns the room capacity.
func (r *Room) Size() int {
	return r.size
}

// Join appends a user to the room. The joiner's cursor points at the
// second-to-last record when one exists, so their first sync delivers the
// current partial tail but nothing older.
func (r *Room) Join(version string, user *User) error {
	if version != r.version {
		return apierr.BadRequestf("Invalid room version: %s. This roon version is %s.", version, r.version)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inLobby {
		return apierr.Forbidden("Game already started.")
	}
	if len(r.users) >= r.size {
		return apierr.Forbiddenf("Room is full. Max user count is %d.", r.size)
	}
	if r.findUserLocked(user.id) != nil {
		return apierr.Forbidden("User already in the room.")
	}
	r.users = append(r.users, user)
	if len(r.records) >= 2 {
		user.UpdateLast(r.records[len(r.records)-2].ID())
	} else {
		user.UpdateLast(uuid.Nil)
	}
	return nil
}

func (r *Room) findUserLocked(id uuid.UUID) *User {
	for _, u := range r.users {
		if u.id == id {
			return u
		}
	}
	return nil
}

// GetUser returns a snapshot of the user with the given id.
func (r *Room) GetUser(id uuid.UUID) (UserInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u := r.findUserLocked(id); u != nil {
		return u.info(), nil
	}
	return UserInfo{}, apierr.NotFound("User not found.")
}

// HasUser reports whether the user is in the room.
func (r *Room) HasUser(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findUserLocked(id) != nil
}

// Users returns snapshots of all users in insertion order.
func (r *Room) Users() []UserInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]UserInfo, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u.info())
	}
	return users
}

// UserIDs returns the user ids in insertion order.
func (r *Room) UserIDs() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.users))
	for _, u := range r.users {
		ids = append(ids, u.id)
	}
	return ids
}

// Owner returns the first-inserted user.
func (r *Room) Owner() (UserInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.users) == 0 {
		return UserInfo{}, apierr.NotFound("Room is empty.")
	}
	return r.users[0].info(), nil
}

// CountUsers returns the number of users.
func (r *Room) CountUsers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Kick removes a user; it reports whether the user was present.
func (r *Room) Kick(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, u := range r.users {
		if u.id == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return true
		}
	}
	return false
}

// KickExpired removes every user silent for longer than timeout and
// returns the number kicked.
func (r *Room) KickExpired(timeout time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	kept := r.users[:0]
	kicked := 0
	for _, u := range r.users {
		if now.Sub(u.lastTime) > timeout {
			kicked++
			logging.Info(context.Background(), "User kicked for inactivity",
				zap.String("room_id", r.id.String()), zap.String("user_id", u.id.String()))
		} else {
			kept = append(kept, u)
		}
	}
	r.users = kept
	return kicked
}

// InLobby reports whether the room still accepts joins.
func (r *Room) InLobby() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inLobby
}

// StartGame leaves the lobby and rearms the expiry deadline with the game
// lifetime.
func (r *Room) StartGame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inLobby {
		return apierr.Forbidden("Game already started.")
	}
	if len(r.users) < SizeMin {
		return apierr.Forbidden("Not enough players to start the game.")
	}
	r.inLobby = false
	r.expireTime = time.Now().Add(r.gameLifetime)
	names := make([]string, 0, len(r.users))
	for _, u := range r.users {
		names = append(names, u.name)
	}
	logging.Info(context.Background(), "Game started",
		zap.String("room_id", r.id.String()), zap.Strings("users", names))
	return nil
}

// ExpireTime returns the current expiry deadline.
func (r *Room) ExpireTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.expireTime
}

// IsAvailable reports whether the room should stay alive: not expired, and
// populated enough for its state (lobby needs one user, a game needs two).
func (r *Room) IsAvailable() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if time.Now().After(r.expireTime) {
		return false
	}
	if r.inLobby {
		return len(r.users) > 0
	}
	return len(r.users) > 1
}

// Info returns the owner-written room info blob.
func (r *Room) Info() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.info
}

// UpdateInfo replaces the room info blob.
func (r *Room) UpdateInfo(info any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info = info
}

// Sync runs the barrier with the default timeouts.
func (r *Room) Sync(userID uuid.UUID, reports, actions []*Event) ([]*SyncRecord, error) {
	return r.SyncWithin(userID, reports, actions, DefaultWaitTimeout, DefaultSyncTimeout)
}

// SyncWithin submits the caller's events into the current tail record,
// coordinates with concurrent callers through two bounded waits, and
// returns every record between the caller's cursor and the tail.
//
// The returned slice ends with the record that closed for this caller;
// earlier entries are catch-up history from skipped ticks.
func (r *Room) SyncWithin(userID uuid.UUID, reports, actions []*Event, waitTimeout, syncTimeout time.Duration) ([]*SyncRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := r.findUserLocked(userID)
	if user == nil {
		return nil, apierr.Forbidden("User not in the room.")
	}
	tail := r.records[len(r.records)-1]
	if tail.Phase(userID) > PhaseCreated {
		return nil, apierr.Forbidden("User already synced.")
	}
	if tail.MaxPhase() >= PhaseSynced {
		return nil, apierr.Forbidden("Record already synced.")
	}

	if err := tail.AddEvents(userID, reports, actions); err != nil {
		return nil, err
	}

	var prev *SyncRecord
	if len(r.records) >= 2 {
		prev = r.records[len(r.records)-2]
	}

	// Stragglers wait: a caller that took part in the previous tick gives
	// the others a window to post before the tick closes. A caller that
	// skipped the previous tick must not stall the room.
	if tail.MaxPhase() <= PhaseWaiting && prev != nil && prev.Phase(userID) < PhaseSynced {
		r.waitLocked(waitTimeout, func() bool { return tail.MaxPhase() > PhaseWaiting })
	}
	tail.AdvancePhase(userID, PhaseSyncing)
	r.broadcastLocked()

	// Fan-out wait: hold the tick open while any room member has not yet
	// submitted, so late events still land in this record.
	if r.anyUnsubmittedLocked(tail) {
		r.waitLocked(syncTimeout, func() bool { return tail.MaxPhase() > PhaseSyncing })
	}
	tail.AdvancePhase(userID, PhaseSynced)
	r.broadcastLocked()

	// Collect everything past the caller's cursor up to the entry tail.
	// Concurrent callers may already have spawned a newer tail while we
	// were parked; those records belong to the next tick.
	var collected []*SyncRecord
	cursor := user.lastSyncID
	for _, rec := range r.records {
		if cursor != uuid.Nil && !types.After(rec.ID(), cursor) {
			continue
		}
		collected = append(collected, rec)
		rec.AdvancePhase(userID, PhaseSynced)
		if rec == tail {
			break
		}
	}

	// Spawn the next tail once no user is mid-flight on this one. Users
	// still WAITING or SYNCING are concurrent calls that will spawn it
	// themselves.
	if tail == r.records[len(r.records)-1] && r.noneInFlightLocked(tail) {
		r.records = append(r.records, NewSyncRecord())
	}

	user.UpdateLast(tail.ID())
	return collected, nil
}

func (r *Room) anyUnsubmittedLocked(rec *SyncRecord) bool {
	for _, u := range r.users {
		if rec.Phase(u.id) <= PhaseCreated {
			return true
		}
	}
	return false
}

func (r *Room) noneInFlightLocked(rec *SyncRecord) bool {
	for _, u := range r.users {
		if phase := rec.Phase(u.id); phase == PhaseWaiting || phase == PhaseSyncing {
			return false
		}
	}
	return true
}

// waitLocked blocks until cond holds or timeout elapses, releasing the room
// lock while parked. The caller must hold r.mu; it is held again on return.
func (r *Room) waitLocked(timeout time.Duration, cond func() bool) {
	deadline := time.Now().Add(timeout)
	for !cond() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		wake := r.wake
		r.mu.Unlock()
		timer := time.NewTimer(remaining)
		select {
		case <-wake:
		case <-timer.C:
		}
		timer.Stop()
		r.mu.Lock()
	}
}

// broadcastLocked wakes every parked barrier wait. Caller must hold r.mu.
func (r *Room) broadcastLocked() {
	close(r.wake)
	r.wake = make(chan struct{})
}

// CleanSyncRecords removes every record already consumed by all current
// users. The tail is always kept so the room never runs out of records.
func (r *Room) CleanSyncRecords() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.users) == 0 || len(r.records) <= 1 {
		return 0
	}
	kept := r.records[:0]
	removed := 0
	for i, rec := range r.records {
		if i < len(r.records)-1 && r.allSyncedLocked(rec) {
			removed++
		} else {
			kept = append(kept, rec)
		}
	}
	r.records = kept
	return removed
}

func (r *Room) allSyncedLocked(rec *SyncRecord) bool {
	for _, u := range r.users {
		if rec.Phase(u.id) < PhaseSynced {
			return false
		}
	}
	return true
}

// CountSyncRecords returns the number of live records.
func (r *Room) CountSyncRecords() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
