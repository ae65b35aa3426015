package room

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shoutwars/server/internal/v1/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testLobbyLifetime = 10 * time.Minute
	testGameLifetime  = 20 * time.Minute
)

func mustUser(t *testing.T, name string) *User {
	t.Helper()
	u, err := NewUser(name)
	require.NoError(t, err)
	return u
}

func newTestRoom(t *testing.T, size int, userNames ...string) (*Room, []*User) {
	t.Helper()
	users := make([]*User, 0, len(userNames))
	for _, name := range userNames {
		users = append(users, mustUser(t, name))
	}
	r, err := NewRoom("v1", users[0], size, testLobbyLifetime, testGameLifetime)
	require.NoError(t, err)
	for _, u := range users[1:] {
		require.NoError(t, r.Join("v1", u))
	}
	return r, users
}

func eventIDs(events []*Event) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestNewRoomValidation(t *testing.T) {
	owner := mustUser(t, "Alice")

	tests := []struct {
		name    string
		version string
		size    int
		wantErr string
	}{
		{"empty version", "", 2, "Invalid room version length: 0. Must be between 1 and 32."},
		{"long version", strings.Repeat("v", 33), 2, "Invalid room version length: 33. Must be between 1 and 32."},
		{"size too small", "v1", 1, "Invalid room size: 1. Must be between 2 and 4."},
		{"size too large", "v1", 5, "Invalid room size: 5. Must be between 2 and 4."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRoom(tt.version, owner, tt.size, testLobbyLifetime, testGameLifetime)
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestNewRoomInitialState(t *testing.T) {
	owner := mustUser(t, "Alice")
	r, err := NewRoom("v1", owner, 2, testLobbyLifetime, testGameLifetime)
	require.NoError(t, err)

	assert.True(t, r.InLobby())
	assert.Equal(t, 1, r.CountUsers())
	assert.Equal(t, 1, r.CountSyncRecords(), "room always has a tail record")
	assert.True(t, r.IsAvailable())

	got, err := r.Owner()
	require.NoError(t, err)
	assert.Equal(t, owner.ID(), got.ID)
	assert.Equal(t, uuid.Nil, got.LastSyncID, "creator starts with no cursor")
}

func TestJoin(t *testing.T) {
	r, users := newTestRoom(t, 2, "Alice")
	owner := users[0]

	t.Run("version mismatch", func(t *testing.T) {
		err := r.Join("v1.1", mustUser(t, "Bob"))
		require.Error(t, err)
		assert.Equal(t, "Invalid room version: v1.1. This roon version is v1.", err.Error())
	})

	t.Run("duplicate user", func(t *testing.T) {
		err := r.Join("v1", owner)
		require.Error(t, err)
		assert.Equal(t, "User already in the room.", err.Error())
	})

	t.Run("fresh joiner has no cursor", func(t *testing.T) {
		bob := mustUser(t, "Bob")
		require.NoError(t, r.Join("v1", bob))
		info, err := r.GetUser(bob.ID())
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, info.LastSyncID, "only one record exists, cursor stays nil")
	})

	t.Run("room full", func(t *testing.T) {
		err := r.Join("v1", mustUser(t, "Carol"))
		require.Error(t, err)
		assert.Equal(t, "Room is full. Max user count is 2.", err.Error())
	})

	t.Run("game started", func(t *testing.T) {
		require.NoError(t, r.StartGame())
		err := r.Join("v1", mustUser(t, "Carol"))
		require.Error(t, err)
		assert.Equal(t, "Game already started.", err.Error())
	})
}

func TestJoinCursorPointsAtPreviousTail(t *testing.T) {
	r, users := newTestRoom(t, 3, "Alice")
	alice := users[0]

	// Two solo syncs leave at least two records behind.
	_, err := r.SyncWithin(alice.ID(), nil, []*Event{newEvent(alice.ID(), "a", 1)}, time.Millisecond, time.Millisecond)
	require.NoError(t, err)
	_, err = r.SyncWithin(alice.ID(), nil, []*Event{newEvent(alice.ID(), "a", 2)}, time.Millisecond, time.Millisecond)
	require.NoError(t, err)
	require.GreaterOrEqual(t, r.CountSyncRecords(), 2)

	carol := mustUser(t, "Carol")
	require.NoError(t, r.Join("v1", carol))
	info, err := r.GetUser(carol.ID())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, info.LastSyncID, "joiner cursor points at the second-to-last record")

	// The joiner's first sync therefore delivers only the partial tail,
	// not Alice's history.
	records, err := r.SyncWithin(carol.ID(), nil, []*Event{newEvent(carol.ID(), "c", 3)}, time.Millisecond, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, records, 1)
	actions := records[0].Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, carol.ID(), actions[0].From)
}

func TestGetUser(t *testing.T) {
	r, users := newTestRoom(t, 2, "Alice")

	info, err := r.GetUser(users[0].ID())
	require.NoError(t, err)
	assert.Equal(t, "Alice", info.Name)

	_, err = r.GetUser(types.NewID())
	require.Error(t, err)
	assert.Equal(t, "User not found.", err.Error())
}

func TestUsersPreserveInsertionOrder(t *testing.T) {
	r, users := newTestRoom(t, 4, "Alice", "Bob", "Carol")

	infos := r.Users()
	require.Len(t, infos, 3)
	for i, u := range users {
		assert.Equal(t, u.ID(), infos[i].ID)
	}
	assert.Equal(t, []uuid.UUID{users[0].ID(), users[1].ID(), users[2].ID()}, r.UserIDs())

	owner, err := r.Owner()
	require.NoError(t, err)
	assert.Equal(t, users[0].ID(), owner.ID, "owner is the first-inserted user")
}

func TestKick(t *testing.T) {
	r, users := newTestRoom(t, 2, "Alice", "Bob")

	assert.True(t, r.Kick(users[1].ID()))
	assert.False(t, r.Kick(users[1].ID()), "second kick is a no-op")
	assert.False(t, r.HasUser(users[1].ID()))
	assert.Equal(t, 1, r.CountUsers())
}

func TestKickExpired(t *testing.T) {
	r, _ := newTestRoom(t, 2, "Alice", "Bob")

	assert.Equal(t, 0, r.KickExpired(time.Hour))
	assert.Equal(t, 2, r.CountUsers())

	time.Sleep(2 * time.Millisecond)
	assert.Equal(t, 2, r.KickExpired(time.Millisecond))
	assert.Equal(t, 0, r.CountUsers())
}

func TestStartGame(t *testing.T) {
	r, _ := newTestRoom(t, 2, "Alice")

	err := r.StartGame()
	require.Error(t, err)
	assert.Equal(t, "Not enough players to start the game.", err.Error())

	require.NoError(t, r.Join("v1", mustUser(t, "Bob")))
	expireBefore := r.ExpireTime()
	require.NoError(t, r.StartGame())
	assert.False(t, r.InLobby())
	assert.True(t, r.ExpireTime().After(expireBefore), "game lifetime rearms the deadline")

	err = r.StartGame()
	require.Error(t, err)
	assert.Equal(t, "Game already started.", err.Error())
}

func TestIsAvailable(t *testing.T) {
	t.Run("lobby needs one user", func(t *testing.T) {
		r, users := newTestRoom(t, 2, "Alice")
		assert.True(t, r.IsAvailable())
		r.Kick(users[0].ID())
		assert.False(t, r.IsAvailable())
	})

	t.Run("game needs two users", func(t *testing.T) {
		r, users := newTestRoom(t, 2, "Alice", "Bob")
		require.NoError(t, r.StartGame())
		assert.True(t, r.IsAvailable())
		r.Kick(users[1].ID())
		assert.False(t, r.IsAvailable())
	})

	t.Run("expired room", func(t *testing.T) {
		owner := mustUser(t, "Alice")
		r, err := NewRoom("v1", owner, 2, time.Millisecond, time.Millisecond)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		assert.False(t, r.IsAvailable())
	})
}

func TestUpdateInfo(t *testing.T) {
	r, _ := newTestRoom(t, 2, "Alice")

	assert.Nil(t, r.Info())
	r.UpdateInfo(map[string]any{"map": "castle"})
	assert.Equal(t, map[string]any{"map": "castle"}, r.Info())
}

func TestSyncRejectsOutsiders(t *testing.T) {
	r, _ := newTestRoom(t, 2, "Alice")

	_, err := r.Sync(types.NewID(), nil, nil)
	require.Error(t, err)
	assert.Equal(t, "User not in the room.", err.Error())
}

func TestSoloSyncDeliversOwnActionsOnly(t *testing.T) {
	r, users := newTestRoom(t, 2, "Alice")
	alice := users[0]

	report := newEvent(alice.ID(), "pos", map[string]any{"x": 1})
	action := newEvent(alice.ID(), "shout", "hello")

	records, err := r.SyncWithin(alice.ID(), []*Event{report}, []*Event{action}, time.Millisecond, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, eventIDs([]*Event{report}), eventIDs(records[0].Reports()))
	assert.Equal(t, eventIDs([]*Event{action}), eventIDs(records[0].Actions()))

	info, err := r.GetUser(alice.ID())
	require.NoError(t, err)
	assert.Equal(t, records[0].ID(), info.LastSyncID, "cursor moves to the closed record")
	assert.Equal(t, 2, r.CountSyncRecords(), "a fresh tail was spawned")
}

func TestConsecutiveSyncIDsIncrease(t *testing.T) {
	r, users := newTestRoom(t, 2, "Alice")
	alice := users[0]

	var last uuid.UUID
	for i := 0; i < 5; i++ {
		records, err := r.SyncWithin(alice.ID(), nil, nil, time.Millisecond, time.Millisecond)
		require.NoError(t, err)
		top := records[len(records)-1].ID()
		if last != uuid.Nil {
			assert.True(t, types.After(top, last), "record ids must strictly increase per user")
		}
		last = top
	}
}

func TestTwoPlayerBarrier(t *testing.T) {
	r, users := newTestRoom(t, 2, "Alice", "Bob")
	alice, bob := users[0], users[1]
	require.NoError(t, r.StartGame())

	aliceReport := newEvent(alice.ID(), "x", map[string]any{})
	bobAction := newEvent(bob.ID(), "y", map[string]any{})

	var aliceRecords, bobRecords []*SyncRecord
	var aliceErr, bobErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		aliceRecords, aliceErr = r.SyncWithin(alice.ID(), []*Event{aliceReport}, nil, 500*time.Millisecond, 500*time.Millisecond)
	}()
	go func() {
		defer wg.Done()
		time.Sleep(20 * time.Millisecond)
		bobRecords, bobErr = r.SyncWithin(bob.ID(), nil, []*Event{bobAction}, 500*time.Millisecond, 500*time.Millisecond)
	}()
	wg.Wait()

	require.NoError(t, aliceErr)
	require.NoError(t, bobErr)
	require.Len(t, aliceRecords, 1)
	require.Len(t, bobRecords, 1)

	assert.Equal(t, aliceRecords[0].ID(), bobRecords[0].ID(), "both closed the same tick")
	assert.ElementsMatch(t, eventIDs([]*Event{aliceReport}), eventIDs(bobRecords[0].Reports()))
	assert.ElementsMatch(t, eventIDs([]*Event{bobAction}), eventIDs(aliceRecords[0].Actions()))
}

func TestSkippedTickCatchUp(t *testing.T) {
	r, users := newTestRoom(t, 3, "Alice", "Bob", "Carol")
	alice, bob, carol := users[0], users[1], users[2]
	require.NoError(t, r.StartGame())

	fast := 5 * time.Millisecond

	// Tick 1: Alice alone.
	first, err := r.SyncWithin(alice.ID(), nil, []*Event{newEvent(alice.ID(), "a", 1)}, fast, fast)
	require.NoError(t, err)
	tick1 := first[len(first)-1].ID()

	// Tick 2: Bob alone; he catches up on tick 1 and posts his own events.
	bobAction := newEvent(bob.ID(), "b", 2)
	second, err := r.SyncWithin(bob.ID(), nil, []*Event{bobAction}, fast, fast)
	require.NoError(t, err)
	require.Len(t, second, 2, "tick 1 history plus Bob's own tick")
	assert.Equal(t, tick1, second[0].ID())
	tick2 := second[1].ID()
	assert.True(t, types.After(tick2, tick1))

	// Tick 3: Carol and Alice together. Alice skipped tick 2, so she gets
	// Bob's events as catch-up plus the current tick.
	carolAction := newEvent(carol.ID(), "c", 3)
	var aliceRecords, carolRecords []*SyncRecord
	var aliceErr, carolErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		carolRecords, carolErr = r.SyncWithin(carol.ID(), nil, []*Event{carolAction}, 300*time.Millisecond, 100*time.Millisecond)
	}()
	go func() {
		defer wg.Done()
		time.Sleep(20 * time.Millisecond)
		aliceRecords, aliceErr = r.SyncWithin(alice.ID(), nil, nil, 300*time.Millisecond, 100*time.Millisecond)
	}()
	wg.Wait()

	require.NoError(t, aliceErr)
	require.NoError(t, carolErr)

	require.Len(t, aliceRecords, 2, "Bob's tick plus the current one")
	assert.Equal(t, tick2, aliceRecords[0].ID())
	assert.ElementsMatch(t, eventIDs([]*Event{bobAction}), eventIDs(aliceRecords[0].Actions()))

	tick3 := aliceRecords[1].ID()
	assert.ElementsMatch(t, eventIDs([]*Event{carolAction}), eventIDs(aliceRecords[1].Actions()))

	assert.Equal(t, tick3, carolRecords[len(carolRecords)-1].ID(), "both closed the same tick")
}

func TestDoubleSyncSameTickRejected(t *testing.T) {
	r, users := newTestRoom(t, 2, "Alice", "Bob")
	alice := users[0]
	require.NoError(t, r.StartGame())

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		// Bob never shows up, so this parks in the fan-out wait.
		_, err := r.SyncWithin(alice.ID(), nil, nil, 10*time.Millisecond, 300*time.Millisecond)
		done <- err
	}()

	<-started
	time.Sleep(50 * time.Millisecond)

	_, err := r.Sync(alice.ID(), nil, nil)
	require.Error(t, err)
	assert.Equal(t, "User already synced.", err.Error())

	require.NoError(t, <-done)
}

func TestSyncReturnsWithinBoundedTime(t *testing.T) {
	r, users := newTestRoom(t, 2, "Alice", "Bob")
	alice, bob := users[0], users[1]
	require.NoError(t, r.StartGame())

	// Tick 1: Alice alone; Bob never syncs, the fan-out wait must expire.
	start := time.Now()
	_, err := r.SyncWithin(alice.ID(), nil, nil, 100*time.Millisecond, 50*time.Millisecond)
	require.NoError(t, err)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond, "fan-out wait should run its course")
	assert.Less(t, elapsed, 300*time.Millisecond)

	// Tick 2: Bob skipped tick 1, so he also rides out the stragglers wait.
	start = time.Now()
	_, err = r.SyncWithin(bob.ID(), nil, nil, 100*time.Millisecond, 50*time.Millisecond)
	require.NoError(t, err)
	elapsed = time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 140*time.Millisecond, "both waits should run their course")
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestCleanSyncRecords(t *testing.T) {
	r, users := newTestRoom(t, 2, "Alice", "Bob")
	alice, bob := users[0], users[1]
	require.NoError(t, r.StartGame())

	fast := 5 * time.Millisecond
	_, err := r.SyncWithin(alice.ID(), nil, nil, fast, fast)
	require.NoError(t, err)
	_, err = r.SyncWithin(bob.ID(), nil, nil, fast, fast)
	require.NoError(t, err)

	// Tick 1 is now consumed by both users; the newer records are not.
	before := r.CountSyncRecords()
	removed := r.CleanSyncRecords()
	assert.Equal(t, 1, removed)
	assert.Equal(t, before-1, r.CountSyncRecords())
	assert.GreaterOrEqual(t, r.CountSyncRecords(), 1, "the tail always survives")

	assert.Equal(t, 0, r.CleanSyncRecords(), "second pass finds nothing")
}
