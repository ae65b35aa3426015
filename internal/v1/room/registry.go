package room

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shoutwars/server/internal/v1/apierr"
	"github.com/shoutwars/server/internal/v1/logging"
	"github.com/shoutwars/server/internal/v1/metrics"
	"go.uber.org/zap"
)

// Registry is the keyed container of live rooms with a capacity limit.
type Registry struct {
	lobbyLifetime time.Duration
	gameLifetime  time.Duration

	mu    sync.RWMutex
	rooms map[uuid.UUID]*Room
	limit int
}

// NewRegistry creates an empty registry with the given room limit and the
// lifetimes handed to every created room.
func NewRegistry(limit int, lobbyLifetime, gameLifetime time.Duration) *Registry {
	return &Registry{
		lobbyLifetime: lobbyLifetime,
		gameLifetime:  gameLifetime,
		rooms:         make(map[uuid.UUID]*Room),
		limit:         limit,
	}
}

// Create constructs a room owned by owner and inserts it.
func (g *Registry) Create(version string, owner *User, size int) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.rooms) >= g.limit {
		return nil, apierr.Forbiddenf("Room limit reached. Max room count is %d.", g.limit)
	}
	room, err := NewRoom(version, owner, size, g.lobbyLifetime, g.gameLifetime)
	if err != nil {
		return nil, err
	}
	g.rooms[room.id] = room
	metrics.ActiveRooms.Set(float64(len(g.rooms)))
	logging.Info(context.Background(), "Room created",
		zap.String("room_id", room.id.String()),
		zap.String("version", version),
		zap.String("owner_id", owner.id.String()),
		zap.Int("size", size))
	return room, nil
}

// Get returns the room with the given id.
func (g *Registry) Get(id uuid.UUID) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if room, ok := g.rooms[id]; ok {
		return room, nil
	}
	return nil, apierr.NotFound("Room not found.")
}

// Exists reports whether a room with the given id is live.
func (g *Registry) Exists(id uuid.UUID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.rooms[id]
	return ok
}

// Remove deletes a room; it reports whether the room was present.
func (g *Registry) Remove(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.rooms[id]; !ok {
		return false
	}
	delete(g.rooms, id)
	metrics.ActiveRooms.Set(float64(len(g.rooms)))
	metrics.RoomUsers.DeleteLabelValues(id.String())
	logging.Info(context.Background(), "Room removed", zap.String("room_id", id.String()))
	return true
}

// Count returns the number of live rooms.
func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// All returns a snapshot of every live room.
func (g *Registry) All() []*Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Limit returns the maximum concurrent room count.
func (g *Registry) Limit() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.limit
}

// SetLimit replaces the maximum concurrent room count.
func (g *Registry) SetLimit(limit int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limit = limit
}

// CleanStats summarizes one cleanup pass.
type CleanStats struct {
	RoomsRemoved   int
	UsersKicked    int
	RecordsTrimmed int
}

// Clean evicts unavailable rooms and, for the surviving ones, kicks silent
// users and trims fully consumed sync records. The room snapshot is taken
// under the registry lock and released before any per-room work, keeping
// the registry -> room lock order.
func (g *Registry) Clean(userTimeout time.Duration) CleanStats {
	var stats CleanStats
	for _, room := range g.All() {
		if !room.IsAvailable() {
			if g.Remove(room.ID()) {
				stats.RoomsRemoved++
			}
			continue
		}
		stats.UsersKicked += room.KickExpired(userTimeout)
		stats.RecordsTrimmed += room.CleanSyncRecords()
		metrics.RoomUsers.WithLabelValues(room.ID().String()).Set(float64(room.CountUsers()))
	}
	return stats
}
