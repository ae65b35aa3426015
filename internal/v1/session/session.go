// Package session maps opaque session tokens to room and user identity,
// the only identity carried across requests.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shoutwars/server/internal/v1/apierr"
	"github.com/shoutwars/server/internal/v1/logging"
	"github.com/shoutwars/server/internal/v1/metrics"
	"github.com/shoutwars/server/internal/v1/types"
	"go.uber.org/zap"
)

// Session ties a token to a room membership. Immutable once created.
type Session struct {
	ID     uuid.UUID
	RoomID uuid.UUID
	UserID uuid.UUID
}

// Registry is the keyed container of live sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]Session)}
}

// Create generates a fresh session for the given membership.
func (g *Registry) Create(roomID, userID uuid.UUID) Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := Session{ID: types.NewID(), RoomID: roomID, UserID: userID}
	g.sessions[s.ID] = s
	metrics.ActiveSessions.Set(float64(len(g.sessions)))
	logging.Info(context.Background(), "Session created",
		zap.String("session_id", s.ID.String()),
		zap.String("room_id", roomID.String()),
		zap.String("user_id", userID.String()))
	return s
}

// Get returns the session with the given id; unknown ids are UNAUTHORIZED.
func (g *Registry) Get(id uuid.UUID) (Session, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if s, ok := g.sessions[id]; ok {
		return s, nil
	}
	return Session{}, apierr.Unauthorized("Session not found.")
}

// Exists reports whether the session is live.
func (g *Registry) Exists(id uuid.UUID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.sessions[id]
	return ok
}

// Remove deletes a session; it reports whether the session was present.
func (g *Registry) Remove(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.sessions[id]; !ok {
		return false
	}
	delete(g.sessions, id)
	metrics.ActiveSessions.Set(float64(len(g.sessions)))
	logging.Info(context.Background(), "Session removed", zap.String("session_id", id.String()))
	return true
}

// Count returns the number of live sessions.
func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

// Clean removes every session for which isExpired returns true and returns
// the number removed.
func (g *Registry) Clean(isExpired func(Session) bool) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	removed := 0
	for id, s := range g.sessions {
		if isExpired(s) {
			delete(g.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.ActiveSessions.Set(float64(len(g.sessions)))
	}
	return removed
}
