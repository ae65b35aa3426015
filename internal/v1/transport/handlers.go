// Package transport exposes the room protocol over HTTP with
// MessagePack-encoded bodies.
package transport

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shoutwars/server/internal/v1/apierr"
	"github.com/shoutwars/server/internal/v1/metrics"
	"github.com/shoutwars/server/internal/v1/room"
	"github.com/shoutwars/server/internal/v1/session"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// minSyncInterval is the per-user flood gate between successful syncs.
	minSyncInterval = 100 * time.Millisecond
	// maxRoomInfoBytes caps the encoded size of the owner-written info blob.
	maxRoomInfoBytes = 64 * 1024
)

// Handler serves the /v1 room protocol.
type Handler struct {
	rooms    *room.Registry
	sessions *session.Registry
}

// NewHandler creates a protocol handler over the given registries.
func NewHandler(rooms *room.Registry, sessions *session.Registry) *Handler {
	return &Handler{rooms: rooms, sessions: sessions}
}

// CreateRoom handles POST /v1/room/create.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRequest
	if err := bind(c, &req); err != nil {
		renderError(c, err)
		return
	}
	owner, err := room.NewUser(req.User.Name)
	if err != nil {
		renderError(c, err)
		return
	}
	rm, err := h.rooms.Create(req.Version, owner, req.Size)
	if err != nil {
		renderError(c, err)
		return
	}
	sess := h.sessions.Create(rm.ID(), owner.ID())
	render(c, http.StatusOK, createResponse{
		SessionID: sess.ID.String(),
		UserID:    owner.ID().String(),
		ID:        rm.ID().String(),
	})
}

// JoinRoom handles POST /v1/room/join.
func (h *Handler) JoinRoom(c *gin.Context) {
	var req joinRequest
	if err := bind(c, &req); err != nil {
		renderError(c, err)
		return
	}
	roomID, err := parseUUID(req.ID)
	if err != nil {
		renderError(c, err)
		return
	}
	rm, err := h.rooms.Get(roomID)
	if err != nil {
		renderError(c, err)
		return
	}
	user, err := room.NewUser(req.User.Name)
	if err != nil {
		renderError(c, err)
		return
	}
	if err := rm.Join(req.Version, user); err != nil {
		renderError(c, err)
		return
	}
	sess := h.sessions.Create(rm.ID(), user.ID())
	render(c, http.StatusOK, joinResponse{
		SessionID: sess.ID.String(),
		UserID:    user.ID().String(),
		RoomInfo:  rm.Info(),
	})
}

// StartRoom handles POST /v1/room/start. Owner only.
func (h *Handler) StartRoom(c *gin.Context) {
	var req startRequest
	if err := bind(c, &req); err != nil {
		renderError(c, err)
		return
	}
	sess, err := h.lookupSession(req.SessionID)
	if err != nil {
		renderError(c, err)
		return
	}
	rm, err := h.rooms.Get(sess.RoomID)
	if err != nil {
		renderError(c, err)
		return
	}
	owner, err := rm.Owner()
	if err != nil {
		renderError(c, err)
		return
	}
	if owner.ID != sess.UserID {
		renderError(c, apierr.Forbidden("Only the room owner can start the game."))
		return
	}
	if err := rm.StartGame(); err != nil {
		renderError(c, err)
		return
	}
	render(c, http.StatusOK, struct{}{})
}

// SyncRoom handles POST /v1/room/sync: the barrier-synchronized exchange.
func (h *Handler) SyncRoom(c *gin.Context) {
	var req syncRequest
	if err := bind(c, &req); err != nil {
		renderError(c, err)
		return
	}
	sess, err := h.lookupSession(req.SessionID)
	if err != nil {
		renderError(c, err)
		return
	}
	rm, err := h.rooms.Get(sess.RoomID)
	if err != nil {
		renderError(c, err)
		return
	}

	// Per-user flood gate: at most one sync per 100 ms after the first.
	if user, err := rm.GetUser(sess.UserID); err == nil && user.LastSyncID != uuid.Nil {
		if time.Since(user.LastTime) < minSyncInterval {
			metrics.SyncRequests.WithLabelValues("throttled").Inc()
			renderError(c, apierr.TooManyRequests("Too many sync requests."))
			return
		}
	}

	reports, err := parseEvents(req.Reports, sess.UserID)
	if err != nil {
		renderError(c, err)
		return
	}
	actions, err := parseEvents(req.Actions, sess.UserID)
	if err != nil {
		renderError(c, err)
		return
	}

	// room_info is honored only when the caller owns the room.
	if req.RoomInfo != nil {
		if owner, err := rm.Owner(); err == nil && owner.ID == sess.UserID {
			encoded, err := msgpack.Marshal(req.RoomInfo)
			if err != nil {
				renderError(c, apierr.BadRequest(err.Error()))
				return
			}
			if len(encoded) > maxRoomInfoBytes {
				renderError(c, apierr.BadRequestf("Invalid room info size: %d. Must be at most %d bytes.", len(encoded), maxRoomInfoBytes))
				return
			}
			rm.UpdateInfo(req.RoomInfo)
		}
	}

	timer := prometheus.NewTimer(metrics.SyncDuration)
	records, err := rm.Sync(sess.UserID, reports, actions)
	timer.ObserveDuration()
	if err != nil {
		metrics.SyncRequests.WithLabelValues("error").Inc()
		renderError(c, err)
		return
	}
	metrics.SyncRequests.WithLabelValues("ok").Inc()
	metrics.SyncEvents.WithLabelValues("report").Add(float64(len(reports)))
	metrics.SyncEvents.WithLabelValues("action").Add(float64(len(actions)))

	render(c, http.StatusOK, buildSyncResponse(rm, sess.UserID, records))
}

// Status handles GET /v1/status.
func (h *Handler) Status(c *gin.Context) {
	render(c, http.StatusOK, statusResponse{
		RoomCount: h.rooms.Count(),
		RoomLimit: h.rooms.Limit(),
	})
}

// InvalidVersion answers every route outside /v1.
func (h *Handler) InvalidVersion(c *gin.Context) {
	renderError(c, apierr.NotFound("Invalid API version. Use /v1."))
}

func (h *Handler) lookupSession(raw string) (session.Session, error) {
	id, err := parseUUID(raw)
	if err != nil {
		return session.Session{}, err
	}
	return h.sessions.Get(id)
}

// parseEvents converts wire events to domain events, stamping the session
// user as the author. Any client-supplied from field is ignored.
func parseEvents(wire []wireEvent, from uuid.UUID) ([]*room.Event, error) {
	events := make([]*room.Event, 0, len(wire))
	for _, w := range wire {
		id, err := parseUUID(w.ID)
		if err != nil {
			return nil, err
		}
		events = append(events, &room.Event{ID: id, From: from, Type: w.Type, Data: w.Event})
	}
	return events, nil
}

// buildSyncResponse flattens the collected records: reports exclude the
// caller's own events, actions include them, and events from every record
// except the closing one carry the record id they came from.
func buildSyncResponse(rm *room.Room, callerID uuid.UUID, records []*room.SyncRecord) syncResponse {
	top := records[len(records)-1]
	resp := syncResponse{
		ID:       top.ID().String(),
		Reports:  []wireEvent{},
		Actions:  []wireEvent{},
		RoomInfo: rm.Info(),
	}
	for _, rec := range records {
		syncID := ""
		if rec != top {
			syncID = rec.ID().String()
		}
		for _, e := range rec.Reports() {
			if e.From == callerID {
				continue
			}
			resp.Reports = append(resp.Reports, toWireEvent(e, syncID))
		}
		for _, e := range rec.Actions() {
			resp.Actions = append(resp.Actions, toWireEvent(e, syncID))
		}
	}
	for _, u := range rm.Users() {
		resp.RoomUsers = append(resp.RoomUsers, wireRoomUser{ID: u.ID.String(), Name: u.Name})
	}
	return resp
}

func toWireEvent(e *room.Event, syncID string) wireEvent {
	return wireEvent{
		ID:     e.ID.String(),
		From:   e.From.String(),
		Type:   e.Type,
		Event:  e.Data,
		SyncID: syncID,
	}
}
