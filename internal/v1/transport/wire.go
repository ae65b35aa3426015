package transport

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shoutwars/server/internal/v1/apierr"
	"github.com/shoutwars/server/internal/v1/logging"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const contentTypeMsgpack = "application/msgpack"

// --- Request bodies ---

type wireUserName struct {
	Name string `msgpack:"name"`
}

type createRequest struct {
	Version string       `msgpack:"version"`
	User    wireUserName `msgpack:"user"`
	Size    int          `msgpack:"size"`
}

type joinRequest struct {
	Version string       `msgpack:"version"`
	ID      string       `msgpack:"id"`
	User    wireUserName `msgpack:"user"`
}

type startRequest struct {
	SessionID string `msgpack:"session_id"`
}

type syncRequest struct {
	SessionID string      `msgpack:"session_id"`
	Reports   []wireEvent `msgpack:"reports"`
	Actions   []wireEvent `msgpack:"actions"`
	RoomInfo  any         `msgpack:"room_info"`
}

// wireEvent is the on-the-wire event shape. The server fills From from the
// session; SyncID is only set on catch-up events from earlier records.
type wireEvent struct {
	ID     string `msgpack:"id"`
	From   string `msgpack:"from,omitempty"`
	Type   string `msgpack:"type"`
	Event  any    `msgpack:"event"`
	SyncID string `msgpack:"sync_id,omitempty"`
}

// --- Response bodies ---

type createResponse struct {
	SessionID string `msgpack:"session_id"`
	UserID    string `msgpack:"user_id"`
	ID        string `msgpack:"id"`
}

type joinResponse struct {
	SessionID string `msgpack:"session_id"`
	UserID    string `msgpack:"user_id"`
	RoomInfo  any    `msgpack:"room_info"`
}

type wireRoomUser struct {
	ID   string `msgpack:"id"`
	Name string `msgpack:"name"`
}

type syncResponse struct {
	ID        string         `msgpack:"id"`
	Reports   []wireEvent    `msgpack:"reports"`
	Actions   []wireEvent    `msgpack:"actions"`
	RoomUsers []wireRoomUser `msgpack:"room_users"`
	RoomInfo  any            `msgpack:"room_info"`
}

type statusResponse struct {
	RoomCount int `msgpack:"room_count"`
	RoomLimit int `msgpack:"room_limit"`
}

type errorResponse struct {
	Error string `msgpack:"error"`
}

// --- Codec helpers ---

// bind decodes the MessagePack request body into out. An empty body leaves
// out untouched, matching the original protocol's nil body handling.
func bind(c *gin.Context, out any) error {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return apierr.BadRequest(err.Error())
	}
	if len(body) == 0 {
		return nil
	}
	if err := msgpack.Unmarshal(body, out); err != nil {
		return apierr.BadRequest(err.Error())
	}
	return nil
}

// render writes v as a MessagePack response body.
func render(c *gin.Context, status int, v any) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		renderError(c, apierr.Internal(err.Error()))
		return
	}
	c.Data(status, contentTypeMsgpack, data)
}

// renderError translates err to its status code and {error: message} body.
// Faults without a kind become 500 and are logged with the request line.
func renderError(c *gin.Context, err error) {
	apiErr := apierr.FromError(err)
	if apiErr.Kind == apierr.KindInternal {
		logging.Error(c.Request.Context(), "Internal server error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	data, merr := msgpack.Marshal(errorResponse{Error: apiErr.Message})
	if merr != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Abort()
	c.Data(apiErr.Status(), contentTypeMsgpack, data)
}

// parseUUID parses a canonical 36-char id, mapping failures to BAD_REQUEST.
func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apierr.BadRequest(fmt.Sprintf("Invalid UUID: %s", err.Error()))
	}
	return id, nil
}
