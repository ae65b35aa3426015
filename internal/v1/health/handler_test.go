package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shoutwars/server/internal/v1/room"
	"github.com/shoutwars/server/internal/v1/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(roomLimit int) (*gin.Engine, *room.Registry) {
	gin.SetMode(gin.TestMode)
	rooms := room.NewRegistry(roomLimit, time.Minute, time.Minute)
	h := NewHandler(rooms, session.NewRegistry())
	r := gin.New()
	r.GET("/health/live", h.Liveness)
	r.GET("/health/ready", h.Readiness)
	return r, rooms
}

func TestLiveness(t *testing.T) {
	r, _ := newTestRouter(10)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, resp.Code)

	var body LivenessResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "alive", body.Status)
}

func TestReadinessReady(t *testing.T) {
	r, _ := newTestRouter(10)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, resp.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
}

func TestReadinessAtCapacity(t *testing.T) {
	r, rooms := newTestRouter(2)

	for i := 0; i < 2; i++ {
		owner, err := room.NewUser(fmt.Sprintf("owner-%d", i))
		require.NoError(t, err)
		_, err = rooms.Create("v1", owner, 2)
		require.NoError(t, err)
	}

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
}
