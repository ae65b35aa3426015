package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BearerAuth rejects requests whose Authorization header does not match the
// shared secret. The response is a bare 404, indistinguishable from an
// unknown route. An empty secret disables the check.
func BearerAuth(password string) gin.HandlerFunc {
	expected := "Bearer " + password
	return func(c *gin.Context) {
		if password != "" && c.GetHeader("Authorization") != expected {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		c.Next()
	}
}

// Register mounts the protocol routes on the engine. Every route, including
// the catch-all, sits behind the bearer-secret check.
func (h *Handler) Register(router *gin.Engine, password string) {
	auth := BearerAuth(password)

	v1 := router.Group("/v1", auth)
	{
		v1.POST("/room/create", h.CreateRoom)
		v1.POST("/room/join", h.JoinRoom)
		v1.POST("/room/start", h.StartRoom)
		v1.POST("/room/sync", h.SyncRoom)
		v1.GET("/status", h.Status)
	}

	router.NoRoute(auth, h.InvalidVersion)
}
