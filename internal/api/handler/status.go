package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health is the read-only health check: process is up, how many users are
// connected. It is not part of the chat protocol.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"activeUsers": h.Hub.Stats().ActiveUsers,
	})
}

// Status reports the hub's full counters for operational visibility.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.Hub.Stats())
}

// Config hands clients their ICE defaults before they dial the websocket.
func (h *Handler) Config(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stunServer": h.STUNServer,
	})
}
