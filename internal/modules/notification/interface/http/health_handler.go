package handler

import (
	"Herald/pkg/back"
	"Herald/pkg/bus"
	"Herald/pkg/stream"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	bus     *bus.Bus
	manager *stream.Manager
}

func NewHealthHandler(b *bus.Bus, m *stream.Manager) *HealthHandler {
	return &HealthHandler{bus: b, manager: m}
}

func (h *HealthHandler) Health(c *gin.Context) {
	back.Success(c, gin.H{
		"status":   "ok",
		"bus":      h.bus.Stats(),
		"sessions": h.manager.Active(),
	})
}
