package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/observability"
)

// ManagementHandler exposes operational data to administrators.
type ManagementHandler struct {
	metrics *observability.Metrics
}

// NewManagementHandler constructs handler.
func NewManagementHandler(metrics *observability.Metrics) *ManagementHandler {
	return &ManagementHandler{metrics: metrics}
}

// Metrics GET /management/metrics.
func (h *ManagementHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
