package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tenderwatch/tenderwatch/internal/config"
	"github.com/tenderwatch/tenderwatch/internal/services"
	"gorm.io/gorm"
)

// HealthHandler handles the health report route
type HealthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// GetHealth handles GET /api/health
// @Summary Service health report
// @Description Check database, authorizer, and upstream API connectivity
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	result := services.HealthCheck(h.Cfg, h.DB)

	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(result)
}
