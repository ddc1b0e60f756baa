package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"gorm.io/gorm"
)

// HealthHandler reports liveness and database reachability
type HealthHandler struct {
	db      *gorm.DB
	version string
}

func NewHealthHandler(db *gorm.DB, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

func (h *HealthHandler) Health(c fiber.Ctx) error {
	status := fiber.Map{
		"status":    "healthy",
		"version":   h.version,
		"timestamp": time.Now().UTC(),
		"database":  "ok",
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
	}

	return c.Status(fiber.StatusOK).JSON(status)
}
