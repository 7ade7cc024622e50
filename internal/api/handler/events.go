package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
)

type EventLog interface {
	List(ctx context.Context, userID string) ([]domain.SecurityEvent, error)
	Clear(ctx context.Context, userID string) error
}

type EventHandler struct {
	log EventLog
}

func NewEventHandler(log EventLog) *EventHandler {
	return &EventHandler{log: log}
}

// List GET /v1/users/:user_id/security-events, newest first
func (h *EventHandler) List(c *fiber.Ctx) error {
	events, err := h.log.List(c.Context(), c.Params("user_id"))
	if err != nil {
		return err
	}
	return c.JSON(events)
}

// Clear DELETE /v1/users/:user_id/security-events
func (h *EventHandler) Clear(c *fiber.Ctx) error {
	if err := h.log.Clear(c.Context(), c.Params("user_id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
