package handler

import (
	"github.com/gofiber/fiber/v2"

	"blood-donation/internal/middleware"
	"blood-donation/internal/service/notification"
)

type NotificationHandler struct {
	notifService notification.Service
}

func NewNotificationHandler(notifService notification.Service) *NotificationHandler {
	return &NotificationHandler{notifService: notifService}
}

// Notifications are addressed by email, so every actor kind reads its own
// inbox through the email in its token.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	unreadOnly := c.Query("unread_only") == "true"
	result, err := h.notifService.List(c.Context(), actor.Email, unreadOnly, getPaginationParams(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	count, err := h.notifService.GetUnreadCount(c.Context(), actor.Email)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"count": count,
	})
}

func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	notifID, err := parseIDParam(c, "id", "notification")
	if err != nil {
		return err
	}

	if err := h.notifService.MarkAsRead(c.Context(), notifID, actor.Email); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	if err := h.notifService.MarkAllAsRead(c.Context(), actor.Email); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
