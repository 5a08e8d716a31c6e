package handlers

import (
	"social_network_service/internal/messaging/app"
	errprocess "social_network_service/pkg/err"

	"github.com/gofiber/fiber/v2"
)

// NotificationHandler 处理通知相關的 HTTP 请求
type NotificationHandler struct {
	NotificationUC *app.NotificationUseCase
}

// NewNotificationHandler 创建新的 NotificationHandler
func NewNotificationHandler(notificationUC *app.NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{NotificationUC: notificationUC}
}

// ListNotifications 取得自己的通知
// @Summary List my notifications
// @Description Notifications for the caller, newest first
// @Tags Notifications
// @Produce json
// @Success 200 {array} domain.Notification "notifications"
// @Router /notifications [get]
func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	ns, err := h.NotificationUC.List(c.Context(), userID)
	if err != nil {
		return c.Status(errprocess.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"notifications": ns})
}

// MarkNotificationRead 標記通知已讀
// @Summary Mark a notification read
// @Description Only the recipient may mark it, repeated calls are no-ops
// @Tags Notifications
// @Produce json
// @Param id path string true "notification id"
// @Success 200 {object} domain.Notification "updated notification"
// @Failure 403 {object} string "not the recipient"
// @Failure 404 {object} string "unknown notification"
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkNotificationRead(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	n, err := h.NotificationUC.MarkRead(c.Context(), c.Params("id"), userID)
	if err != nil {
		return c.Status(errprocess.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"notification": n})
}
