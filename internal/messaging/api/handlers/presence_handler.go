package handlers

import (
	"social_network_service/internal/messaging/app"

	"github.com/gofiber/fiber/v2"
)

// PresenceHandler 处理在線狀態查詢
type PresenceHandler struct {
	Presence *app.PresenceTracker
}

// NewPresenceHandler 创建新的 PresenceHandler
func NewPresenceHandler(presence *app.PresenceTracker) *PresenceHandler {
	return &PresenceHandler{Presence: presence}
}

// OnlineUsers 取得目前在線的使用者
// @Summary List online users
// @Description Snapshot of every currently online user, for bulk UI rendering
// @Tags Presence
// @Produce json
// @Success 200 {array} string "online user ids"
// @Router /presence/online [get]
func (h *PresenceHandler) OnlineUsers(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"online": h.Presence.OnlineSet()})
}

// IsOnline 查詢單一使用者是否在線
// @Summary Check one user's presence
// @Description Online means at least one live connection with a fresh heartbeat
// @Tags Presence
// @Produce json
// @Param id path string true "user id"
// @Success 200 {object} string "presence state"
// @Router /presence/{id} [get]
func (h *PresenceHandler) IsOnline(c *fiber.Ctx) error {
	userID := c.Params("id")
	return c.JSON(fiber.Map{"user_id": userID, "online": h.Presence.IsOnline(userID)})
}
