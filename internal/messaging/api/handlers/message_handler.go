package handlers

import (
	"fmt"
	"strconv"

	"social_network_service/internal/messaging/app"
	"social_network_service/internal/messaging/repository"
	errprocess "social_network_service/pkg/err"
	"social_network_service/pkg/logger"
	"social_network_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MessageHandler 处理私訊相關的 HTTP 请求
type MessageHandler struct {
	MessageUC      *app.MessageUseCase
	ConversationUC *app.ConversationUseCase

	// PageSize 設定檔給的預設分頁大小，<=0 時退回內建值
	PageSize int
}

// NewMessageHandler 创建新的 MessageHandler
func NewMessageHandler(messageUC *app.MessageUseCase, conversationUC *app.ConversationUseCase, pageSize int) *MessageHandler {
	return &MessageHandler{
		MessageUC:      messageUC,
		ConversationUC: conversationUC,
		PageSize:       pageSize,
	}
}

func (h *MessageHandler) defaultPageSize() int {
	if h.PageSize > 0 {
		return h.PageSize
	}
	return repository.DefaultPageSize
}

func requesterID(c *fiber.Ctx) (string, error) {
	userID, ok := c.Locals(middlewares.TokenUserID).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("c.Locals(%s) is nil", middlewares.TokenUserID)
	}
	return userID, nil
}

// SendMessage 送出私訊
// @Summary Send a direct message
// @Description Persists the message and fans it out to the recipient, creating the conversation on first contact
// @Tags Messages
// @Accept json
// @Produce json
// @Param request body handlers.SendMessageReq true "message payload"
// @Success 200 {object} domain.Message "sent message"
// @Failure 400 {object} string "empty content or bad payload"
// @Failure 403 {object} string "sender is not a participant"
// @Router /messages [post]
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	senderID, err := requesterID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	var req SendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	logger.Log.Debug("SendMessage request",
		zap.String("senderID", senderID), zap.String("recipientID", req.RecipientID))

	if req.RecipientID == "" && req.ConversationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "recipient_id or conversation_id is required"})
	}

	var msg interface{}
	if req.ConversationID != "" {
		msg, err = h.MessageUC.Send(c.Context(), senderID, req.ConversationID, req.Content)
	} else {
		msg, err = h.MessageUC.SendToRecipient(c.Context(), senderID, req.RecipientID, req.Content)
	}
	if err != nil {
		return c.Status(errprocess.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": msg})
}

// SendMessageReq send message payload
type SendMessageReq struct {
	RecipientID    string `json:"recipient_id"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// CreateConversation 建立（或取回）與指定成員的 conversation
// @Summary Get or create a conversation
// @Description Same participant set always resolves to the same conversation, regardless of order
// @Tags Messages
// @Accept json
// @Produce json
// @Param request body handlers.CreateConversationReq true "participant ids, caller included"
// @Success 200 {object} domain.Conversation "conversation"
// @Failure 400 {object} string "fewer than 2 distinct participants"
// @Failure 403 {object} string "caller not in the participant set"
// @Router /messages/conversations [post]
func (h *MessageHandler) CreateConversation(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	var req CreateConversationReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	conv, err := h.ConversationUC.GetOrCreate(c.Context(), userID, req.ParticipantIDs)
	if err != nil {
		return c.Status(errprocess.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"conversation": conv})
}

// CreateConversationReq create conversation payload
type CreateConversationReq struct {
	ParticipantIDs []string `json:"participant_ids"`
}

// ListConversations 取得自己的 conversation 清單
// @Summary List my conversations
// @Description Conversations the caller participates in, newest activity first, with unread counts
// @Tags Messages
// @Produce json
// @Success 200 {array} domain.Conversation "conversations"
// @Router /messages/conversations [get]
func (h *MessageHandler) ListConversations(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	convs, err := h.ConversationUC.List(c.Context(), userID)
	if err != nil {
		return c.Status(errprocess.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"conversations": convs})
}

// GetConversationMessages 取得 conversation 分頁訊息
// @Summary Page through a conversation
// @Description Returns one page of messages, newest first, and clears the caller's unread count
// @Tags Messages
// @Produce json
// @Param id path string true "conversation id"
// @Param page query int false "page number, 1-based"
// @Param limit query int false "messages per page"
// @Success 200 {object} domain.MessagePage "message page"
// @Failure 403 {object} string "not a participant"
// @Failure 404 {object} string "unknown conversation"
// @Router /messages/conversation/{id} [get]
func (h *MessageHandler) GetConversationMessages(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	conversationID := c.Params("id")
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(h.defaultPageSize())))

	result, err := h.MessageUC.Page(c.Context(), userID, conversationID, page, limit)
	if err != nil {
		return c.Status(errprocess.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}

// MarkConversationRead 將自己在該 conversation 的未讀數歸零
// @Summary Clear my unread counter
// @Description Other participants' counters are untouched
// @Tags Messages
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} string "cleared"
// @Failure 403 {object} string "not a participant"
// @Failure 404 {object} string "unknown conversation"
// @Router /messages/conversation/{id}/read [put]
func (h *MessageHandler) MarkConversationRead(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.ConversationUC.ClearUnread(c.Context(), c.Params("id"), userID); err != nil {
		return c.Status(errprocess.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "read success"})
}

// DeleteMessage 刪除自己送出的訊息
// @Summary Delete a message
// @Description Hard delete, only the sender may remove a message
// @Tags Messages
// @Produce json
// @Param id path string true "message id"
// @Success 200 {object} string "deleted"
// @Failure 403 {object} string "not the sender"
// @Failure 404 {object} string "unknown message"
// @Router /messages/{id} [delete]
func (h *MessageHandler) DeleteMessage(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	messageID := c.Params("id")
	if err := h.MessageUC.Remove(c.Context(), messageID, userID); err != nil {
		return c.Status(errprocess.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "delete success"})
}
