package app

import (
	"context"
	"encoding/json"
	"time"

	"social_network_service/internal/messaging/domain"
	"social_network_service/internal/messaging/repository"
	"social_network_service/pkg/logger"
	"social_network_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// MessagingWebsocketHandler websocket 連線的進入點，串起 presence / rooms / usecases
type MessagingWebsocketHandler struct {
	messageUC *MessageUseCase
	presence  *PresenceTracker
	pubsub    repository.PubSub
}

// NewMessagingWebsocketHandler create MessagingWebsocketHandler
// presence 轉換事件會發布到 redis，讓每個節點的連線都收得到
func NewMessagingWebsocketHandler(
	messageUC *MessageUseCase,
	presence *PresenceTracker,
	pubsub repository.PubSub,
) *MessagingWebsocketHandler {
	h := &MessagingWebsocketHandler{
		messageUC: messageUC,
		presence:  presence,
		pubsub:    pubsub,
	}

	presence.OnTransition(func(userID string, online bool) {
		action := domain.UserOnline
		if !online {
			action = domain.UserOffline
		}
		resp := domain.WSResponse{
			Action:  string(action),
			Success: true,
			Payload: map[string]interface{}{"user_id": userID},
		}
		if err := pubsub.Publish(repository.PresenceChannel, resp); err != nil {
			logger.Log.Errorf("presence broadcast failed:", err, zap.String("userID", userID))
		}
	})

	return h
}

// HandleConnection websocket 連線主迴圈
func (h *MessagingWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenUser := conn.Locals(middlewares.TokenUserID)
	userID, ok := tokenUser.(string)
	if !ok || userID == "" {
		logger.Log.Warn("websocket connection without identity, closing")
		conn.Close()
		return
	}

	sess := NewSession(userID, conn)
	sess.Start()

	ctxClose, cancel := context.WithCancel(context.Background())
	h.presence.MarkOnline(userID, sess.ID)
	logger.Log.Info("websocket connected",
		zap.String("userID", userID), zap.String("sessionID", sess.ID))

	defer func() {
		h.presence.MarkOffline(sess.ID)
		h.messageUC.DropSession(sess.ID)
		sess.Close()
		cancel()
		conn.Close()
		logger.Log.Info("websocket closed",
			zap.String("userID", userID), zap.String("sessionID", sess.ID))
	}()

	//client 斷線 fiber 會在 read 回傳 err，close handler 只接 log
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("websocket close frame:", code)
		return nil
	})
	conn.SetPongHandler(func(appData string) error {
		h.presence.Heartbeat(userID)
		return nil
	})
	conn.SetPingHandler(func(appData string) error {
		h.presence.Heartbeat(userID)
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	h.subscribeSessionFeeds(ctxClose, sess, userID)

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Infof("websocket connection closed:", err)
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		if sess.Closed() {
			return
		}
		h.execWebsocketAction(ctx, sess, mt, message)
	}
}

// subscribeSessionFeeds 訂閱自己的 user channel（通知、跨節點私訊）與 presence channel
// 訂閱失敗連線照常服務，但要留下紀錄，這條 session 收不到該 channel 的推播
func (h *MessagingWebsocketHandler) subscribeSessionFeeds(ctx context.Context, sess *Session, userID string) {
	if err := h.pubsub.Subscribe(ctx, repository.UserChannel(userID), func(payload []byte) {
		sess.DeliverRaw(payload)
	}); err != nil {
		logger.Log.Errorf("user channel subscribe failed:", err,
			zap.String("userID", userID), zap.String("sessionID", sess.ID))
	}
	if err := h.pubsub.Subscribe(ctx, repository.PresenceChannel, func(payload []byte) {
		sess.DeliverRaw(payload)
	}); err != nil {
		logger.Log.Errorf("presence channel subscribe failed:", err,
			zap.String("userID", userID), zap.String("sessionID", sess.ID))
	}
}

func (h *MessagingWebsocketHandler) execWebsocketAction(ctx context.Context, sess *Session, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, sess, msg)
	default:
		h.sendError(sess, "unknown message type")
	}
}

func (h *MessagingWebsocketHandler) textMessageAction(ctx context.Context, sess *Session, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		logger.Log.Errorf("websocket json unmarshal error:", err)
		h.sendError(sess, "malformed request")
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch req.Action {

	//加入 room，並回補第一頁歷史訊息
	case string(domain.JoinConversation):
		if err := h.messageUC.JoinConversation(ctx, sess, req.ConversationID); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["conversation_id"] = req.ConversationID
		}

	case string(domain.LeaveConversation):
		h.messageUC.LeaveConversation(req.ConversationID, sess.ID)
		resp.Success = true
		resp.Payload["conversation_id"] = req.ConversationID

	//持久化成功才 ack，失敗回 message_error
	case string(domain.SendMessage):
		sent, err := h.messageUC.Send(ctx, sess.UserID, req.ConversationID, req.Content)
		if err != nil {
			resp.Action = string(domain.MessageError)
			resp.Error = err.Error()
		} else {
			resp.Action = string(domain.MessageSent)
			resp.Success = true
			resp.Payload["message"] = sent
		}

	case string(domain.ReadMessage):
		read, err := h.messageUC.MarkRead(ctx, req.MessageID, sess.UserID)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["message_id"] = read.ID
		}

	case string(domain.Heartbeat):
		h.presence.Heartbeat(sess.UserID)
		resp.Success = true

	default:
		h.sendError(sess, "unknown action")
		return
	}

	if resp.Error != "" {
		logger.Log.Error("websocket action error",
			zap.String("userID", sess.UserID), zap.String("action", req.Action), zap.String("err", resp.Error))
	}
	h.sendResponse(sess, resp)
}

func (h *MessagingWebsocketHandler) sendResponse(sess *Session, resp domain.WSResponse) {
	if err := sess.Deliver(resp); err != nil {
		logger.Log.Errorf("websocket deliver error:", err)
	}
}

func (h *MessagingWebsocketHandler) sendError(sess *Session, errorMsg string) {
	h.sendResponse(sess, domain.WSResponse{
		Action:  "error",
		Success: false,
		Payload: map[string]interface{}{"error": errorMsg},
	})
}
