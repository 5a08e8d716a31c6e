package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"social_network_service/internal/messaging/domain"
	"social_network_service/internal/messaging/repository"
	errprocess "social_network_service/pkg/err"
	"social_network_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier 送出次級通知的邊界，由 NotificationUseCase 實作
type Notifier interface {
	Notify(ctx context.Context, recipientID string, ntype domain.NotificationType,
		title, body, senderID string, data map[string]interface{}) (*domain.Notification, error)
}

// MessageUseCase 負責訊息的持久化與 fan-out（delivery router）
// rooms 是 node-local 的，跨節點靠 redis conversation channel 同步
type MessageUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	rooms    *RoomRegistry
	pubsub   repository.PubSub
	notifier Notifier

	// nodeID 標記本節點發出的 envelope，訂閱端靠它去重
	nodeID string
	subMu  sync.Mutex
	subs   map[string]context.CancelFunc
}

// conversationEnvelope 跨節點 fan-out 的外層格式
type conversationEnvelope struct {
	Origin string            `json:"origin"`
	Resp   domain.WSResponse `json:"resp"`
}

// NewMessageUseCase create message use case
func NewMessageUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	rooms *RoomRegistry,
	pubsub repository.PubSub,
	notifier Notifier,
) *MessageUseCase {
	return &MessageUseCase{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		rooms:    rooms,
		pubsub:   pubsub,
		notifier: notifier,
		nodeID:   uuid.New().String(),
		subs:     make(map[string]context.CancelFunc),
	}
}

// SendToRecipient REST 入口：沒有 conversation 時先建立（lazy）
func (uc *MessageUseCase) SendToRecipient(ctx context.Context, senderID, recipientID, content string) (*domain.Message, error) {
	conv, err := uc.convRepo.GetOrCreate(ctx, []string{senderID, recipientID})
	if err != nil {
		return nil, err
	}
	return uc.Send(ctx, senderID, conv.ID, content)
}

// Send 持久化 → 更新 conversation → fan-out → 必要時補通知
// 持久化失敗不做任何 fan-out，caller 一定會拿到明確結果
func (uc *MessageUseCase) Send(ctx context.Context, senderID, conversationID, content string) (*domain.Message, error) {
	content, err := domain.ValidateContent(content)
	if err != nil {
		return nil, err
	}

	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, errprocess.Forbidden("sender is not a participant of the conversation")
	}

	// 1對1 時記下對方，群組留空
	recipientID := ""
	others := conv.OtherParticipants(senderID)
	if len(others) == 1 {
		recipientID = others[0]
	}

	seq, err := uc.convRepo.NextSeq(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		RecipientID:    recipientID,
		Content:        content,
		Seq:            seq,
		CreatedAt:      time.Now().Unix(),
	}

	if err := uc.msgRepo.Insert(ctx, msg); err != nil {
		return nil, err
	}
	if err := uc.convRepo.RecordMessage(ctx, conversationID, msg); err != nil {
		// 訊息已落地但目錄沒跟上，回報錯誤、不做 fan-out
		return nil, err
	}

	uc.fanOut(conversationID, msg)

	// 不在 room 裡的成員（即使全域在線）補一個通知
	for _, p := range others {
		if uc.rooms.HasUser(conversationID, p) {
			continue
		}
		if _, nErr := uc.notifier.Notify(ctx, p, domain.NotificationTypeMessage,
			"New message", content, senderID,
			map[string]interface{}{"conversation_id": conversationID, "message_id": msg.ID},
		); nErr != nil {
			logger.Log.Errorf("message notification failed:", nErr,
				zap.String("recipientID", p), zap.String("messageID", msg.ID))
		}
	}

	return msg, nil
}

// fanOut 送給 room 內每個 session（含 sender 的其他裝置）
// 單一 session 失敗只影響自己，並透過 redis 同步到其他節點
func (uc *MessageUseCase) fanOut(conversationID string, msg *domain.Message) {
	resp := domain.WSResponse{
		Action:  string(domain.NewMessage),
		Success: true,
		Payload: map[string]interface{}{"message": msg},
	}

	for _, s := range uc.rooms.Members(conversationID) {
		if err := s.Deliver(resp); err != nil {
			logger.Log.Warn("fan-out to session failed",
				zap.String("sessionID", s.ID), zap.String("messageID", msg.ID), zap.Error(err))
		}
	}

	env := conversationEnvelope{Origin: uc.nodeID, Resp: resp}
	if err := uc.pubsub.Publish(repository.ConversationChannel(conversationID), env); err != nil {
		logger.Log.Errorf("fan-out publish failed:", err, zap.String("messageID", msg.ID))
	}
}

// ensureRoomFeed 本節點第一個 session 加入時訂閱 conversation channel
// 收到其他節點的 envelope 就轉給本地 room 內的 session
func (uc *MessageUseCase) ensureRoomFeed(conversationID string) error {
	uc.subMu.Lock()
	if _, ok := uc.subs[conversationID]; ok {
		uc.subMu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	uc.subs[conversationID] = cancel
	uc.subMu.Unlock()

	return uc.pubsub.Subscribe(ctx, repository.ConversationChannel(conversationID), func(payload []byte) {
		var env conversationEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			logger.Log.Errorf("room feed unmarshal failed:", err, zap.String("conversationID", conversationID))
			return
		}
		if env.Origin == uc.nodeID {
			// 本節點已經直接投遞過了
			return
		}
		for _, s := range uc.rooms.Members(conversationID) {
			if err := s.Deliver(env.Resp); err != nil {
				logger.Log.Warn("room feed delivery failed",
					zap.String("sessionID", s.ID), zap.String("conversationID", conversationID), zap.Error(err))
			}
		}
	})
}

// dropRoomFeedIfEmpty 本地 room 清空時退訂 conversation channel
// 成員檢查必須和 ensureRoomFeed 拿同一把鎖，否則會退訂掉剛加入者留用的 feed
func (uc *MessageUseCase) dropRoomFeedIfEmpty(conversationID string) {
	uc.subMu.Lock()
	defer uc.subMu.Unlock()

	if len(uc.rooms.Members(conversationID)) > 0 {
		return
	}
	if cancel, ok := uc.subs[conversationID]; ok {
		cancel()
		delete(uc.subs, conversationID)
	}
}

// Page 讀取分頁訊息，開啟 conversation 同時清掉自己的 unread
func (uc *MessageUseCase) Page(ctx context.Context, requesterID, conversationID string, page, pageSize int) (*domain.MessagePage, error) {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(requesterID) {
		return nil, errprocess.Forbidden("requester is not a participant of the conversation")
	}

	result, err := uc.msgRepo.Page(ctx, conversationID, page, pageSize)
	if err != nil {
		return nil, err
	}

	if err := uc.convRepo.ClearUnread(ctx, conversationID, requesterID); err != nil {
		logger.Log.Errorf("clear unread failed:", err, zap.String("conversationID", conversationID))
	}
	return result, nil
}

// MarkRead 只有 recipient 可標記，重複標記為 no-op
func (uc *MessageUseCase) MarkRead(ctx context.Context, messageID, readerID string) (*domain.Message, error) {
	return uc.msgRepo.MarkRead(ctx, messageID, readerID)
}

// Remove sender 才能刪除自己的訊息
func (uc *MessageUseCase) Remove(ctx context.Context, messageID, requesterID string) error {
	return uc.msgRepo.Remove(ctx, messageID, requesterID)
}

// JoinConversation 加入 room 並回補第一頁歷史訊息給這條 session
func (uc *MessageUseCase) JoinConversation(ctx context.Context, sess *Session, conversationID string) error {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(sess.UserID) {
		return errprocess.Forbidden("not a participant of the conversation")
	}

	uc.rooms.Join(conversationID, sess)
	if err := uc.ensureRoomFeed(conversationID); err != nil {
		logger.Log.Errorf("room feed subscribe failed:", err, zap.String("conversationID", conversationID))
	}

	page, err := uc.Page(ctx, sess.UserID, conversationID, 1, repository.DefaultPageSize)
	if err != nil {
		return err
	}
	return sess.Deliver(domain.WSResponse{
		Action:  string(domain.LoadMessages),
		Success: true,
		Payload: map[string]interface{}{
			"conversation_id": conversationID,
			"messages":        page.Messages,
			"total":           page.Total,
			"pages":           page.Pages,
		},
	})
}

// LeaveConversation 離開 room
func (uc *MessageUseCase) LeaveConversation(conversationID, sessionID string) {
	uc.rooms.Leave(conversationID, sessionID)
	uc.dropRoomFeedIfEmpty(conversationID)
}

// DropSession 斷線清理
func (uc *MessageUseCase) DropSession(sessionID string) {
	for _, conversationID := range uc.rooms.DropSession(sessionID) {
		uc.dropRoomFeedIfEmpty(conversationID)
	}
}
