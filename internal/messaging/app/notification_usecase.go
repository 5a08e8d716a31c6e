package app

import (
	"context"
	"encoding/json"
	"time"

	"social_network_service/internal/messaging/domain"
	"social_network_service/internal/messaging/repository"
	"social_network_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// JobEventReader kafka reader 邊界，測試用 fake 取代 *kafka.Reader
type JobEventReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// NotificationUseCase 通知的持久化與即時推送（notification dispatcher）
type NotificationUseCase struct {
	repo   repository.NotificationRepository
	pubsub repository.PubSub
}

// NewNotificationUseCase create notification use case
func NewNotificationUseCase(repo repository.NotificationRepository, pubsub repository.PubSub) *NotificationUseCase {
	return &NotificationUseCase{
		repo:   repo,
		pubsub: pubsub,
	}
}

// Notify 先持久化再嘗試即時推送，推送失敗不影響已落地的通知
func (uc *NotificationUseCase) Notify(ctx context.Context, recipientID string, ntype domain.NotificationType,
	title, body, senderID string, data map[string]interface{}) (*domain.Notification, error) {

	n := &domain.Notification{
		ID:          uuid.New().String(),
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        ntype,
		Title:       title,
		Body:        body,
		Data:        data,
		CreatedAt:   time.Now().UTC(),
	}

	if err := uc.repo.Insert(ctx, n); err != nil {
		return nil, err
	}

	resp := domain.WSResponse{
		Action:  string(domain.NewNotification),
		Success: true,
		Payload: map[string]interface{}{"notification": n},
	}
	if err := uc.pubsub.Publish(repository.UserChannel(recipientID), resp); err != nil {
		// 收件人之後可以從 list 拿到，只記 log
		logger.Log.Errorf("notification live delivery failed:", err,
			zap.String("recipientID", recipientID), zap.String("notificationID", n.ID))
	}

	return n, nil
}

// List 收件人的通知，新的排前面
func (uc *NotificationUseCase) List(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	return uc.repo.ListByRecipient(ctx, recipientID)
}

// MarkRead 只有收件人可以標記已讀
func (uc *NotificationUseCase) MarkRead(ctx context.Context, notificationID, requesterID string) (*domain.Notification, error) {
	n, err := uc.repo.MarkRead(ctx, notificationID, requesterID)
	if err != nil {
		return nil, err
	}

	resp := domain.WSResponse{
		Action:  string(domain.NotificationRead),
		Success: true,
		Payload: map[string]interface{}{"notification_id": n.ID},
	}
	if pubErr := uc.pubsub.Publish(repository.UserChannel(n.RecipientID), resp); pubErr != nil {
		logger.Log.Errorf("notification read broadcast failed:", pubErr, zap.String("notificationID", n.ID))
	}
	return n, nil
}

// RunJobEvents 消費 job 服務的 kafka 事件並轉成 job_update 通知
// blocking，ctx 取消時返回
func (uc *NotificationUseCase) RunJobEvents(ctx context.Context, reader JobEventReader) {
	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Log.Info("job event consumer stopped")
				return
			}
			logger.Log.Errorf("job event read failed:", err)
			continue
		}

		var ev domain.JobEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			logger.Log.Errorf("job event unmarshal failed:", err, zap.ByteString("payload", m.Value))
			continue
		}
		if ev.RecipientID == "" {
			continue
		}

		if _, err := uc.Notify(ctx, ev.RecipientID, domain.NotificationTypeJobUpdate,
			ev.Title, ev.Message, "",
			map[string]interface{}{"job_id": ev.JobID, "status": ev.Status},
		); err != nil {
			logger.Log.Errorf("job event notify failed:", err, zap.String("jobID", ev.JobID))
		}
	}
}
