package domain

import "time"

// NotificationType definition notification type tag
type NotificationType string

const (
	// NotificationTypeInfo generic info
	NotificationTypeInfo NotificationType = "info"
	// NotificationTypeMessage new direct message
	NotificationTypeMessage NotificationType = "message"
	// NotificationTypeJobUpdate job board status change
	NotificationTypeJobUpdate NotificationType = "job_update"
	// NotificationTypeFriendRequest connection request
	NotificationTypeFriendRequest NotificationType = "friend_request"
)

// Notification 通知，TTL index 會在保留期限後自動清除
type Notification struct {
	ID          string                 `bson:"_id" json:"id"`
	RecipientID string                 `bson:"recipient_id" json:"recipient_id"`
	SenderID    string                 `bson:"sender_id,omitempty" json:"sender_id,omitempty"`
	Type        NotificationType       `bson:"type" json:"type"`
	Title       string                 `bson:"title" json:"title"`
	Body        string                 `bson:"body" json:"body"`
	Read        bool                   `bson:"read" json:"read"`
	Data        map[string]interface{} `bson:"data,omitempty" json:"data,omitempty"`
	// CreatedAt 必須是 BSON date，TTL index 才會生效
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// JobEvent job 服務發到 kafka 的事件，會轉成 job_update 通知
type JobEvent struct {
	JobID       string `json:"job_id"`
	RecipientID string `json:"recipient_id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}
