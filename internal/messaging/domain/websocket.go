package domain

// Action websocket request action
type Action string

const (
	// JoinConversation websocket action join_conversation
	JoinConversation Action = "join_conversation"
	// LeaveConversation websocket action leave_conversation
	LeaveConversation Action = "leave_conversation"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// ReadMessage websocket action read_message
	ReadMessage Action = "read_message"
	// Heartbeat websocket action heartbeat
	Heartbeat Action = "heartbeat"

	// NewMessage websocket push new_message
	NewMessage Action = "new_message"
	// LoadMessages websocket push load_messages (backfill on join)
	LoadMessages Action = "load_messages"
	// MessageSent websocket ack message_sent
	MessageSent Action = "message_sent"
	// MessageError websocket nack message_error
	MessageError Action = "message_error"
	// UserOnline websocket push user_online
	UserOnline Action = "user_online"
	// UserOffline websocket push user_offline
	UserOffline Action = "user_offline"
	// NewNotification websocket push new_notification
	NewNotification Action = "new_notification"
	// NotificationRead websocket push notification_read
	NotificationRead Action = "notification_read"
)

// WSRequest websocket Request
type WSRequest struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversation_id"`
	RecipientID    string `json:"recipient_id"`
	Content        string `json:"content"`
	MessageID      string `json:"message_id"`
	Page           int    `json:"page"`
	Limit          int    `json:"limit"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
