package domain

import (
	"strings"

	errprocess "social_network_service/pkg/err"
)

// Message 表示一則私訊，永遠屬於一個 Conversation
type Message struct {
	ID             string `bson:"_id" json:"id"`
	ConversationID string `bson:"conversation_id" json:"conversation_id"`
	SenderID       string `bson:"sender_id" json:"sender_id"`
	RecipientID    string `bson:"recipient_id" json:"recipient_id"`
	Content        string `bson:"content" json:"content"`
	// Seq 為每個 conversation 內單調遞增的序號，同秒訊息靠它決定順序
	Seq       int64 `bson:"seq" json:"seq"`
	CreatedAt int64 `bson:"created_at" json:"created_at"`
	Read      bool  `bson:"read" json:"read"`
	ReadAt    int64 `bson:"read_at,omitempty" json:"read_at,omitempty"`
}

// MessagePage page query result, newest first
type MessagePage struct {
	Messages []Message `json:"messages"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
}

// ValidateContent trim 後不可為空字串
func ValidateContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", errprocess.Validation("message content must not be empty")
	}
	return trimmed, nil
}
