package domain

import (
	"sort"
	"strings"

	"social_network_service/pkg"
	errprocess "social_network_service/pkg/err"
)

// Conversation 表示兩人（或多人）之間唯一的對話串
// participant_key 為正規化後的成員集合，唯一索引保證同一組成員只有一個 Conversation
type Conversation struct {
	ID             string         `bson:"_id,omitempty" json:"id"`
	ParticipantKey string         `bson:"participant_key" json:"-"`
	Participants   []string       `bson:"participants" json:"participants"`
	LastMessageID  string         `bson:"last_message_id,omitempty" json:"last_message_id,omitempty"`
	LastMessageAt  int64          `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`
	Unread         map[string]int `bson:"unread,omitempty" json:"unread,omitempty"`
	MessageSeq     int64          `bson:"message_seq" json:"-"`
	CreatedAt      int64          `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt      int64          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// NormalizeParticipants 排序去重成員並產生 participant_key
// (A,B) 與 (B,A) 必須得到相同 key
func NormalizeParticipants(ids []string) ([]string, string, error) {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, "", errprocess.Validation("participant id must not be empty")
		}
		cleaned = append(cleaned, id)
	}

	cleaned = pkg.Unique(cleaned)
	if len(cleaned) < 2 {
		return nil, "", errprocess.Validation("conversation needs at least 2 distinct participants")
	}

	sort.Strings(cleaned)
	return cleaned, strings.Join(cleaned, ":"), nil
}

// HasParticipant check userID is a member
func (c *Conversation) HasParticipant(userID string) bool {
	return pkg.Contains(c.Participants, userID)
}

// OtherParticipants 回傳除了 userID 以外的成員
func (c *Conversation) OtherParticipants(userID string) []string {
	others := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != userID {
			others = append(others, p)
		}
	}
	return others
}

// UnreadFor unread counter for one participant, never negative
func (c *Conversation) UnreadFor(userID string) int {
	if c.Unread == nil {
		return 0
	}
	n := c.Unread[userID]
	if n < 0 {
		return 0
	}
	return n
}
