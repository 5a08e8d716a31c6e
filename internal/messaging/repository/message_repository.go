package repository

import (
	"context"
	"errors"
	"time"

	"social_network_service/internal/messaging/domain"
	errprocess "social_network_service/pkg/err"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultPageSize messages per page when the caller does not ask for one
const DefaultPageSize = 20

// MessageRepository definition message store
type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.Message) error
	FindByID(ctx context.Context, messageID string) (*domain.Message, error)
	// Page 以 (created_at desc, seq desc) 排序，分頁結果不會重複或跳號
	Page(ctx context.Context, conversationID string, page, pageSize int) (*domain.MessagePage, error)
	// MarkRead 只有 recipient 可以標記，已讀時為 no-op
	MarkRead(ctx context.Context, messageID, readerID string) (*domain.Message, error)
	// Remove 只有 sender 可以刪除
	Remove(ctx context.Context, messageID, requesterID string) error
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll: db.Collection("messages"),
	}
}

// EnsureMessageIndexes 分頁查詢用複合索引
func EnsureMessageIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection("messages")
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "conversation_id", Value: 1},
				{Key: "created_at", Value: -1},
				{Key: "seq", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "read", Value: 1}},
		},
	})
	return err
}

func (r *messageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	// 寫入不重試：caller 必須明確知道訊息有沒有落地
	_, err := r.coll.InsertOne(ctx, msg)
	if err != nil {
		return errprocess.Transient("message insert", err)
	}
	return nil
}

func (r *messageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	return retryRead(ctx, func() (*domain.Message, error) {
		var msg domain.Message
		err := r.coll.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errprocess.NotFound("message not found")
		}
		if err != nil {
			return nil, errprocess.Transient("message find", err)
		}
		return &msg, nil
	})
}

func (r *messageRepository) Page(ctx context.Context, conversationID string, page, pageSize int) (*domain.MessagePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	skip := int64((page - 1) * pageSize)

	return retryRead(ctx, func() (*domain.MessagePage, error) {
		filter := bson.M{"conversation_id": conversationID}

		total, err := r.coll.CountDocuments(ctx, filter)
		if err != nil {
			return nil, errprocess.Transient("message count", err)
		}

		opts := options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}).
			SetSkip(skip).
			SetLimit(int64(pageSize))
		cur, err := r.coll.Find(ctx, filter, opts)
		if err != nil {
			return nil, errprocess.Transient("message page", err)
		}

		messages := []domain.Message{}
		if err := cur.All(ctx, &messages); err != nil {
			return nil, errprocess.Transient("message page decode", err)
		}

		pages := int((total + int64(pageSize) - 1) / int64(pageSize))
		return &domain.MessagePage{
			Messages: messages,
			Total:    total,
			Page:     page,
			Pages:    pages,
		}, nil
	})
}

func (r *messageRepository) MarkRead(ctx context.Context, messageID, readerID string) (*domain.Message, error) {
	msg, err := r.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.RecipientID != readerID {
		return nil, errprocess.Forbidden("only the recipient can mark a message read")
	}
	if msg.Read {
		// 重複標記不是錯誤
		return msg, nil
	}

	readAt := time.Now().Unix()
	// filter 帶 read:false，兩個 session 同時標記也只會寫一次
	_, err = r.coll.UpdateOne(ctx,
		bson.M{"_id": messageID, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": readAt}},
	)
	if err != nil {
		return nil, errprocess.Transient("message mark read", err)
	}

	msg.Read = true
	msg.ReadAt = readAt
	return msg, nil
}

func (r *messageRepository) Remove(ctx context.Context, messageID, requesterID string) error {
	msg, err := r.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != requesterID {
		return errprocess.Forbidden("only the sender can delete a message")
	}

	_, err = r.coll.DeleteOne(ctx, bson.M{"_id": messageID})
	if err != nil {
		return errprocess.Transient("message delete", err)
	}
	return nil
}
