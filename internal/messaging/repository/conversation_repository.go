package repository

import (
	"context"
	"errors"
	"time"

	"social_network_service/internal/messaging/domain"
	errprocess "social_network_service/pkg/err"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository definition conversation directory
type ConversationRepository interface {
	// GetOrCreate 以正規化 key 查詢，不存在則建立，兩端同時發起也只會有一筆
	GetOrCreate(ctx context.Context, participantIDs []string) (*domain.Conversation, error)
	FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error)
	// RecordMessage 更新 last message 指標並對 sender 以外成員 unread +1
	RecordMessage(ctx context.Context, conversationID string, msg *domain.Message) error
	ClearUnread(ctx context.Context, conversationID, userID string) error
	// NextSeq 取得 conversation 內下一個訊息序號
	NextSeq(ctx context.Context, conversationID string) (int64, error)
	ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error)
}

type conversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{
		coll: db.Collection("conversations"),
	}
}

// EnsureConversationIndexes participant_key 唯一索引 + 成員查詢索引
func EnsureConversationIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection("conversations")
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "participant_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updated_at", Value: -1}},
		},
	})
	return err
}

func (r *conversationRepository) GetOrCreate(ctx context.Context, participantIDs []string) (*domain.Conversation, error) {
	participants, key, err := domain.NormalizeParticipants(participantIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":          uuid.New().String(),
			"participants": participants,
			"unread":       bson.M{},
			"message_seq":  int64(0),
			"created_at":   now,
			"updated_at":   now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var conv domain.Conversation
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"participant_key": key}, update, opts).Decode(&conv)
	if err != nil {
		// 兩端同時 upsert 時輸家會撞唯一索引，重讀贏家那筆
		if mongo.IsDuplicateKeyError(err) {
			findErr := r.coll.FindOne(ctx, bson.M{"participant_key": key}).Decode(&conv)
			if findErr != nil {
				return nil, errprocess.Transient("conversation re-read after upsert race", findErr)
			}
			return &conv, nil
		}
		return nil, errprocess.Transient("conversation upsert", err)
	}
	return &conv, nil
}

func (r *conversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	return retryRead(ctx, func() (*domain.Conversation, error) {
		var conv domain.Conversation
		err := r.coll.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conv)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errprocess.NotFound("conversation not found")
		}
		if err != nil {
			return nil, errprocess.Transient("conversation find", err)
		}
		return &conv, nil
	})
}

// RecordMessage 單一 atomic update，併發 send 不會互相蓋掉 unread
func (r *conversationRepository) RecordMessage(ctx context.Context, conversationID string, msg *domain.Message) error {
	conv, err := r.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}

	inc := bson.M{}
	for _, p := range conv.OtherParticipants(msg.SenderID) {
		inc["unread."+p] = 1
	}

	update := bson.M{
		"$set": bson.M{
			"last_message_id": msg.ID,
			"last_message_at": msg.CreatedAt,
			"updated_at":      msg.CreatedAt,
		},
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": conversationID}, update)
	if err != nil {
		return errprocess.Transient("conversation record message", err)
	}
	if res.MatchedCount == 0 {
		return errprocess.NotFound("conversation not found")
	}
	return nil
}

func (r *conversationRepository) ClearUnread(ctx context.Context, conversationID, userID string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"unread." + userID: 0}},
	)
	if err != nil {
		return errprocess.Transient("conversation clear unread", err)
	}
	if res.MatchedCount == 0 {
		return errprocess.NotFound("conversation not found")
	}
	return nil
}

func (r *conversationRepository) NextSeq(ctx context.Context, conversationID string) (int64, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var conv domain.Conversation
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$inc": bson.M{"message_seq": int64(1)}},
		opts,
	).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, errprocess.NotFound("conversation not found")
	}
	if err != nil {
		return 0, errprocess.Transient("conversation next seq", err)
	}
	return conv.MessageSeq, nil
}

func (r *conversationRepository) ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	return retryRead(ctx, func() ([]domain.Conversation, error) {
		opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
		cur, err := r.coll.Find(ctx, bson.M{"participants": userID}, opts)
		if err != nil {
			return nil, errprocess.Transient("conversation list", err)
		}
		var convs []domain.Conversation
		if err := cur.All(ctx, &convs); err != nil {
			return nil, errprocess.Transient("conversation list decode", err)
		}
		return convs, nil
	})
}
