package app

import (
	"context"

	"social_network_service/internal/messaging/domain"
	"social_network_service/internal/messaging/repository"
	errprocess "social_network_service/pkg/err"
)

// ConversationUseCase conversation directory 的查詢入口
type ConversationUseCase struct {
	convRepo repository.ConversationRepository
}

// NewConversationUseCase create conversation use case
func NewConversationUseCase(convRepo repository.ConversationRepository) *ConversationUseCase {
	return &ConversationUseCase{convRepo: convRepo}
}

// GetOrCreate caller 一定要在成員裡
func (uc *ConversationUseCase) GetOrCreate(ctx context.Context, callerID string, participantIDs []string) (*domain.Conversation, error) {
	found := false
	for _, id := range participantIDs {
		if id == callerID {
			found = true
			break
		}
	}
	if !found {
		return nil, errprocess.Forbidden("caller must be a participant of the conversation")
	}
	return uc.convRepo.GetOrCreate(ctx, participantIDs)
}

// List caller 的所有 conversation，最近活動排前面
func (uc *ConversationUseCase) List(ctx context.Context, callerID string) ([]domain.Conversation, error) {
	return uc.convRepo.ListByParticipant(ctx, callerID)
}

// ClearUnread 開啟 conversation 時歸零自己的未讀數
func (uc *ConversationUseCase) ClearUnread(ctx context.Context, conversationID, callerID string) error {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(callerID) {
		return errprocess.Forbidden("not a participant of the conversation")
	}
	return uc.convRepo.ClearUnread(ctx, conversationID, callerID)
}
