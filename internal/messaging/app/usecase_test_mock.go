package app

import (
	"context"
	"sync"

	"social_network_service/internal/messaging/domain"

	"github.com/stretchr/testify/mock"
)

// MockConversationRepository mock repository.ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) GetOrCreate(ctx context.Context, participantIDs []string) (*domain.Conversation, error) {
	args := m.Called(ctx, participantIDs)
	if conv, ok := args.Get(0).(*domain.Conversation); ok {
		return conv, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if conv, ok := args.Get(0).(*domain.Conversation); ok {
		return conv, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConversationRepository) RecordMessage(ctx context.Context, conversationID string, msg *domain.Message) error {
	args := m.Called(ctx, conversationID, msg)
	return args.Error(0)
}

func (m *MockConversationRepository) ClearUnread(ctx context.Context, conversationID, userID string) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *MockConversationRepository) NextSeq(ctx context.Context, conversationID string) (int64, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockConversationRepository) ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	args := m.Called(ctx, userID)
	if convs, ok := args.Get(0).([]domain.Conversation); ok {
		return convs, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMessageRepository mock repository.MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, messageID)
	if msg, ok := args.Get(0).(*domain.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepository) Page(ctx context.Context, conversationID string, page, pageSize int) (*domain.MessagePage, error) {
	args := m.Called(ctx, conversationID, page, pageSize)
	if result, ok := args.Get(0).(*domain.MessagePage); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, messageID, readerID string) (*domain.Message, error) {
	args := m.Called(ctx, messageID, readerID)
	if msg, ok := args.Get(0).(*domain.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepository) Remove(ctx context.Context, messageID, requesterID string) error {
	args := m.Called(ctx, messageID, requesterID)
	return args.Error(0)
}

// MockNotificationRepository mock repository.NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByRecipient(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	args := m.Called(ctx, recipientID)
	if ns, ok := args.Get(0).([]domain.Notification); ok {
		return ns, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, notificationID, requesterID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID, requesterID)
	if n, ok := args.Get(0).(*domain.Notification); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPubSub mock repository.PubSub
type MockPubSub struct {
	mock.Mock
}

func (m *MockPubSub) Publish(channel string, message interface{}) error {
	args := m.Called(channel, message)
	return args.Error(0)
}

func (m *MockPubSub) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

// MockNotifier mock Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, recipientID string, ntype domain.NotificationType,
	title, body, senderID string, data map[string]interface{}) (*domain.Notification, error) {
	args := m.Called(ctx, recipientID, ntype, title, body, senderID, data)
	if n, ok := args.Get(0).(*domain.Notification); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeWSWriter 記錄寫入的 payload，取代真實 websocket 連線
type fakeWSWriter struct {
	mu      sync.Mutex
	frames  [][]byte
	written chan []byte
	err     error
}

func newFakeWSWriter() *fakeWSWriter {
	return &fakeWSWriter{written: make(chan []byte, 16)}
}

func (f *fakeWSWriter) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, data)
	select {
	case f.written <- data:
	default:
	}
	return nil
}
