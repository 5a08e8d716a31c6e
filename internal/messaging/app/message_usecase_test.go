package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"social_network_service/internal/messaging/domain"
	"social_network_service/internal/messaging/repository"
	errprocess "social_network_service/pkg/err"
	"social_network_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

func directConversation(id string, participants ...string) *domain.Conversation {
	norm, key, _ := domain.NormalizeParticipants(participants)
	return &domain.Conversation{
		ID:             id,
		ParticipantKey: key,
		Participants:   norm,
		Unread:         map[string]int{},
	}
}

func newMessageUseCaseForTest() (*MessageUseCase, *MockConversationRepository, *MockMessageRepository, *MockPubSub, *MockNotifier, *RoomRegistry) {
	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	pubsub := new(MockPubSub)
	notifier := new(MockNotifier)
	rooms := NewRoomRegistry()
	uc := NewMessageUseCase(convRepo, msgRepo, rooms, pubsub, notifier)
	return uc, convRepo, msgRepo, pubsub, notifier, rooms
}

func TestSendPersistsAndFansOut(t *testing.T) {
	uc, convRepo, msgRepo, pubsub, notifier, _ := newMessageUseCaseForTest()
	ctx := context.Background()
	conv := directConversation("conv-1", "alice", "bob")

	convRepo.On("FindByID", ctx, "conv-1").Return(conv, nil)
	convRepo.On("NextSeq", ctx, "conv-1").Return(int64(7), nil)
	msgRepo.On("Insert", ctx, mock.AnythingOfType("*domain.Message")).Return(nil)
	convRepo.On("RecordMessage", ctx, "conv-1", mock.AnythingOfType("*domain.Message")).Return(nil)
	pubsub.On("Publish", repository.ConversationChannel("conv-1"), mock.Anything).Return(nil)
	// bob 不在 room 裡，會收到通知
	notifier.On("Notify", ctx, "bob", domain.NotificationTypeMessage,
		"New message", "hello", "alice", mock.Anything).Return(&domain.Notification{ID: "n-1"}, nil)

	msg, err := uc.Send(ctx, "alice", "conv-1", "hello")

	assert.NoError(t, err)
	assert.Equal(t, "conv-1", msg.ConversationID)
	assert.Equal(t, "alice", msg.SenderID)
	assert.Equal(t, "bob", msg.RecipientID)
	assert.Equal(t, int64(7), msg.Seq)
	assert.Equal(t, "hello", msg.Content)
	convRepo.AssertExpectations(t)
	msgRepo.AssertExpectations(t)
	pubsub.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestSendEmptyContent(t *testing.T) {
	uc, convRepo, msgRepo, _, _, _ := newMessageUseCaseForTest()

	_, err := uc.Send(context.Background(), "alice", "conv-1", "   ")

	assert.Error(t, err)
	assert.Equal(t, errprocess.KindValidation, errprocess.KindOf(err))
	convRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	msgRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSendNonParticipant(t *testing.T) {
	uc, convRepo, msgRepo, _, _, _ := newMessageUseCaseForTest()
	ctx := context.Background()
	conv := directConversation("conv-1", "alice", "bob")

	convRepo.On("FindByID", ctx, "conv-1").Return(conv, nil)

	_, err := uc.Send(ctx, "mallory", "conv-1", "hi")

	assert.Error(t, err)
	assert.Equal(t, errprocess.KindForbidden, errprocess.KindOf(err))
	msgRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSendInsertFailureNoFanOut(t *testing.T) {
	uc, convRepo, msgRepo, pubsub, notifier, _ := newMessageUseCaseForTest()
	ctx := context.Background()
	conv := directConversation("conv-1", "alice", "bob")

	convRepo.On("FindByID", ctx, "conv-1").Return(conv, nil)
	convRepo.On("NextSeq", ctx, "conv-1").Return(int64(1), nil)
	msgRepo.On("Insert", ctx, mock.AnythingOfType("*domain.Message")).
		Return(errprocess.Transient("message insert", errors.New("socket closed")))

	_, err := uc.Send(ctx, "alice", "conv-1", "hi")

	assert.Error(t, err)
	assert.Equal(t, errprocess.KindTransient, errprocess.KindOf(err))
	convRepo.AssertNotCalled(t, "RecordMessage", mock.Anything, mock.Anything, mock.Anything)
	pubsub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "Notify",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendDeliversToJoinedSessionWithoutNotification(t *testing.T) {
	uc, convRepo, msgRepo, pubsub, notifier, rooms := newMessageUseCaseForTest()
	ctx := context.Background()
	conv := directConversation("conv-1", "alice", "bob")

	writer := newFakeWSWriter()
	bobSess := NewSession("bob", writer)
	bobSess.Start()
	defer bobSess.Close()
	rooms.Join("conv-1", bobSess)

	convRepo.On("FindByID", ctx, "conv-1").Return(conv, nil)
	convRepo.On("NextSeq", ctx, "conv-1").Return(int64(1), nil)
	msgRepo.On("Insert", ctx, mock.AnythingOfType("*domain.Message")).Return(nil)
	convRepo.On("RecordMessage", ctx, "conv-1", mock.AnythingOfType("*domain.Message")).Return(nil)
	pubsub.On("Publish", repository.ConversationChannel("conv-1"), mock.Anything).Return(nil)

	_, err := uc.Send(ctx, "alice", "conv-1", "hi bob")

	assert.NoError(t, err)
	select {
	case frame := <-writer.written:
		assert.Contains(t, string(frame), string(domain.NewMessage))
		assert.Contains(t, string(frame), "hi bob")
	case <-time.After(time.Second):
		t.Fatal("joined session did not receive the fan-out frame")
	}
	// 人已經在 room 裡看著，不需要通知
	notifier.AssertNotCalled(t, "Notify",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendToRecipientCreatesConversationLazily(t *testing.T) {
	uc, convRepo, msgRepo, pubsub, notifier, _ := newMessageUseCaseForTest()
	ctx := context.Background()
	conv := directConversation("conv-new", "alice", "bob")

	convRepo.On("GetOrCreate", ctx, []string{"alice", "bob"}).Return(conv, nil)
	convRepo.On("FindByID", ctx, "conv-new").Return(conv, nil)
	convRepo.On("NextSeq", ctx, "conv-new").Return(int64(1), nil)
	msgRepo.On("Insert", ctx, mock.AnythingOfType("*domain.Message")).Return(nil)
	convRepo.On("RecordMessage", ctx, "conv-new", mock.AnythingOfType("*domain.Message")).Return(nil)
	pubsub.On("Publish", repository.ConversationChannel("conv-new"), mock.Anything).Return(nil)
	notifier.On("Notify", ctx, "bob", domain.NotificationTypeMessage,
		mock.Anything, mock.Anything, "alice", mock.Anything).Return(&domain.Notification{ID: "n-1"}, nil)

	msg, err := uc.SendToRecipient(ctx, "alice", "bob", "first contact")

	assert.NoError(t, err)
	assert.Equal(t, "conv-new", msg.ConversationID)
	convRepo.AssertExpectations(t)
}

func TestPageChecksMembershipAndClearsUnread(t *testing.T) {
	uc, convRepo, msgRepo, _, _, _ := newMessageUseCaseForTest()
	ctx := context.Background()
	conv := directConversation("conv-1", "alice", "bob")
	page := &domain.MessagePage{
		Messages: []domain.Message{{ID: "m-2", Seq: 2}, {ID: "m-1", Seq: 1}},
		Total:    2,
		Page:     1,
		Pages:    1,
	}

	convRepo.On("FindByID", ctx, "conv-1").Return(conv, nil)
	msgRepo.On("Page", ctx, "conv-1", 1, 20).Return(page, nil)
	convRepo.On("ClearUnread", ctx, "conv-1", "bob").Return(nil)

	got, err := uc.Page(ctx, "bob", "conv-1", 1, 20)

	assert.NoError(t, err)
	assert.Len(t, got.Messages, 2)
	convRepo.AssertExpectations(t)
}

func TestPageForbiddenForOutsider(t *testing.T) {
	uc, convRepo, msgRepo, _, _, _ := newMessageUseCaseForTest()
	ctx := context.Background()
	conv := directConversation("conv-1", "alice", "bob")

	convRepo.On("FindByID", ctx, "conv-1").Return(conv, nil)

	_, err := uc.Page(ctx, "mallory", "conv-1", 1, 20)

	assert.Error(t, err)
	assert.Equal(t, errprocess.KindForbidden, errprocess.KindOf(err))
	msgRepo.AssertNotCalled(t, "Page", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	convRepo.AssertNotCalled(t, "ClearUnread", mock.Anything, mock.Anything, mock.Anything)
}

func TestJoinConversationBackfillsHistory(t *testing.T) {
	uc, convRepo, msgRepo, pubsub, _, rooms := newMessageUseCaseForTest()
	ctx := context.Background()
	conv := directConversation("conv-1", "alice", "bob")
	page := &domain.MessagePage{
		Messages: []domain.Message{{ID: "m-1", Content: "old message"}},
		Total:    1,
		Page:     1,
		Pages:    1,
	}

	writer := newFakeWSWriter()
	sess := NewSession("alice", writer)
	sess.Start()
	defer sess.Close()

	convRepo.On("FindByID", ctx, "conv-1").Return(conv, nil)
	msgRepo.On("Page", ctx, "conv-1", 1, repository.DefaultPageSize).Return(page, nil)
	convRepo.On("ClearUnread", ctx, "conv-1", "alice").Return(nil)
	pubsub.On("Subscribe", mock.Anything, repository.ConversationChannel("conv-1"), mock.Anything).Return(nil)

	err := uc.JoinConversation(ctx, sess, "conv-1")

	assert.NoError(t, err)
	assert.True(t, rooms.HasUser("conv-1", "alice"))
	select {
	case frame := <-writer.written:
		assert.Contains(t, string(frame), string(domain.LoadMessages))
		assert.Contains(t, string(frame), "old message")
	case <-time.After(time.Second):
		t.Fatal("session did not receive the history backfill")
	}
}

func TestJoinConversationForbiddenForOutsider(t *testing.T) {
	uc, convRepo, _, _, _, rooms := newMessageUseCaseForTest()
	ctx := context.Background()
	conv := directConversation("conv-1", "alice", "bob")

	sess := NewSession("mallory", newFakeWSWriter())

	convRepo.On("FindByID", ctx, "conv-1").Return(conv, nil)

	err := uc.JoinConversation(ctx, sess, "conv-1")

	assert.Error(t, err)
	assert.Equal(t, errprocess.KindForbidden, errprocess.KindOf(err))
	assert.False(t, rooms.HasUser("conv-1", "mallory"))
}

func TestConcurrentSendsAllPersisted(t *testing.T) {
	uc, convRepo, msgRepo, pubsub, notifier, _ := newMessageUseCaseForTest()
	ctx := context.Background()
	conv := directConversation("conv-1", "alice", "bob")
	const n = 16

	convRepo.On("FindByID", ctx, "conv-1").Return(conv, nil)
	convRepo.On("NextSeq", ctx, "conv-1").Return(int64(1), nil)
	msgRepo.On("Insert", ctx, mock.AnythingOfType("*domain.Message")).Return(nil)
	convRepo.On("RecordMessage", ctx, "conv-1", mock.AnythingOfType("*domain.Message")).Return(nil)
	pubsub.On("Publish", repository.ConversationChannel("conv-1"), mock.Anything).Return(nil)
	notifier.On("Notify", ctx, "bob", domain.NotificationTypeMessage,
		mock.Anything, mock.Anything, "alice", mock.Anything).Return(&domain.Notification{ID: "n"}, nil)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Send(ctx, "alice", "conv-1", "burst")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	// 每一筆 send 都要落地、更新目錄、補通知
	msgRepo.AssertNumberOfCalls(t, "Insert", n)
	convRepo.AssertNumberOfCalls(t, "RecordMessage", n)
	notifier.AssertNumberOfCalls(t, "Notify", n)
}

func TestRoomFeedSurvivesLeaveJoinInterleaving(t *testing.T) {
	uc, _, _, pubsub, _, _ := newMessageUseCaseForTest()
	pubsub.On("Subscribe", mock.Anything, repository.ConversationChannel("conv-1"), mock.Anything).Return(nil)

	sessA := NewSession("alice", newFakeWSWriter())
	sessB := NewSession("bob", newFakeWSWriter())

	uc.rooms.Join("conv-1", sessA)
	require.NoError(t, uc.ensureRoomFeed("conv-1"))

	// A 離開後、退訂檢查前，B 搶先加入：feed 已存在所以不會重訂
	uc.rooms.Leave("conv-1", sessA.ID)
	uc.rooms.Join("conv-1", sessB)
	require.NoError(t, uc.ensureRoomFeed("conv-1"))

	// A 的退訂此時才跑，room 還有 B，feed 必須留著
	uc.dropRoomFeedIfEmpty("conv-1")

	uc.subMu.Lock()
	_, alive := uc.subs["conv-1"]
	uc.subMu.Unlock()
	assert.True(t, alive, "room 還有 session 時 conversation feed 不能被退訂")
	pubsub.AssertNumberOfCalls(t, "Subscribe", 1)

	// B 也離開後才真正退訂
	uc.rooms.Leave("conv-1", sessB.ID)
	uc.dropRoomFeedIfEmpty("conv-1")
	uc.subMu.Lock()
	_, alive = uc.subs["conv-1"]
	uc.subMu.Unlock()
	assert.False(t, alive)
}

func TestRoomFeedStressKeepsFeedForOccupiedRooms(t *testing.T) {
	uc, _, _, pubsub, _, _ := newMessageUseCaseForTest()
	pubsub.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				sess := NewSession("user", newFakeWSWriter())
				uc.rooms.Join("conv-hot", sess)
				_ = uc.ensureRoomFeed("conv-hot")
				uc.rooms.Leave("conv-hot", sess.ID)
				uc.dropRoomFeedIfEmpty("conv-hot")
			}
		}()
	}

	anchor := NewSession("anchor", newFakeWSWriter())
	uc.rooms.Join("conv-hot", anchor)
	require.NoError(t, uc.ensureRoomFeed("conv-hot"))
	wg.Wait()

	// anchor 一直在 room 裡，feed 在整輪攪動後必須還活著
	uc.subMu.Lock()
	_, alive := uc.subs["conv-hot"]
	uc.subMu.Unlock()
	assert.True(t, alive)
}

func TestRoomFeedForwardsRemoteEnvelopesOnly(t *testing.T) {
	uc, convRepo, msgRepo, pubsub, _, _ := newMessageUseCaseForTest()
	ctx := context.Background()
	conv := directConversation("conv-1", "alice", "bob")
	page := &domain.MessagePage{Messages: []domain.Message{}, Total: 0, Page: 1, Pages: 0}

	writer := newFakeWSWriter()
	sess := NewSession("alice", writer)
	sess.Start()
	defer sess.Close()

	var feed func(payload []byte)
	convRepo.On("FindByID", ctx, "conv-1").Return(conv, nil)
	msgRepo.On("Page", ctx, "conv-1", 1, repository.DefaultPageSize).Return(page, nil)
	convRepo.On("ClearUnread", ctx, "conv-1", "alice").Return(nil)
	pubsub.On("Subscribe", mock.Anything, repository.ConversationChannel("conv-1"), mock.Anything).
		Run(func(args mock.Arguments) {
			feed = args.Get(2).(func(payload []byte))
		}).Return(nil)

	require.NoError(t, uc.JoinConversation(ctx, sess, "conv-1"))
	<-writer.written // load_messages backfill
	require.NotNil(t, feed)

	// 其他節點的 envelope 要轉給本地 session
	remote, _ := json.Marshal(map[string]interface{}{
		"origin": "some-other-node",
		"resp": domain.WSResponse{
			Action:  string(domain.NewMessage),
			Success: true,
			Payload: map[string]interface{}{"text": "from remote node"},
		},
	})
	feed(remote)
	select {
	case frame := <-writer.written:
		assert.Contains(t, string(frame), "from remote node")
	case <-time.After(time.Second):
		t.Fatal("remote envelope was not forwarded")
	}

	// 自己節點發的 envelope 已經直接投遞過，不能重複
	own, _ := json.Marshal(map[string]interface{}{
		"origin": uc.nodeID,
		"resp": domain.WSResponse{
			Action:  string(domain.NewMessage),
			Success: true,
			Payload: map[string]interface{}{"text": "duplicate"},
		},
	})
	feed(own)
	select {
	case frame := <-writer.written:
		t.Fatalf("own envelope must be skipped, got %s", frame)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMarkReadDelegatesToStore(t *testing.T) {
	uc, _, msgRepo, _, _, _ := newMessageUseCaseForTest()
	ctx := context.Background()
	read := &domain.Message{ID: "m-1", Read: true}

	msgRepo.On("MarkRead", ctx, "m-1", "bob").Return(read, nil)

	got, err := uc.MarkRead(ctx, "m-1", "bob")

	assert.NoError(t, err)
	assert.True(t, got.Read)
	msgRepo.AssertExpectations(t)
}
