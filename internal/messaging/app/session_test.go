package app

import (
	"errors"
	"testing"
	"time"

	"social_network_service/internal/messaging/domain"

	"github.com/stretchr/testify/assert"
)

func TestSessionDeliverWritesFrame(t *testing.T) {
	writer := newFakeWSWriter()
	sess := NewSession("alice", writer)
	sess.Start()
	defer sess.Close()

	err := sess.Deliver(domain.WSResponse{
		Action:  string(domain.NewMessage),
		Success: true,
		Payload: map[string]interface{}{"text": "hello"},
	})
	assert.NoError(t, err)

	select {
	case frame := <-writer.written:
		assert.Contains(t, string(frame), "hello")
	case <-time.After(time.Second):
		t.Fatal("write loop did not flush the frame")
	}
}

func TestSessionBufferFullClosesSelf(t *testing.T) {
	// 不啟動 write loop，模擬跟不上的 client
	sess := NewSession("alice", newFakeWSWriter())

	var err error
	for i := 0; i <= sendBufferSize; i++ {
		err = sess.DeliverRaw([]byte("x"))
	}

	assert.Error(t, err)
	assert.True(t, sess.Closed())
}

func TestSessionDeliverAfterClose(t *testing.T) {
	sess := NewSession("alice", newFakeWSWriter())
	sess.Close()

	err := sess.DeliverRaw([]byte("late"))
	assert.Error(t, err)
}

func TestSessionWriteErrorClosesSelf(t *testing.T) {
	writer := newFakeWSWriter()
	writer.err = errors.New("broken pipe")
	sess := NewSession("alice", writer)
	sess.Start()

	assert.NoError(t, sess.DeliverRaw([]byte("doomed")))

	assert.Eventually(t, sess.Closed, time.Second, 10*time.Millisecond)
}

func TestSessionCloseIdempotent(t *testing.T) {
	sess := NewSession("alice", newFakeWSWriter())
	sess.Close()
	sess.Close()
	assert.True(t, sess.Closed())
}
