package app

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomJoinLeave(t *testing.T) {
	r := NewRoomRegistry()
	sess := NewSession("alice", newFakeWSWriter())

	r.Join("conv-1", sess)
	assert.True(t, r.HasUser("conv-1", "alice"))
	assert.Len(t, r.Members("conv-1"), 1)

	// 重複 join 不會長出第二筆
	r.Join("conv-1", sess)
	assert.Len(t, r.Members("conv-1"), 1)

	r.Leave("conv-1", sess.ID)
	assert.False(t, r.HasUser("conv-1", "alice"))
	assert.Empty(t, r.Members("conv-1"))
}

func TestRoomMultipleSessionsSameUser(t *testing.T) {
	r := NewRoomRegistry()
	phone := NewSession("alice", newFakeWSWriter())
	laptop := NewSession("alice", newFakeWSWriter())

	r.Join("conv-1", phone)
	r.Join("conv-1", laptop)
	assert.Len(t, r.Members("conv-1"), 2)

	r.Leave("conv-1", phone.ID)
	assert.True(t, r.HasUser("conv-1", "alice"))
}

func TestRoomDropSessionClearsEverywhere(t *testing.T) {
	r := NewRoomRegistry()
	sess := NewSession("alice", newFakeWSWriter())

	r.Join("conv-1", sess)
	r.Join("conv-2", sess)
	r.Join("conv-3", sess)

	r.DropSession(sess.ID)

	assert.False(t, r.HasUser("conv-1", "alice"))
	assert.False(t, r.HasUser("conv-2", "alice"))
	assert.False(t, r.HasUser("conv-3", "alice"))
}

func TestRoomLeaveUnknownNoop(t *testing.T) {
	r := NewRoomRegistry()
	r.Leave("conv-1", "no-such-session")
	r.DropSession("no-such-session")
	assert.Empty(t, r.Members("conv-1"))
}

func TestRoomConcurrentJoinLeave(t *testing.T) {
	r := NewRoomRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			conversationID := fmt.Sprintf("conv-%d", n%8)
			sess := NewSession(fmt.Sprintf("user-%d", n), newFakeWSWriter())
			r.Join(conversationID, sess)
			r.Members(conversationID)
			r.DropSession(sess.ID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		assert.Empty(t, r.Members(fmt.Sprintf("conv-%d", i)))
	}
}
