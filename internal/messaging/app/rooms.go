package app

import (
	"hash/fnv"
	"sync"
)

const roomShardCount = 32

// RoomRegistry conversation -> joined sessions
// 以 conversationID 分 shard，各 shard 獨立上鎖，不同 conversation 不會互相序列化
type RoomRegistry struct {
	shards [roomShardCount]roomShard

	// sessionID -> joined conversation ids，斷線時反查用
	mu           sync.Mutex
	sessionRooms map[string]map[string]struct{}
}

type roomShard struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Session
}

// NewRoomRegistry create a RoomRegistry
func NewRoomRegistry() *RoomRegistry {
	r := &RoomRegistry{
		sessionRooms: make(map[string]map[string]struct{}),
	}
	for i := range r.shards {
		r.shards[i].rooms = make(map[string]map[string]*Session)
	}
	return r
}

func (r *RoomRegistry) shardFor(conversationID string) *roomShard {
	h := fnv.New32a()
	h.Write([]byte(conversationID))
	return &r.shards[h.Sum32()%roomShardCount]
}

// Join 把 session 加入 conversation room，重複 join 為冪等
func (r *RoomRegistry) Join(conversationID string, s *Session) {
	shard := r.shardFor(conversationID)
	shard.mu.Lock()
	room, ok := shard.rooms[conversationID]
	if !ok {
		room = make(map[string]*Session)
		shard.rooms[conversationID] = room
	}
	room[s.ID] = s
	shard.mu.Unlock()

	r.mu.Lock()
	joined, ok := r.sessionRooms[s.ID]
	if !ok {
		joined = make(map[string]struct{})
		r.sessionRooms[s.ID] = joined
	}
	joined[conversationID] = struct{}{}
	r.mu.Unlock()
}

// Leave 把 session 移出 room
func (r *RoomRegistry) Leave(conversationID, sessionID string) {
	shard := r.shardFor(conversationID)
	shard.mu.Lock()
	if room, ok := shard.rooms[conversationID]; ok {
		delete(room, sessionID)
		if len(room) == 0 {
			delete(shard.rooms, conversationID)
		}
	}
	shard.mu.Unlock()

	r.mu.Lock()
	if joined, ok := r.sessionRooms[sessionID]; ok {
		delete(joined, conversationID)
		if len(joined) == 0 {
			delete(r.sessionRooms, sessionID)
		}
	}
	r.mu.Unlock()
}

// Members snapshot of sessions currently joined
func (r *RoomRegistry) Members(conversationID string) []*Session {
	shard := r.shardFor(conversationID)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	room := shard.rooms[conversationID]
	out := make([]*Session, 0, len(room))
	for _, s := range room {
		out = append(out, s)
	}
	return out
}

// HasUser check 某使用者是否有任何 session 在這個 room 裡
func (r *RoomRegistry) HasUser(conversationID, userID string) bool {
	shard := r.shardFor(conversationID)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	for _, s := range shard.rooms[conversationID] {
		if s.UserID == userID {
			return true
		}
	}
	return false
}

// DropSession 斷線時把 session 從所有 room 移除，回傳離開的 conversation ids
func (r *RoomRegistry) DropSession(sessionID string) []string {
	r.mu.Lock()
	joined := r.sessionRooms[sessionID]
	delete(r.sessionRooms, sessionID)
	conversationIDs := make([]string, 0, len(joined))
	for id := range joined {
		conversationIDs = append(conversationIDs, id)
	}
	r.mu.Unlock()

	for _, conversationID := range conversationIDs {
		shard := r.shardFor(conversationID)
		shard.mu.Lock()
		if room, ok := shard.rooms[conversationID]; ok {
			delete(room, sessionID)
			if len(room) == 0 {
				delete(shard.rooms, conversationID)
			}
		}
		shard.mu.Unlock()
	}
	return conversationIDs
}
