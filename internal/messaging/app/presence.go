package app

import (
	"sync"
	"time"
)

// PresenceListener 上下線事件回呼，在鎖外呼叫
type PresenceListener func(userID string, online bool)

// PresenceTracker 追蹤目前連線中的使用者
// 同一使用者可以有多個 session（多裝置），以連線數判斷在線
// 不落地，process 重啟後全部視為離線
type PresenceTracker struct {
	mu          sync.RWMutex
	staleWindow time.Duration
	sessions    map[string]string    // sessionID -> userID
	conns       map[string]int       // userID -> live session count
	lastSeen    map[string]time.Time // userID -> last heartbeat
	listeners   []PresenceListener

	now func() time.Time
}

// NewPresenceTracker create a lifecycle scoped tracker
func NewPresenceTracker(staleWindow time.Duration) *PresenceTracker {
	return &PresenceTracker{
		staleWindow: staleWindow,
		sessions:    make(map[string]string),
		conns:       make(map[string]int),
		lastSeen:    make(map[string]time.Time),
		now:         time.Now,
	}
}

// OnTransition register a listener for online/offline transitions
func (p *PresenceTracker) OnTransition(l PresenceListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

// MarkOnline 記錄 session，對同一 session 重複呼叫為冪等
func (p *PresenceTracker) MarkOnline(userID, sessionID string) {
	p.mu.Lock()
	if _, ok := p.sessions[sessionID]; ok {
		p.mu.Unlock()
		return
	}
	p.sessions[sessionID] = userID
	p.conns[userID]++
	p.lastSeen[userID] = p.now()
	wentOnline := p.conns[userID] == 1
	listeners := p.listeners
	p.mu.Unlock()

	if wentOnline {
		for _, l := range listeners {
			l(userID, true)
		}
	}
}

// MarkOffline 移除 session，計數歸零立即離線（不做寬限期）
func (p *PresenceTracker) MarkOffline(sessionID string) {
	p.mu.Lock()
	userID, ok := p.sessions[sessionID]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.sessions, sessionID)
	p.conns[userID]--
	wentOffline := p.conns[userID] <= 0
	if wentOffline {
		delete(p.conns, userID)
		delete(p.lastSeen, userID)
	}
	listeners := p.listeners
	p.mu.Unlock()

	if wentOffline {
		for _, l := range listeners {
			l(userID, false)
		}
	}
}

// Heartbeat 更新活動時間，不改變連線數
func (p *PresenceTracker) Heartbeat(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conns[userID] > 0 {
		p.lastSeen[userID] = p.now()
	}
}

// IsOnline 連線數 > 0 且 heartbeat 未過期
func (p *PresenceTracker) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.onlineLocked(userID)
}

func (p *PresenceTracker) onlineLocked(userID string) bool {
	if p.conns[userID] <= 0 {
		return false
	}
	if p.staleWindow <= 0 {
		return true
	}
	return p.now().Sub(p.lastSeen[userID]) <= p.staleWindow
}

// OnlineSet snapshot of every online user, for bulk UI rendering
func (p *PresenceTracker) OnlineSet() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.conns))
	for userID := range p.conns {
		if p.onlineLocked(userID) {
			out = append(out, userID)
		}
	}
	return out
}
