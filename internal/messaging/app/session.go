package app

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"social_network_service/internal/messaging/domain"
	"social_network_service/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sendBufferSize = 128
	pingPeriod     = 30 * time.Second
)

// wsWriter 寫入端介面，測試時用 fake 取代 *websocket.Conn
type wsWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Session 一條 websocket 連線
// 所有寫入都走 send channel 由單一 write loop 處理，慢的 client 只會關掉自己
type Session struct {
	ID     string
	UserID string

	conn  wsWriter
	send  chan []byte
	close chan struct{}
	once  sync.Once
}

// NewSession create a Session for one connection
func NewSession(userID string, conn wsWriter) *Session {
	return &Session{
		ID:     uuid.New().String(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		close:  make(chan struct{}),
	}
}

// Start 啟動 write loop，每條連線只能呼叫一次
func (s *Session) Start() {
	go s.writeLoop()
}

// Deliver 序列化後排入發送佇列
func (s *Session) Deliver(resp domain.WSResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.DeliverRaw(b)
}

// DeliverRaw 排入發送佇列，佇列滿代表 client 跟不上，關閉此 session
func (s *Session) DeliverRaw(payload []byte) error {
	select {
	case <-s.close:
		return errors.New("session closed")
	case s.send <- payload:
		return nil
	default:
		logger.Log.Warn("session send buffer full, closing",
			zap.String("sessionID", s.ID), zap.String("userID", s.UserID))
		s.Close()
		return errors.New("session send buffer full")
	}
}

// Close 停止 write loop
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.close)
	})
}

// Closed check session已關閉
func (s *Session) Closed() bool {
	select {
	case <-s.close:
		return true
	default:
		return false
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.close:
			return
		case payload := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Log.Errorf("session write error:", err)
				s.Close()
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Log.Errorf("session ping error:", err)
				s.Close()
				return
			}
		}
	}
}
