package handlers

import (
	"os"
	"testing"

	"social_network_service/internal/messaging/repository"
	"social_network_service/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

func TestDefaultPageSizeFromConfig(t *testing.T) {
	h := NewMessageHandler(nil, nil, 35)
	assert.Equal(t, 35, h.defaultPageSize())
}

func TestDefaultPageSizeFallsBackWhenUnset(t *testing.T) {
	// 設定檔沒給（或給了 0 / 負值）就用內建預設
	assert.Equal(t, repository.DefaultPageSize, NewMessageHandler(nil, nil, 0).defaultPageSize())
	assert.Equal(t, repository.DefaultPageSize, NewMessageHandler(nil, nil, -5).defaultPageSize())
}
