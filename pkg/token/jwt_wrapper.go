package token

import "social_network_service/pkg/config"

// 這些變數會在測試時被覆蓋
var (
	GenerateJWTFunc = GenerateJWT
	ParseJWTFunc    = ParseJWT
)

// GenerateJWTWrapper wrapper for test mock
func GenerateJWTWrapper(userID, role string) (string, error) {
	return GenerateJWTFunc(userID, role, config.EnvConfig.MessagingService)
}

// ParseJWTWrapper wrapper for test mock
func ParseJWTWrapper(t string) (*Claims, error) {
	return ParseJWTFunc(t)
}
