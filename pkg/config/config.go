package config

import "time"

// Messaging definition messaging_service YAML structure
type Messaging struct {
	Port     string         `mapstructure:"port"`
	MongoSQL DatabaseConfig `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`

	Presence     PresenceConfig     `mapstructure:"presence"`
	Notification NotificationConfig `mapstructure:"notification"`
	Page         PageConfig         `mapstructure:"page"`
}

// PresenceConfig definition presence tracker setting
type PresenceConfig struct {
	// StaleWindow 超過此時間沒有 heartbeat 視為離線
	StaleWindow time.Duration `mapstructure:"stale_window"`
}

// NotificationConfig definition notification retention setting
type NotificationConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

// PageConfig definition message page setting
type PageConfig struct {
	DefaultSize int `mapstructure:"default_size"`
}

// KafkaConfig definition kafka setting
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	JobEventTopic string   `mapstructure:"job_event_topic"`
	GroupID       string   `mapstructure:"group_id"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}
