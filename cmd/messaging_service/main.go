package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"social_network_service/internal/messaging/api/handlers"
	"social_network_service/internal/messaging/app"
	"social_network_service/internal/messaging/repository"
	"social_network_service/internal/messaging/router"
	"social_network_service/pkg/config"
	"social_network_service/pkg/database"
	"social_network_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.MessagingService, config.EnvConfig.MessagingServiceLogPath)
	cfg := config.LoadConfig[config.Messaging](config.EnvConfig.MessagingService, config.EnvConfig.MessagingServiceYAMLPath)

	// 1. 建立 Mongo 連線 (訊息、conversation、通知)
	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval) * time.Second,
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	if err := repository.EnsureConversationIndexes(ctx, mongo.Database); err != nil {
		logger.Log.Fatal(fmt.Sprintf("conversation indexes err : %v", err))
	}
	if err := repository.EnsureMessageIndexes(ctx, mongo.Database); err != nil {
		logger.Log.Fatal(fmt.Sprintf("message indexes err : %v", err))
	}
	retention := time.Duration(cfg.Notification.RetentionDays) * 24 * time.Hour
	if err := repository.EnsureNotificationIndexes(ctx, mongo.Database, retention); err != nil {
		logger.Log.Fatal(fmt.Sprintf("notification indexes err : %v", err))
	}

	// 2. 建立 Redis 連線 (Pub/Sub)
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// 3. 初始化 Repository
	convRepo := repository.NewMongoConversationRepository(mongo.Database)
	msgRepo := repository.NewMongoMessageRepository(mongo.Database)
	notifRepo := repository.NewMongoNotificationRepository(mongo.Database)
	pubsub := repository.NewRedisPubSub(redisClient)

	// 4. 初始化 UseCases
	rooms := app.NewRoomRegistry()
	presence := app.NewPresenceTracker(cfg.Presence.StaleWindow)
	notificationUC := app.NewNotificationUseCase(notifRepo, pubsub)
	messageUC := app.NewMessageUseCase(convRepo, msgRepo, rooms, pubsub, notificationUC)
	conversationUC := app.NewConversationUseCase(convRepo)

	// 5. job 服務的 kafka 事件轉通知
	reader, err := database.NewKafkaReaderWithRetry(database.KafkaConnection{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.JobEventTopic,
		GroupID:       cfg.Kafka.GroupID,
		RetryCount:    cfg.Kafka.RetryCount,
		RetryInterval: time.Duration(cfg.Kafka.RetryInterval) * time.Second,
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect kafka err : %v", err))
	}
	defer reader.Close()
	go notificationUC.RunJobEvents(ctx, reader)

	// 6. 啟動 Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.MessagingServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))

	// 注册路由
	router.RegisterRoutes(r,
		app.NewMessagingWebsocketHandler(messageUC, presence, pubsub),
		handlers.NewMessageHandler(messageUC, conversationUC, cfg.Page.DefaultSize),
		handlers.NewNotificationHandler(notificationUC),
		handlers.NewPresenceHandler(presence),
	)

	// Listen
	port := ":" + cfg.Port
	log.Printf("Messaging Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
