package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"realtime_chat_service/internal/chat/app"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/internal/chat/router"
	"realtime_chat_service/pkg/config"
	"realtime_chat_service/pkg/database"
	"realtime_chat_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatGateway, config.EnvConfig.ChatGatewayLogPath)
	cfg := config.LoadConfig[config.ChatGateway](config.EnvConfig.ChatGateway, config.EnvConfig.ChatGatewayYAMLPath)

	// 1. 建立 PostgreSQL 連線 (訊息、會話、成員、狀態)
	uri := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
	pool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    uri,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer pool.Close()

	// 2. 建立 Redis 連線 (Pub/Sub backplane + presence 計數)
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// 3. 建立 Kafka Writer (訊息事件 journal,可選)
	var journal repository.EventJournal
	if len(cfg.Kafka.Brokers) > 0 {
		writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    3,
			RetryInterval: 2,
		})
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("connect kafka err : %v", err))
		}
		defer writer.Close()
		journal = repository.NewKafkaEventJournal(writer)
	}

	// 4. 初始化 Repository
	membershipRepo := repository.NewMembershipRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	msgRepo := repository.NewMessageRepository(pool)
	statusRepo := repository.NewStatusRepository(pool)
	presenceRepo := repository.NewRedisPresenceRepository(redisClient)
	pubSub := repository.NewRedisPubSub(redisClient)

	// 5. 初始化 UseCases
	presenceUC := app.NewPresenceUseCase(presenceRepo, userRepo, pubSub)
	sendMessageUC := app.NewSendMessageUseCase(membershipRepo, msgRepo, statusRepo, pubSub, journal)
	convUC := app.NewConversationUseCase(membershipRepo, msgRepo)

	// 6. 啟動 Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatGatewayLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	// 注册路由
	gateway := app.NewChatGatewayHandler(presenceUC, sendMessageUC, membershipRepo, pubSub)
	api := app.NewChatHTTPHandler(convUC, sendMessageUC, presenceUC)
	router.RegisterRoutes(r, gateway, api)

	// Listen
	port := ":" + cfg.Port
	log.Printf("Chat Gateway listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
