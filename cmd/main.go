package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/yourorg/social-app/services/dm-service/internal/auth"
	cfgpkg "github.com/yourorg/social-app/services/dm-service/internal/config"
	"github.com/yourorg/social-app/services/dm-service/internal/events"
	"github.com/yourorg/social-app/services/dm-service/internal/graph"
	"github.com/yourorg/social-app/services/dm-service/internal/handlers"
	"github.com/yourorg/social-app/services/dm-service/internal/logger"
	"github.com/yourorg/social-app/services/dm-service/internal/media"
	"github.com/yourorg/social-app/services/dm-service/internal/profile"
	"github.com/yourorg/social-app/services/dm-service/internal/repository"
	"github.com/yourorg/social-app/services/dm-service/internal/routes"
	"github.com/yourorg/social-app/services/dm-service/internal/service"
	"github.com/yourorg/social-app/services/dm-service/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := cfgpkg.Load("config.yaml")
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(logger.Config{Development: cfg.Server.Development})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	mc, err := repository.NewMongoClient(cfg.Mongo.URI)
	if err != nil {
		zlog.Fatalw("mongo init", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()
	db := mc.Database(cfg.Mongo.Database)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	verifier, err := auth.NewVerifier(cfg.JWT.PublicKeyPath)
	if err != nil {
		zlog.Fatalw("jwt verifier", "err", err)
	}

	convRepo := repository.NewConversationRepo(db.Collection("conversations"))
	msgRepo := repository.NewMessageRepo(db.Collection("messages"))
	notifRepo := repository.NewNotificationRepo(db)

	graphClient := graph.NewClient(cfg.Collaborators.GraphBaseURL, graph.NewRedisCounts(rdb), zlog)
	profileClient := profile.NewClient(cfg.Collaborators.ProfileBaseURL)

	var resolver media.Resolver = media.Noop{}
	if cfg.Media.Bucket != "" {
		r, err := media.NewS3Resolver(context.Background(), cfg.Media.Region, cfg.Media.Bucket, cfg.MediaURLTTL)
		if err != nil {
			zlog.Fatalw("media resolver", "err", err)
		}
		resolver = r
	}

	producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	messaging := service.NewMessaging(convRepo, msgRepo, notifRepo, graphClient, producer, zlog)
	threads := service.NewThreads(convRepo, graphClient, profileClient, resolver, zlog)

	hub := ws.NewHub(zlog)
	wsrv := ws.NewServer(hub, verifier, ws.NewRedisPresence(rdb))

	// each instance uses its own group id so all of them see every
	// event and can serve their locally attached connections
	groupID := fmt.Sprintf("%s-%s", cfg.Kafka.GroupID, uuid.NewString())
	consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, groupID, zlog)
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	go consumer.Run(consumerCtx, hub)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	h := handlers.NewDMHandler(messaging, threads, zlog)
	routes.Register(app, h, wsrv, verifier)

	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			zlog.Fatalw("server listen", "err", err)
		}
	}()
	zlog.Infow("dm-service started", "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)
	stopConsumer()
	_ = consumer.Close()
	zlog.Infow("dm-service stopped")
}
