package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"circle-service/internal/auth"
	"circle-service/internal/config"
	"circle-service/internal/db"
	"circle-service/internal/handlers"
	"circle-service/internal/middleware"
	"circle-service/internal/observability"
	"circle-service/internal/rabbitmq"
	"circle-service/internal/reconcile"
	"circle-service/internal/repositories"
	"circle-service/internal/telemetry"
	"circle-service/internal/ws"
)

const serviceName = "circle-service"

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := telemetry.SetupTracing(ctx, serviceName, cfg.OTLPEndpoint)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	if cfg.AMQPURL != "" {
		obsPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("amqp publisher unavailable, ws events disabled: %v", err)
		} else {
			observability.SetPublisher(obsPublisher)
			defer obsPublisher.Close()
		}
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	audit := telemetry.NewAuditEmitter(auditPublisher, cfg.AuditRoutingKey, serviceName, cfg.Environment)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTTL)

	userRepo := repositories.NewUserRepo(database)
	friendRepo := repositories.NewFriendRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	unreadRepo := repositories.NewUnreadRepo(database)

	hub := ws.NewHub()

	authHandler := handlers.NewAuthHandler(userRepo, tokens, audit)
	userHandler := handlers.NewUserHandler(userRepo)
	friendHandler := handlers.NewFriendHandler(friendRepo, userRepo, audit)
	groupHandler := handlers.NewGroupHandler(groupRepo, userRepo, audit)
	messageHandler := handlers.NewMessageHandler(messageRepo, unreadRepo, friendRepo, groupRepo, userRepo, hub, audit)
	conversationHandler := handlers.NewConversationHandler(friendRepo, groupRepo, messageRepo, unreadRepo)
	presenceHandler := handlers.NewPresenceHandler(userRepo)

	channelWS := ws.NewChannelWebSocketHandler(hub, tokens, groupRepo, messageRepo, userRepo)

	reconciler := reconcile.New(friendRepo, cfg.ReconcileInterval, cfg.ReconcileGrace)
	go reconciler.Run(ctx)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(tokens)

	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)
	router.POST("/auth/logout", authMiddleware, authHandler.Logout)

	router.GET("/users/me", authMiddleware, userHandler.Me)
	router.PATCH("/users/me", authMiddleware, userHandler.UpdateMe)
	router.GET("/users/search", authMiddleware, userHandler.Search)

	router.GET("/friends", authMiddleware, friendHandler.ListFriends)
	router.POST("/friends", authMiddleware, friendHandler.AddFriend)
	router.DELETE("/friends/:friend_id", authMiddleware, friendHandler.RemoveFriend)
	router.PUT("/friends/:friend_id/nickname", authMiddleware, friendHandler.SetNickname)

	router.POST("/groups", authMiddleware, groupHandler.CreateGroup)
	router.GET("/groups", authMiddleware, groupHandler.ListGroups)
	router.GET("/groups/:group_id/members", authMiddleware, groupHandler.ListMembers)
	router.POST("/groups/:group_id/members", authMiddleware, groupHandler.AddMembers)
	router.DELETE("/groups/:group_id/members/me", authMiddleware, groupHandler.LeaveGroup)
	router.DELETE("/groups/:group_id", authMiddleware, groupHandler.DeleteGroup)

	router.GET("/conversations", authMiddleware, conversationHandler.ListConversations)

	router.GET("/channels/:channel_key/messages", authMiddleware, messageHandler.GetChannelMessages)
	router.POST("/channels/:channel_key/messages", authMiddleware, messageHandler.PostChannelMessage)
	router.POST("/channels/:channel_key/view", authMiddleware, messageHandler.ViewChannel)
	router.POST("/channels/:channel_key/messages/:message_id/reactions", authMiddleware, messageHandler.ToggleReaction)

	router.POST("/presence", authMiddleware, presenceHandler.Update)

	router.GET("/ws/channels/:channel_key", channelWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
