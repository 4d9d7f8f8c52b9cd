package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messenger-service/internal/auth"
	"messenger-service/internal/db"
	"messenger-service/internal/handlers"
	"messenger-service/internal/media"
	"messenger-service/internal/middleware"
	"messenger-service/internal/observability"
	"messenger-service/internal/rabbitmq"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/views"
	"messenger-service/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	ctx := context.Background()

	shutdownTracing, err := observability.SetupTracing(ctx, os.Getenv("OTLP_ENDPOINT"))
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	amqpURL := os.Getenv("AMQP_URL")
	eventsExchange := getEnv("EVENTS_EXCHANGE", "app.events")
	if publisher, err := observability.NewAMQPPublisher(amqpURL, eventsExchange); err != nil {
		log.Printf("ws events publisher disabled: %v", err)
	} else {
		observability.SetPublisher(publisher)
		defer publisher.Close()
	}

	auditPublisher := rabbitmq.NewPublisher(amqpURL, getEnv("AUDIT_EXCHANGE", "audit.events"))
	defer auditPublisher.Close()
	log.Printf("audit publisher mode=%s reason=%q", rabbitmq.PublisherMode(auditPublisher), rabbitmq.PublisherNoopReason(auditPublisher))

	auditEmitter := telemetry.NewAuditEmitter(
		auditPublisher,
		getEnv("AUDIT_ROUTING_KEY", "audit.messenger"),
		"messenger-service",
		getEnv("ENVIRONMENT", "development"),
	)

	uploader, err := media.NewS3Uploader(ctx, getEnv("AWS_REGION", "us-east-1"), getEnv("S3_BUCKET", "messenger-media"))
	if err != nil {
		log.Fatalf("failed to init s3 uploader: %v", err)
	}

	verifier := auth.NewVerifier(os.Getenv("JWT_SECRET"))

	convRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	userRepo := repositories.NewUserRepo(database)

	builder := views.NewBuilder(convRepo)
	hub := ws.NewHub()

	conversationHandler := handlers.NewConversationHandler(convRepo, messageRepo, userRepo, builder, hub, auditEmitter)
	groupHandler := handlers.NewGroupHandler(convRepo, messageRepo, userRepo, uploader, builder, hub, auditEmitter)
	messageHandler := handlers.NewMessageHandler(convRepo, messageRepo, uploader, hub, auditEmitter)
	presenceWS := ws.NewPresenceHandler(hub, verifier)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("messenger-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.POST("/conversations", authMiddleware, conversationHandler.FindOrCreate)
	router.GET("/conversations", authMiddleware, conversationHandler.Sidebar)
	router.GET("/conversations/:conversation_id", authMiddleware, conversationHandler.Detail)
	router.DELETE("/conversations/:conversation_id", authMiddleware, conversationHandler.HideOrLeave)

	router.POST("/groups", authMiddleware, groupHandler.Create)
	router.PUT("/groups/:conversation_id/update", authMiddleware, groupHandler.UpdateDetails)
	router.POST("/groups/:conversation_id/add-members", authMiddleware, groupHandler.AddMembers)
	router.POST("/groups/:conversation_id/remove-member", authMiddleware, groupHandler.RemoveMember)

	router.GET("/messages/:conversation_id", authMiddleware, messageHandler.List)
	router.POST("/messages/send/:conversation_id", authMiddleware, messageHandler.Send)

	router.GET("/ws", presenceWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, auditEmitter, getEnv("DEBUG_ROUTES", "") == "true")

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
