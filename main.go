package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"presence-gateway/internal/config"
	"presence-gateway/internal/db"
	"presence-gateway/internal/handlers"
	"presence-gateway/internal/metrics"
	"presence-gateway/internal/middleware"
	"presence-gateway/internal/observability"
	"presence-gateway/internal/rabbitmq"
	"presence-gateway/internal/repositories"
	"presence-gateway/internal/services"
	"presence-gateway/internal/telemetry"
	"presence-gateway/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.TokenSecret == "" || cfg.DBDSN == "" {
		log.Fatal("TOKEN_SECRET and DB_DSN environment variables must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	presenceClient, err := services.NewPresenceClient(cfg.PresenceBaseURL, cfg.PresenceSecret)
	if err != nil {
		log.Fatalf("failed to create presence client: %v", err)
	}

	publisher := rabbitmq.NewNoopPublisher()
	if cfg.AMQPURL == "" {
		log.Printf("warning: AMQP_URL not set; event publishing disabled")
	} else {
		pub, err := rabbitmq.NewPublisher(cfg.AMQPURL, "app.events")
		if err != nil {
			log.Printf("warning: failed to initialize RabbitMQ publisher: %v", err)
		} else {
			publisher = pub
		}
	}
	defer publisher.Close()

	auditPublisher := rabbitmq.NewNoopPublisher()
	if cfg.AMQPURL == "" {
		log.Printf("warning: AMQP_URL not set; audit publishing disabled")
	} else {
		pub, err := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.LogsExchange)
		if err != nil {
			log.Printf("warning: failed to initialize RabbitMQ audit publisher: %v", err)
		} else {
			auditPublisher = pub
		}
	}
	defer auditPublisher.Close()

	friendRepo := repositories.NewFriendRepository(database, publisher)
	userRepo := repositories.NewUserRepository(database)

	// Presence is resolved client-side against /api/presence/status so
	// the friend list response never blocks on the presence service.
	friendList := services.NewFriendListService(friendRepo, userRepo, nil)

	var transport *ws.Client
	if cfg.PresenceWSURL == "" {
		log.Printf("warning: PRESENCE_WS_URL not set; live presence bridge disabled")
	} else {
		transport = ws.NewClient(cfg.PresenceWSURL, ws.Options{
			OfflineFallback: func(userID string) {
				fallbackCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := presenceClient.MarkOffline(fallbackCtx, userID); err != nil {
					log.Printf("warning: offline fallback failed for %s: %v", userID, err)
				}
			},
		})
		transport.Connect()
		defer transport.Close()

		msgs, unsubscribe := transport.Bus().Subscribe()
		defer unsubscribe()
		go func() {
			for msg := range msgs {
				if err := publisher.Publish(ctx, "presence.message", json.RawMessage(msg)); err != nil {
					log.Printf("warning: failed to republish presence message: %v", err)
				}
			}
		}()
	}

	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, cfg.ServiceName, cfg.Environment)

	observability.InitMetrics(prometheus.DefaultRegisterer)
	metrics.RegisterGatewayMetrics()

	presenceHandler := handlers.NewPresenceHandler(presenceClient, transport)
	inviteHandler := handlers.NewInviteHandler(presenceClient, publisher, auditEmitter)
	friendHandler := handlers.NewFriendHandler(friendList, friendRepo, auditEmitter, cfg.PresenceSecret)

	r := gin.Default()
	r.Use(middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/api/presence/heartbeat", presenceHandler.Heartbeat)
	r.POST("/api/presence/offline", presenceHandler.Offline)
	r.GET("/api/presence/status", presenceHandler.Status)
	r.POST("/api/friends/sync", friendHandler.Sync)

	auth := r.Group("", middleware.TokenAuth(cfg.TokenSecret))
	auth.GET("/api/friends/invites", inviteHandler.List)
	auth.POST("/api/friends/invites", inviteHandler.Send)
	auth.PATCH("/api/friends/invites/:inviteId", inviteHandler.Respond)
	auth.GET("/api/friends", friendHandler.ListFriends)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}
