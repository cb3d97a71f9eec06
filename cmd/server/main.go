package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventia/ticketing-backend/config"
	"github.com/eventia/ticketing-backend/internal/assignments"
	"github.com/eventia/ticketing-backend/internal/auth"
	"github.com/eventia/ticketing-backend/internal/events"
	"github.com/eventia/ticketing-backend/internal/invitations"
	"github.com/eventia/ticketing-backend/internal/middleware"
	"github.com/eventia/ticketing-backend/internal/payments"
	"github.com/eventia/ticketing-backend/internal/tickets"
	"github.com/eventia/ticketing-backend/internal/users"
	"github.com/eventia/ticketing-backend/pkg/database"
	redisclient "github.com/eventia/ticketing-backend/pkg/redis"
	"github.com/eventia/ticketing-backend/pkg/storage"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	rdb, err := redisclient.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("connect redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3 *storage.S3
	if cfg.AWS.Region != "" {
		s3, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ImagesBucket:         cfg.AWS.ImagesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Fatal("init s3", zap.Error(err))
		}
	} else {
		logger.Warn("S3 not configured, image uploads disabled")
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	revoker := auth.NewRedisRevoker(rdb.Client)

	userRepo := users.NewRepository(pool)
	eventRepo := events.NewRepository(pool)
	invitationRepo := invitations.NewRepository(pool)
	ticketRepo := tickets.NewRepository(pool)
	paymentRepo := payments.NewRepository(pool)
	assignmentRepo := assignments.NewRepository(pool)

	authHandler := auth.NewHandler(userRepo, jwtService, revoker, logger)
	userHandler := users.NewHandler(userRepo, logger)
	eventHandler := events.NewHandler(eventRepo, assignmentRepo, userRepo, imageUploader(s3), logger)
	invitationHandler := invitations.NewHandler(invitationRepo, eventRepo, userRepo, assignmentRepo, logger)
	ticketHandler := tickets.NewHandler(ticketRepo, eventRepo, userRepo, assignmentRepo, logger)
	paymentHandler := payments.NewHandler(paymentRepo, ticketRepo, logger)
	assignmentHandler := assignments.NewHandler(assignmentRepo, userRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)

	authed := router.Group("/")
	authed.Use(middleware.Auth(jwtService, revoker, userRepo))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/users", userHandler.List)
		authed.POST("/users", userHandler.Create)
		authed.GET("/users/:id", userHandler.Get)
		authed.PUT("/users/:id", userHandler.Update)
		authed.DELETE("/users/:id", userHandler.Delete)

		authed.GET("/events", eventHandler.List)
		authed.POST("/events", eventHandler.Create)
		authed.GET("/events/:id", eventHandler.Get)
		authed.PUT("/events/:id", eventHandler.Update)
		authed.DELETE("/events/:id", eventHandler.Delete)
		authed.POST("/events/:id/publish", eventHandler.Publish)
		authed.POST("/events/:id/hide", eventHandler.Hide)
		authed.POST("/events/:id/cancel", eventHandler.Cancel)
		authed.GET("/events/:id/attendees", eventHandler.ListAttendees)
		authed.POST("/events/:id/attendees", eventHandler.AddAttendee)
		authed.POST("/events/:id/attendees/:attendeeId/confirm", eventHandler.ConfirmAttendance)
		authed.POST("/events/:id/images", eventHandler.UploadImage)

		authed.GET("/invitations", invitationHandler.List)
		authed.POST("/invitations", invitationHandler.Create)
		authed.POST("/invitations/send", invitationHandler.Send)
		authed.GET("/invitations/me", invitationHandler.Mine)
		authed.GET("/invitations/:id", invitationHandler.Get)
		authed.PUT("/invitations/:id", invitationHandler.Update)
		authed.PUT("/invitations/:id/rsvp", invitationHandler.UpdateRSVP)
		authed.DELETE("/invitations/:id", invitationHandler.Delete)

		authed.GET("/tickets", ticketHandler.List)
		authed.POST("/tickets", ticketHandler.Create)
		authed.GET("/tickets/me", ticketHandler.Mine)
		authed.POST("/tickets/validate-qr", ticketHandler.ValidateQR)
		authed.GET("/tickets/pdf/:qr", ticketHandler.PDF)
		authed.GET("/tickets/:id", ticketHandler.Get)
		authed.PUT("/tickets/:id", ticketHandler.Update)
		authed.DELETE("/tickets/:id", ticketHandler.Delete)

		authed.GET("/payments", paymentHandler.List)
		authed.POST("/payments", paymentHandler.Create)
		authed.GET("/payments/:id", paymentHandler.Get)
		authed.PUT("/payments/:id", paymentHandler.Update)
		authed.DELETE("/payments/:id", paymentHandler.Delete)
		authed.POST("/payments/:id/process", paymentHandler.Process)
		authed.GET("/payments/:id/verify", paymentHandler.Verify)

		authed.GET("/organizers/:id/secretaries", assignmentHandler.List)
		authed.POST("/organizers/:id/secretaries/assign", assignmentHandler.Assign)
		authed.POST("/organizers/:id/secretaries/unassign", assignmentHandler.Unassign)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// imageUploader keeps the handler's uploader nil when S3 is unconfigured. A
// plain nil *storage.S3 passed as an interface would be non-nil.
func imageUploader(s3 *storage.S3) events.ImageUploader {
	if s3 == nil {
		return nil
	}
	return s3
}
