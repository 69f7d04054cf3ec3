package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aiimpactmedia/casting/internal/client"
	"github.com/aiimpactmedia/casting/internal/config"
	"github.com/aiimpactmedia/casting/internal/handler"
	"github.com/aiimpactmedia/casting/internal/logger"
	"github.com/aiimpactmedia/casting/internal/media"
	"github.com/aiimpactmedia/casting/internal/middleware"
	"github.com/aiimpactmedia/casting/internal/service"
	"github.com/aiimpactmedia/casting/internal/store"
	ws "github.com/aiimpactmedia/casting/internal/websocket"
	"github.com/aiimpactmedia/casting/internal/wizard"
	"github.com/aiimpactmedia/casting/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)
	defer log.Sync()

	if cfg.InsecureJWTSecret() {
		log.Fatal("JWT_SECRET must be set outside development", zap.String("env", cfg.Server.Env))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Without redis: in-memory records, no rate limiting, logged notifications
	var (
		submissionStore service.ReviewStore
		limiterClient   redis.UniversalClient
		enqueuer        service.Enqueuer
		workerServer    *asynq.Server
	)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis not available, using in-memory store", zap.Error(err))
		submissionStore = store.NewMemoryStore()
	} else {
		submissionStore = store.NewRedisStore(redisClient)
		limiterClient = redisClient

		asynqClient := asynq.NewClient(redisOpt)
		defer asynqClient.Close()
		enqueuer = asynqClient
	}

	validate := validator.New()

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	groqClient := client.NewGroqClient(&cfg.Groq)

	var storageClient client.StorageClient
	if cfg.R2Configured() {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Warn("R2 client not initialized", zap.Error(err))
		} else {
			storageClient = r2Client
		}
	} else {
		log.Info("R2 storage not configured, using mock staging")
	}

	var emailSender worker.EmailSender
	if cfg.SES.Enabled {
		sesClient, err := client.NewSESClient(ctx, &cfg.SES)
		if err != nil {
			log.Warn("SES client not initialized", zap.Error(err))
		} else {
			emailSender = sesClient
		}
	}

	stagingService := service.NewStagingService(storageClient, cfg.Casting.StagingBaseURL, log)
	notificationService := service.NewNotificationService(enqueuer, log)
	feedbackService := service.NewFeedbackService(groqClient, log)
	submissionService := service.NewSubmissionService(stagingService, submissionStore, notificationService, log)
	sponsorService := service.NewSponsorService(feedbackService, notificationService, log)
	adminService := service.NewAdminService(submissionStore)

	sessions := wizard.NewRegistry(func(id string) wizard.Options {
		return wizard.Options{
			SessionID: id,
			Device:    media.NewPushDevice(cfg.Casting.MicrophoneEnabled),
			Submitter: submissionService,
			Feedback:  feedbackService,
			Observer:  hub.Observer(id),
			Validate:  validate,
			Logger:    log,
		}
	}, time.Duration(cfg.Casting.SessionTTLMinutes)*time.Minute, log)
	go sessions.Run(ctx)

	castingHandler := handler.NewCastingHandler(sessions, validate, log)
	adminHandler := handler.NewAdminHandler(adminService, validate)
	sponsorHandler := handler.NewSponsorHandler(sponsorService, validate)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(limiterClient, log)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    200 * 1024 * 1024, // ten photos plus audio
	})

	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${reqHeaders}\n"
	}
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"groq":     groqClient.IsConfigured(),
				"r2":       storageClient != nil,
				"ses":      emailSender != nil,
				"redis":    limiterClient != nil,
				"sessions": sessions.Len(),
			},
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	castingHandler.Register(api.Group("/casting"),
		rateLimiter.SubmitLimit(cfg.RateLimit.SubmitPerHour),
		rateLimiter.FeedbackLimit(cfg.RateLimit.FeedbackPerMin),
	)

	api.Post("/sponsors", rateLimiter.SponsorLimit(cfg.RateLimit.SponsorPerHour), sponsorHandler.Submit)

	admin := api.Group("/admin", authMiddleware.RequireAdmin())
	admin.Get("/submissions", adminHandler.List)
	admin.Patch("/submissions/:id/status", adminHandler.UpdateStatus)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/casting/:id", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("id"))
	}))

	if enqueuer != nil {
		workerServer = startWorkerServer(cfg, redisOpt, emailSender, log)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		cancel()
		if workerServer != nil {
			workerServer.Shutdown()
		}
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Server.Env))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func startWorkerServer(cfg *config.Config, redisOpt asynq.RedisClientOpt, sender worker.EmailSender, log *zap.Logger) *asynq.Server {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			service.QueueNotifications: 1,
		},
		Logger:   log.Named("asynq").Sugar(),
		LogLevel: asynqLogLevel,
	})

	notificationWorker := worker.NewNotificationWorker(sender, log)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TypeNotificationSend, notificationWorker.ProcessTask)

	if err := srv.Start(mux); err != nil {
		log.Error("asynq worker error", zap.Error(err))
		return nil
	}
	return srv
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
