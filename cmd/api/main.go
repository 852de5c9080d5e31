package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	config "github.com/retrieveapp/retrieve-api/configs"
	"github.com/retrieveapp/retrieve-api/cache"
	"github.com/retrieveapp/retrieve-api/database"
	"github.com/retrieveapp/retrieve-api/handlers"
	"github.com/retrieveapp/retrieve-api/jobs"
	"github.com/retrieveapp/retrieve-api/logger"
	"github.com/retrieveapp/retrieve-api/middleware"
	"github.com/retrieveapp/retrieve-api/notifications"
	"github.com/retrieveapp/retrieve-api/routes"
	"github.com/retrieveapp/retrieve-api/services"
	"github.com/retrieveapp/retrieve-api/websocket"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}
	if err := database.SeedCategories(db, log); err != nil {
		log.Warn("failed to seed categories", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheSvc, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn("redis unavailable, caching disabled", zap.Error(err))
		cacheSvc = cache.NewService(nil)
	}

	var mailer services.Mailer
	if m := notifications.NewBrevoMailer(cfg.BrevoAPIKey, cfg.EmailSender, cfg.EmailSenderName, log); m != nil {
		mailer = m
	}

	var images services.ImageStore
	if cfg.CloudinaryURL != "" {
		store, err := services.NewCloudinaryStore(cfg.CloudinaryURL)
		if err != nil {
			log.Warn("cloudinary unavailable, uploads disabled", zap.Error(err))
		} else {
			images = store
		}
	}

	hub := websocket.NewHub(log.Named("ws"))
	go hub.Run(ctx)

	geocoder := services.NewZippopotamGeocoder(cfg.GeocoderBaseURL)
	guard := services.NewThreadGuard(db)
	items := services.NewItemService(db, services.ItemDeps{Geocoder: geocoder, Images: images, Cache: cacheSvc, Log: log})
	threads := services.NewThreadService(db, services.ThreadDeps{
		Guard:  guard,
		Items:  items,
		Cache:  cacheSvc,
		Events: hub,
		Mailer: mailer,
		Log:    log,
	})
	messages := services.NewMessageService(db, guard, cacheSvc, hub, log)
	unread := services.NewCachedUnreadCounter(threads, cacheSvc, log)
	auth := services.NewAuthService(db, services.AuthConfig{
		JWTSecret:     cfg.JWTSecret,
		TokenLifetime: cfg.JWTLifetime,
		BcryptCost:    cfg.BcryptCost,
		ResetTokenTTL: cfg.ResetTokenTTL,
		FrontendURL:   cfg.FrontendURL,
	}, mailer, log)
	posters := services.NewPosterService(items, images, cfg.ChromePosters, cfg.FrontendURL, log)

	scheduler := cron.New()
	if err := jobs.Schedule(scheduler, auth, log); err != nil {
		log.Fatal("failed to schedule jobs", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	app := fiber.New(fiber.Config{
		AppName:      "Retrieve API",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    20 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(log))
	app.Use(middleware.Metrics())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  corsOrigins(cfg.CORSOrigins),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, X-Request-ID",
		MaxAge:        86400,
	}))

	routes.Setup(app, routes.Handlers{
		Auth:       handlers.NewAuthHandler(auth),
		Profile:    handlers.NewProfileHandler(services.NewUserService(db, images, log), items),
		Categories: handlers.NewCategoryHandler(services.NewCategoryService(db, cacheSvc, log)),
		Items:      handlers.NewItemHandler(items, posters),
		Comments:   handlers.NewCommentHandler(services.NewCommentService(db, items, log)),
		Seen:       handlers.NewSeenHandler(services.NewSeenService(db, items)),
		Threads:    handlers.NewThreadHandler(threads, unread),
		Messages:   handlers.NewMessageHandler(messages),
		Uploads:    handlers.NewUploadHandler(images),
		Health:     handlers.NewHealthHandler(db, cacheSvc),
		Socket:     websocket.Handler(hub, auth, messages, log.Named("ws")),
	}, middleware.Protected(cfg.JWTSecret))

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	log.Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("server failed to start", zap.Error(err))
	}
}

func corsOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ",")
}
