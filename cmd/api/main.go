package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"blood-donation/internal/config"
	"blood-donation/internal/domain"
	"blood-donation/internal/handler"
	"blood-donation/internal/metrics"
	"blood-donation/internal/middleware"
	"blood-donation/internal/pkg/i18n"
	"blood-donation/internal/repository"
	"blood-donation/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	zlog, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat, "blood-donation")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	db, err := config.NewPostgresDB(cfg)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redis, err := config.NewRedisClient(cfg)
	if err != nil {
		zlog.Warn("redis unavailable, report cache disabled", zap.Error(err))
	} else {
		defer redis.Close()
	}

	minioClient, err := config.NewMinIOClient(cfg, zlog)
	if err != nil {
		zlog.Warn("minio unavailable, report export disabled", zap.Error(err))
		minioClient = nil
	}

	if err := i18n.LoadTranslations(cfg.LocalesPath); err != nil {
		zlog.Warn("failed to load translations, using built-in messages", zap.Error(err))
	}

	m := metrics.New()
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, redis, minioClient, cfg, zlog, m)
	handlers := handler.NewHandlers(services)

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(zlog),
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	setupRoutes(app, handlers, services.Auth)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go services.Sweeper.Run(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			zlog.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
	zlog.Info("server stopped")
}

func setupRoutes(app *fiber.App, h *handler.Handlers, validator middleware.TokenValidator) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.RefreshToken)
	auth.Post("/logout", h.Auth.Logout)

	compat := v1.Group("/compatibility")
	compat.Get("/", h.Donor.CompatibleTypes)

	v1.Post("/blood-requests", middleware.OptionalAuth(validator), h.BloodRequest.Create)

	protected := v1.Group("", middleware.AuthRequired(validator))

	users := protected.Group("/users")
	users.Get("/me", h.User.GetProfile)
	users.Put("/me", middleware.RequireActor(domain.ActorUser), h.User.UpdateProfile)

	admin := protected.Group("/admin", middleware.RequireAdmin())
	admin.Post("/hospitals", h.User.CreateHospital)
	admin.Get("/audit/recent", h.Audit.GetRecentActivities)

	donors := protected.Group("/donors", middleware.RequireStaff())
	donors.Get("/compatible", h.Donor.FindCompatible)

	inventory := protected.Group("/inventory", middleware.RequireStaff())
	inventory.Post("/units", middleware.RequireHospital(), h.Inventory.CreateUnit)
	inventory.Get("/units", h.Inventory.List)
	inventory.Get("/units/:id", h.Inventory.GetUnit)
	inventory.Post("/units/:id/use", h.Inventory.MarkUsed)
	inventory.Post("/units/:id/release", h.Inventory.Release)
	inventory.Delete("/units/:id", middleware.RequireAdmin(), h.Inventory.DeleteUnit)
	inventory.Get("/alerts/low-stock", h.Inventory.LowStockAlerts)
	inventory.Get("/alerts/expiring", h.Inventory.ExpiringAlerts)
	inventory.Post("/sweep", h.Inventory.Sweep)
	inventory.Get("/export", h.Export.DownloadInventory)
	inventory.Post("/export", h.Export.ExportInventory)

	requests := protected.Group("/blood-requests")
	requests.Get("/", h.BloodRequest.List)
	requests.Get("/:id", h.BloodRequest.Get)
	requests.Patch("/:id/status", h.BloodRequest.UpdateStatus)
	requests.Post("/:id/fulfill", middleware.RequireHospital(), h.BloodRequest.Fulfill)

	hospitalRequests := protected.Group("/hospital-requests", middleware.RequireHospital())
	hospitalRequests.Post("/", h.HospitalRequest.Create)
	hospitalRequests.Get("/", h.HospitalRequest.ListOwn)
	hospitalRequests.Get("/open", h.HospitalRequest.ListOpen)
	hospitalRequests.Get("/:id", h.HospitalRequest.Get)
	hospitalRequests.Post("/:id/respond", h.HospitalRequest.Respond)
	hospitalRequests.Post("/:id/fulfill", h.HospitalRequest.Fulfill)
	hospitalRequests.Post("/:id/cancel", h.HospitalRequest.Cancel)

	donations := protected.Group("/donations")
	donations.Post("/", middleware.RequireActor(domain.ActorUser), h.Donation.Create)
	donations.Get("/mine", middleware.RequireActor(domain.ActorUser), h.Donation.ListMine)
	donations.Get("/", middleware.RequireHospital(), h.Donation.ListForHospital)
	donations.Post("/:id/approve", middleware.RequireHospital(), h.Donation.Approve)
	donations.Post("/:id/reject", middleware.RequireHospital(), h.Donation.Reject)

	reports := protected.Group("/reports")
	reports.Get("/stock", middleware.RequireStaff(), h.Report.StockSummary)
	reports.Get("/matching", middleware.RequireStaff(), h.Report.MatchingSummary)
	reports.Get("/blood-types", h.Report.BloodTypeOverview)
	reports.Get("/locations", h.Report.LocationStats)

	notifications := protected.Group("/notifications")
	notifications.Get("/", h.Notification.List)
	notifications.Get("/unread-count", h.Notification.GetUnreadCount)
	notifications.Patch("/:id/read", h.Notification.MarkAsRead)
	notifications.Post("/mark-all-read", h.Notification.MarkAllAsRead)

	audit := protected.Group("/audit", middleware.RequireStaff())
	audit.Get("/:type/:id", h.Audit.GetEntityHistory)
}
