package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bounty-market-system/handlers"
	"bounty-market-system/middleware"
	"bounty-market-system/models"
	"bounty-market-system/services"
	"bounty-market-system/utils"
	"bounty-market-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 100 * 1024 * 1024, // 100MB — submission attachments
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	// TranslateError surfaces unique-index violations as gorm.ErrDuplicatedKey,
	// which the ledger's idempotency backstop depends on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.MarketUser{},
		&models.Bounty{},
		&models.Application{},
		&models.PointEvent{},
		&models.LeaderboardEntry{},
		&models.BadgeType{},
		&models.UserBadge{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// Object storage is optional — attachments land on local disk without it
	if os.Getenv("CLOUDFLARE_ACCOUNT_ID") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
	} else {
		log.Println("⚠️  R2 not configured, storing submission attachments on local disk")
	}
	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	bus := services.NewEventBus()

	userService := services.NewUserService(db)
	guardService := services.NewBountyGuardService(db, bus)
	ledgerService := services.NewLedgerService(db, bus)
	bountyService := services.NewBountyService(db, userService)
	badgeService := services.NewBadgeService(db)
	leaderboardService := services.NewLeaderboardService(db)
	applicationService := services.NewApplicationService(db, guardService, ledgerService, userService, bus)

	// Best-effort domain event log — the notification service subscribes the
	// same way over an internal endpoint later
	events, _ := bus.Subscribe(64)
	go func() {
		for ev := range events {
			log.Printf("📣 [EVENT] %s %v", ev.Name, ev.Payload)
		}
	}()

	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}
	marketServiceToken := os.Getenv("MARKET_SERVICE_TOKEN")
	if marketServiceToken == "" {
		log.Fatal("MARKET_SERVICE_TOKEN environment variable not set")
	}

	syncWorker := workers.NewProfileSyncWorker(db, ledgerService, syncServiceURL, "/api/v1/public/profiles", marketServiceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Println("Starting Profile Sync Worker...")
		syncWorker.Start(ctx)
	}()

	services.StartMaintenanceScheduler(guardService, leaderboardService)

	handlers.SetupBountyRoutes(app, bountyService, applicationService, guardService)
	handlers.SetupLeaderboardRoutes(app, leaderboardService, ledgerService, badgeService, userService)

	app.Static("/uploads", "./uploads")

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Profile Sync Worker running")
	log.Println("✅ Bounty sweep + leaderboard refresh scheduled")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
