package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"learning-progress-system/handlers"
	"learning-progress-system/middleware"
	"learning-progress-system/models"
	"learning-progress-system/services"
	"learning-progress-system/utils"
	"learning-progress-system/workers"

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

	app := fiber.New()

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

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

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	// TranslateError so unique-constraint races surface as gorm.ErrDuplicatedKey
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Learner{},
		&models.Course{},
		&models.Lesson{},
		&models.LessonProgress{},
		&models.CourseProgress{},
		&models.ActivityEntry{},
		&models.Badge{},
		&models.BadgeGrant{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	defaultLessonXP := envInt64("DEFAULT_LESSON_XP", 20)
	dailyTermXP := envInt64("DAILY_TERM_XP", 5)
	streakBonus := strings.EqualFold(os.Getenv("STREAK_BONUS"), "true")

	gamificationService := services.NewGamificationService(db, defaultLessonXP, dailyTermXP, streakBonus)
	badgeService := services.NewBadgeService(db)
	ledger := services.NewActivityLedger(db)

	if err := badgeService.SeedDefaultBadges(); err != nil {
		log.Fatal("failed to seed badge definitions:", err)
	}

	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("LEARNING_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("LEARNING_SERVICE_TOKEN environment variable not set")
	}

	syncWorker := workers.NewLearnerSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", serviceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Println("Starting Learner Sync Worker...")
		syncWorker.Start(ctx)
	}()

	ledger.StartReconciliationScheduler(1 * time.Hour)

	// ✅ Setup routes — enforced Gateway auth + user context under /s/
	handlers.SetupGamificationRoutes(app, gamificationService)
	handlers.SetupAdminRoutes(app, badgeService, ledger)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Learner Sync Worker running")
	log.Println("✅ Ledger reconciliation running (hourly)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, raw, fallback)
		return fallback
	}
	return v
}
