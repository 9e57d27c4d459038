package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rvashist/interview-tree-backend/internal/db"
	"github.com/rvashist/interview-tree-backend/internal/handlers"
	"github.com/rvashist/interview-tree-backend/internal/logger"
	"github.com/rvashist/interview-tree-backend/internal/middleware"
	"github.com/rvashist/interview-tree-backend/internal/repos"
	"github.com/rvashist/interview-tree-backend/internal/server"
	"github.com/rvashist/interview-tree-backend/internal/services"
	"github.com/rvashist/interview-tree-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("CLERK_JWT_SECRET", "", log)
	webhookSecret := utils.GetEnv("CLERK_WEBHOOK_SECRET", "", log)
	dailyQuota := utils.GetEnvAsInt("CHALLENGE_QUOTA_DAILY", 20, log)
	if jwtSecretKey == "" {
		log.Error("CLERK_JWT_SECRET is required")
		os.Exit(1)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	quotaRepo := repos.NewQuotaRepo(thePG, log)
	artifactRepo := repos.NewArtifactRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	groqClient, err := services.NewGroqClient(log)
	if err != nil {
		log.Error("Could not init GroqClient", "error", err)
		os.Exit(1)
	}
	authService := services.NewAuthService(log, jwtSecretKey)
	quotaService := services.NewQuotaService(thePG, log, quotaRepo, dailyQuota)
	workflow := services.NewGenerationWorkflow(thePG, log, quotaService, quotaRepo, artifactRepo)
	challengeService := services.NewChallengeService(thePG, log, groqClient, workflow, artifactRepo)
	topicService := services.NewTopicService(thePG, log, groqClient, workflow)

	// Handlers
	log.Info("Setting up handlers from main...")
	challengeHandler := handlers.NewChallengeHandler(log, challengeService, quotaService)
	topicHandler := handlers.NewTopicHandler(log, topicService)
	webhookHandler := handlers.NewWebhookHandler(log, quotaService, webhookSecret)
	healthHandler := handlers.NewHealthHandler()

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	var allowedOrigins []string
	if v := utils.GetEnv("CORS_ALLOWED_ORIGINS", "", log); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if o := strings.TrimSpace(origin); o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	srv := server.NewServer(server.RouterConfig{
		AuthMiddleware:   authMiddleware,
		ChallengeHandler: challengeHandler,
		TopicHandler:     topicHandler,
		WebhookHandler:   webhookHandler,
		HealthHandler:    healthHandler,
		AllowedOrigins:   allowedOrigins,
	})

	port := utils.GetEnv("PORT", "8000", log)
	log.Info("Server listening", "port", port)
	if err := srv.Run(":" + port); err != nil {
		log.Fatal("Server failed", "error", err)
	}
}
