package server

import (
	"github.com/gin-gonic/gin"

	"github.com/rvashist/interview-tree-backend/internal/handlers"
	"github.com/rvashist/interview-tree-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware   *middleware.AuthMiddleware
	ChallengeHandler *handlers.ChallengeHandler
	TopicHandler     *handlers.TopicHandler
	WebhookHandler   *handlers.WebhookHandler
	HealthHandler    *handlers.HealthHandler

	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Webhooks are signature-verified, not bearer-authenticated.
	if cfg.WebhookHandler != nil {
		r.POST("/webhooks/clerk", cfg.WebhookHandler.HandleClerk)
	}

	api := r.Group("/api")
	{
		if cfg.AuthMiddleware != nil {
			api.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.ChallengeHandler != nil {
			api.POST("/generate-challenge", cfg.ChallengeHandler.GenerateChallenge)
			api.GET("/my-history", cfg.ChallengeHandler.MyHistory)
			api.GET("/quota", cfg.ChallengeHandler.GetQuota)
		}

		if cfg.TopicHandler != nil {
			api.POST("/generate-topic-tree", cfg.TopicHandler.GenerateTopicTree)
			api.POST("/generate-node-detail", cfg.TopicHandler.GenerateNodeDetail)
			api.POST("/generate-node-followup", cfg.TopicHandler.GenerateNodeFollowup)
		}
	}

	return r
}
