package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rvashist/interview-tree-backend/internal/logger"
	"github.com/rvashist/interview-tree-backend/internal/middleware"
	"github.com/rvashist/interview-tree-backend/internal/services"
)

type ChallengeHandler struct {
	log              *logger.Logger
	challengeService services.ChallengeService
	quotaService     services.QuotaService
}

func NewChallengeHandler(log *logger.Logger, challengeService services.ChallengeService, quotaService services.QuotaService) *ChallengeHandler {
	handlerLog := log.With("handler", "ChallengeHandler")
	return &ChallengeHandler{
		log:              handlerLog,
		challengeService: challengeService,
		quotaService:     quotaService,
	}
}

type generateChallengeRequest struct {
	Difficulty string `json:"difficulty" binding:"required,oneof=easy medium hard"`
}

func (ch *ChallengeHandler) GenerateChallenge(c *gin.Context) {
	var req generateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"message": err.Error(), "code": "invalid_request"},
		})
		return
	}

	userID := middleware.UserID(c)
	artifact, payload, err := ch.challengeService.GenerateChallenge(c.Request.Context(), userID, req.Difficulty)
	if err != nil {
		ch.log.Warn("Generate challenge failed", "user_id", userID, "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                artifact.ID,
		"difficulty":        req.Difficulty,
		"title":             payload.Title,
		"options":           payload.Options,
		"correct_answer_id": payload.CorrectAnswerID,
		"explanation":       payload.Explanation,
		"timestamp":         artifact.CreatedAt.Format(time.RFC3339),
	})
}

func (ch *ChallengeHandler) MyHistory(c *gin.Context) {
	userID := middleware.UserID(c)
	artifacts, err := ch.challengeService.History(c.Request.Context(), userID)
	if err != nil {
		ch.log.Warn("History fetch failed", "user_id", userID, "error", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": artifacts})
}

func (ch *ChallengeHandler) GetQuota(c *gin.Context) {
	userID := middleware.UserID(c)
	quota, err := ch.quotaService.Snapshot(c.Request.Context(), userID)
	if err != nil {
		ch.log.Warn("Quota fetch failed", "user_id", userID, "error", err)
		respondError(c, err)
		return
	}

	resp := gin.H{
		"user_id":         quota.UserID,
		"quota_remaining": quota.QuotaRemaining,
		"last_reset_date": quota.LastResetDate,
	}
	// A user with no quota row yet gets an unpersisted stub with no id.
	if quota.ID != uuid.Nil {
		resp["id"] = quota.ID
	}
	c.JSON(http.StatusOK, resp)
}
