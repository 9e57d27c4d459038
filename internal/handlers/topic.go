package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rvashist/interview-tree-backend/internal/logger"
	"github.com/rvashist/interview-tree-backend/internal/middleware"
	"github.com/rvashist/interview-tree-backend/internal/services"
)

type TopicHandler struct {
	log          *logger.Logger
	topicService services.TopicService
}

func NewTopicHandler(log *logger.Logger, topicService services.TopicService) *TopicHandler {
	handlerLog := log.With("handler", "TopicHandler")
	return &TopicHandler{log: handlerLog, topicService: topicService}
}

type generateTopicTreeRequest struct {
	Topic        string `json:"topic" binding:"required"`
	MaxSubtopics int    `json:"max_subtopics"`
}

func (th *TopicHandler) GenerateTopicTree(c *gin.Context) {
	var req generateTopicTreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"message": err.Error(), "code": "invalid_request"},
		})
		return
	}

	userID := middleware.UserID(c)
	artifact, payload, err := th.topicService.GenerateTree(c.Request.Context(), userID, req.Topic, req.MaxSubtopics)
	if err != nil {
		th.log.Warn("Generate topic tree failed", "user_id", userID, "topic", req.Topic, "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        artifact.ID,
		"topic":     req.Topic,
		"root":      payload.Root,
		"nodes":     payload.Nodes,
		"timestamp": artifact.CreatedAt.Format(time.RFC3339),
	})
}

type nodeDetailRequest struct {
	Topic     string `json:"topic" binding:"required"`
	NodeTitle string `json:"node_title" binding:"required"`
}

func (th *TopicHandler) GenerateNodeDetail(c *gin.Context) {
	var req nodeDetailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"message": err.Error(), "code": "invalid_request"},
		})
		return
	}

	detail, err := th.topicService.NodeDetail(c.Request.Context(), req.Topic, req.NodeTitle)
	if err != nil {
		th.log.Warn("Generate node detail failed", "topic", req.Topic, "node", req.NodeTitle, "error", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type followupRequest struct {
	Topic     string `json:"topic" binding:"required"`
	NodeTitle string `json:"node_title" binding:"required"`
	Followup  string `json:"followup" binding:"required"`
}

func (th *TopicHandler) GenerateNodeFollowup(c *gin.Context) {
	var req followupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"message": err.Error(), "code": "invalid_request"},
		})
		return
	}

	answer, err := th.topicService.Followup(c.Request.Context(), req.Topic, req.NodeTitle, req.Followup)
	if err != nil {
		th.log.Warn("Generate followup failed", "topic", req.Topic, "node", req.NodeTitle, "error", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
