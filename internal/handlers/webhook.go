package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	svix "github.com/svix/svix-webhooks/go"

	"github.com/rvashist/interview-tree-backend/internal/logger"
	"github.com/rvashist/interview-tree-backend/internal/services"
)

const userCreatedEventType = "user.created"

// WebhookHandler provisions quota records from identity provider
// events. The path is not bearer-authenticated; the svix signature
// over the raw body is the credential.
type WebhookHandler struct {
	log           *logger.Logger
	quotaService  services.QuotaService
	webhookSecret string
}

func NewWebhookHandler(log *logger.Logger, quotaService services.QuotaService, webhookSecret string) *WebhookHandler {
	handlerLog := log.With("handler", "WebhookHandler")
	return &WebhookHandler{
		log:           handlerLog,
		quotaService:  quotaService,
		webhookSecret: webhookSecret,
	}
}

type clerkEvent struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (wh *WebhookHandler) HandleClerk(c *gin.Context) {
	if wh.webhookSecret == "" {
		wh.log.Error("CLERK_WEBHOOK_SECRET not configured, rejecting webhook")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"message": "webhook secret not configured", "code": "unauthorized"},
		})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"message": "could not read body", "code": "invalid_request"},
		})
		return
	}

	verifier, err := svix.NewWebhook(wh.webhookSecret)
	if err != nil {
		wh.log.Error("Invalid webhook secret", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"message": "invalid webhook secret", "code": "unauthorized"},
		})
		return
	}
	if err := verifier.Verify(body, c.Request.Header); err != nil {
		wh.log.Warn("Webhook signature verification failed", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"message": "signature verification failed", "code": "unauthorized"},
		})
		return
	}

	var event clerkEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"message": "malformed event payload", "code": "invalid_request"},
		})
		return
	}

	if event.Type != userCreatedEventType {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if event.Data.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"message": "event has no user id", "code": "invalid_request"},
		})
		return
	}

	// Clerk delivers at least once; Provision absorbs duplicates via
	// the unique user constraint.
	if _, err := wh.quotaService.Provision(c.Request.Context(), event.Data.ID); err != nil {
		wh.log.Error("Quota provisioning failed", "user_id", event.Data.ID, "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
