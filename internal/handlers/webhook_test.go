package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rvashist/interview-tree-backend/internal/repos"
	"github.com/rvashist/interview-tree-backend/internal/repos/testutil"
	"github.com/rvashist/interview-tree-backend/internal/services"
	"github.com/rvashist/interview-tree-backend/internal/types"
)

var webhookSigningKey = []byte("0123456789abcdefghijklmnopqrstuv")

func webhookSecret() string {
	return "whsec_" + base64.StdEncoding.EncodeToString(webhookSigningKey)
}

// signWebhook produces the standard svix headers over the raw body.
func signWebhook(t *testing.T, body []byte) http.Header {
	t.Helper()
	msgID := "msg_test_1"
	ts := fmt.Sprintf("%d", time.Now().Unix())

	mac := hmac.New(sha256.New, webhookSigningKey)
	mac.Write([]byte(msgID + "." + ts + "." + string(body)))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	h := http.Header{}
	h.Set("svix-id", msgID)
	h.Set("svix-timestamp", ts)
	h.Set("svix-signature", "v1,"+sig)
	h.Set("Content-Type", "application/json")
	return h
}

func newWebhookRouter(t *testing.T, secret string) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)
	quotaService := services.NewQuotaService(db, log, repos.NewQuotaRepo(db, log), 20)
	handler := NewWebhookHandler(log, quotaService, secret)

	r := gin.New()
	r.POST("/webhooks/clerk", handler.HandleClerk)
	return r, db
}

func postWebhook(r *gin.Engine, body []byte, headers http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body))
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func quotaRowCount(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var count int64
	if err := db.WithContext(context.Background()).
		Model(&types.ChallengeQuota{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

func TestWebhookUserCreatedProvisionsQuota(t *testing.T) {
	r, db := newWebhookRouter(t, webhookSecret())

	body := []byte(`{"type":"user.created","data":{"id":"abc123"}}`)
	w := postWebhook(r, body, signWebhook(t, body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); !bytes.Contains([]byte(got), []byte("success")) {
		t.Fatalf("body = %s, want success", got)
	}
	if n := quotaRowCount(t, db, "abc123"); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestWebhookDuplicateDeliveryLeavesOneRow(t *testing.T) {
	r, db := newWebhookRouter(t, webhookSecret())

	body := []byte(`{"type":"user.created","data":{"id":"abc123"}}`)
	for i := 0; i < 2; i++ {
		w := postWebhook(r, body, signWebhook(t, body))
		if w.Code != http.StatusOK {
			t.Fatalf("delivery %d: status = %d, body = %s", i, w.Code, w.Body.String())
		}
	}
	if n := quotaRowCount(t, db, "abc123"); n != 1 {
		t.Fatalf("rows = %d, want exactly 1 after duplicate delivery", n)
	}
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	r, db := newWebhookRouter(t, webhookSecret())

	body := []byte(`{"type":"user.updated","data":{"id":"abc123"}}`)
	w := postWebhook(r, body, signWebhook(t, body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Body.String(); !bytes.Contains([]byte(got), []byte("ignored")) {
		t.Fatalf("body = %s, want ignored", got)
	}
	if n := quotaRowCount(t, db, "abc123"); n != 0 {
		t.Fatalf("rows = %d, want 0", n)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	r, db := newWebhookRouter(t, webhookSecret())

	body := []byte(`{"type":"user.created","data":{"id":"abc123"}}`)
	headers := signWebhook(t, body)
	headers.Set("svix-signature", "v1,AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")

	w := postWebhook(r, body, headers)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if n := quotaRowCount(t, db, "abc123"); n != 0 {
		t.Fatalf("rows = %d, want 0", n)
	}
}

func TestWebhookRejectsTamperedBody(t *testing.T) {
	r, _ := newWebhookRouter(t, webhookSecret())

	body := []byte(`{"type":"user.created","data":{"id":"abc123"}}`)
	headers := signWebhook(t, body)
	tampered := []byte(`{"type":"user.created","data":{"id":"evil999"}}`)

	w := postWebhook(r, tampered, headers)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestWebhookRejectsWhenSecretMissing(t *testing.T) {
	r, _ := newWebhookRouter(t, "")

	body := []byte(`{"type":"user.created","data":{"id":"abc123"}}`)
	w := postWebhook(r, body, signWebhook(t, body))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
