package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rvashist/interview-tree-backend/internal/services"
)

// respondError maps service errors to the HTTP boundary: unauthorized
// 401, quota exhausted 429, generation failure 400, everything else 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"message": err.Error(), "code": "unauthorized"},
		})
	case errors.Is(err, services.ErrQuotaExhausted):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": gin.H{"message": "quota exhausted", "code": "quota_exhausted"},
		})
	case errors.Is(err, services.ErrGeneration):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"message": err.Error(), "code": "generation_failed"},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"message": "internal error", "code": "internal"},
		})
	}
}
