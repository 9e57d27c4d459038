package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rvashist/interview-tree-backend/internal/logger"
	"github.com/rvashist/interview-tree-backend/internal/repos"
	"github.com/rvashist/interview-tree-backend/internal/types"
)

// QuotaWindow is the period after which a user's usage counter refills.
const QuotaWindow = 24 * time.Hour

type QuotaService interface {
	// Resolve returns the user's quota row, creating it with the
	// configured daily value when absent and refilling it when the
	// last reset is older than the window.
	Resolve(ctx context.Context, tx *gorm.DB, userID string) (*types.ChallengeQuota, error)
	// Provision creates a quota row for a newly registered user.
	// Safe to call more than once for the same id.
	Provision(ctx context.Context, userID string) (*types.ChallengeQuota, error)
	// Snapshot is the read-only view for GET /api/quota. When no row
	// exists yet it returns a zero-quota stub without persisting it.
	Snapshot(ctx context.Context, userID string) (*types.ChallengeQuota, error)
	DailyQuota() int
}

type quotaService struct {
	db         *gorm.DB
	log        *logger.Logger
	quotaRepo  repos.QuotaRepo
	dailyQuota int
}

func NewQuotaService(db *gorm.DB, log *logger.Logger, quotaRepo repos.QuotaRepo, dailyQuota int) QuotaService {
	serviceLog := log.With("service", "QuotaService")
	return &quotaService{
		db:         db,
		log:        serviceLog,
		quotaRepo:  quotaRepo,
		dailyQuota: dailyQuota,
	}
}

func (qs *quotaService) DailyQuota() int {
	return qs.dailyQuota
}

func (qs *quotaService) Resolve(ctx context.Context, tx *gorm.DB, userID string) (*types.ChallengeQuota, error) {
	quota, err := qs.quotaRepo.GetByUserID(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching quota: %w", err)
	}
	if quota == nil {
		quota, err = qs.quotaRepo.Create(ctx, tx, userID, qs.dailyQuota)
		if err != nil {
			return nil, fmt.Errorf("creating quota: %w", err)
		}
		if quota == nil {
			return nil, fmt.Errorf("quota row missing after create for user %s", userID)
		}
		return quota, nil
	}

	quota, err = qs.quotaRepo.ResetIfStale(ctx, tx, userID, qs.dailyQuota, QuotaWindow, time.Now())
	if err != nil {
		return nil, fmt.Errorf("resetting quota: %w", err)
	}
	return quota, nil
}

func (qs *quotaService) Provision(ctx context.Context, userID string) (*types.ChallengeQuota, error) {
	quota, err := qs.quotaRepo.Create(ctx, nil, userID, qs.dailyQuota)
	if err != nil {
		return nil, fmt.Errorf("provisioning quota: %w", err)
	}
	qs.log.Info("Quota provisioned", "user_id", userID, "quota_remaining", quota.QuotaRemaining)
	return quota, nil
}

func (qs *quotaService) Snapshot(ctx context.Context, userID string) (*types.ChallengeQuota, error) {
	quota, err := qs.quotaRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching quota: %w", err)
	}
	if quota == nil {
		return &types.ChallengeQuota{
			UserID:         userID,
			QuotaRemaining: 0,
			LastResetDate:  time.Now(),
		}, nil
	}

	quota, err = qs.quotaRepo.ResetIfStale(ctx, nil, userID, qs.dailyQuota, QuotaWindow, time.Now())
	if err != nil {
		return nil, fmt.Errorf("resetting quota: %w", err)
	}
	return quota, nil
}
