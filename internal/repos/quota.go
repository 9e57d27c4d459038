package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rvashist/interview-tree-backend/internal/logger"
	"github.com/rvashist/interview-tree-backend/internal/types"
)

type QuotaRepo interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*types.ChallengeQuota, error)
	// Create inserts a quota row with the given remaining count. A
	// concurrent or repeated create for the same user is absorbed by
	// the unique index on user_id; the row that won is returned.
	Create(ctx context.Context, tx *gorm.DB, userID string, remaining int) (*types.ChallengeQuota, error)
	// ResetIfStale refills the quota in a single conditional update
	// when more than window has passed since last_reset_date. Calling
	// it again inside the window is a no-op.
	ResetIfStale(ctx context.Context, tx *gorm.DB, userID string, refill int, window time.Duration, now time.Time) (*types.ChallengeQuota, error)
	// ConsumeOne decrements quota_remaining by one, guarded so it can
	// never go below zero even under concurrent requests. Returns
	// false when no quota was available to consume.
	ConsumeOne(ctx context.Context, tx *gorm.DB, userID string) (bool, error)
}

type quotaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuotaRepo(db *gorm.DB, baseLog *logger.Logger) QuotaRepo {
	repoLog := baseLog.With("repo", "QuotaRepo")
	return &quotaRepo{db: db, log: repoLog}
}

func (r *quotaRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*types.ChallengeQuota, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var quota types.ChallengeQuota
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&quota).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quota, nil
}

func (r *quotaRepo) Create(ctx context.Context, tx *gorm.DB, userID string, remaining int) (*types.ChallengeQuota, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	quota := &types.ChallengeQuota{
		ID:             uuid.New(),
		UserID:         userID,
		QuotaRemaining: remaining,
		LastResetDate:  time.Now(),
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(quota).Error; err != nil {
		return nil, err
	}

	// The insert may have been a no-op; the existing row is
	// authoritative either way.
	return r.GetByUserID(ctx, transaction, userID)
}

func (r *quotaRepo) ResetIfStale(ctx context.Context, tx *gorm.DB, userID string, refill int, window time.Duration, now time.Time) (*types.ChallengeQuota, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.ChallengeQuota{}).
		Where("user_id = ? AND last_reset_date <= ?", userID, now.Add(-window)).
		Updates(map[string]interface{}{
			"quota_remaining": refill,
			"last_reset_date": now,
		}).Error; err != nil {
		return nil, err
	}

	return r.GetByUserID(ctx, transaction, userID)
}

func (r *quotaRepo) ConsumeOne(ctx context.Context, tx *gorm.DB, userID string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.ChallengeQuota{}).
		Where("user_id = ? AND quota_remaining > 0", userID).
		UpdateColumn("quota_remaining", gorm.Expr("quota_remaining - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
