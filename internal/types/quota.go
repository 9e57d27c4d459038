package types

import (
	"time"

	"github.com/google/uuid"
)

// ChallengeQuota tracks how many generations a user has left in the
// current 24h window. One row per user, keyed by the identity
// provider's stable user id.
type ChallengeQuota struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string    `gorm:"uniqueIndex;not null;column:user_id" json:"user_id"`
	QuotaRemaining int       `gorm:"not null;column:quota_remaining" json:"quota_remaining"`
	LastResetDate  time.Time `gorm:"not null;column:last_reset_date" json:"last_reset_date"`
}

func (ChallengeQuota) TableName() string {
	return "challenge_quotas"
}
