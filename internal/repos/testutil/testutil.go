package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/rvashist/interview-tree-backend/internal/logger"
	"github.com/rvashist/interview-tree-backend/internal/types"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB opens a fresh in-memory sqlite database migrated with the two
// application tables. Each call is isolated; nothing leaks between
// tests.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&types.ChallengeQuota{}, &types.GeneratedArtifact{}); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func SeedQuota(tb testing.TB, ctx context.Context, db *gorm.DB, userID string, remaining int, lastReset time.Time) *types.ChallengeQuota {
	tb.Helper()
	q := &types.ChallengeQuota{
		ID:             uuid.New(),
		UserID:         userID,
		QuotaRemaining: remaining,
		LastResetDate:  lastReset,
	}
	if err := db.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed quota: %v", err)
	}
	return q
}

func SeedArtifact(tb testing.TB, ctx context.Context, db *gorm.DB, userID string, kind string, subject string, payload []byte) *types.GeneratedArtifact {
	tb.Helper()
	a := &types.GeneratedArtifact{
		ID:        uuid.New(),
		Kind:      kind,
		Subject:   subject,
		CreatedBy: userID,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed artifact: %v", err)
	}
	return a
}
