package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/rvashist/interview-tree-backend/internal/logger"
	"github.com/rvashist/interview-tree-backend/internal/types"
)

type ArtifactRepo interface {
	Create(ctx context.Context, tx *gorm.DB, artifacts []*types.GeneratedArtifact) ([]*types.GeneratedArtifact, error)
	GetByCreator(ctx context.Context, tx *gorm.DB, userID string) ([]*types.GeneratedArtifact, error)
	CountByCreator(ctx context.Context, tx *gorm.DB, userID string) (int64, error)
}

type artifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	repoLog := baseLog.With("repo", "ArtifactRepo")
	return &artifactRepo{db: db, log: repoLog}
}

func (r *artifactRepo) Create(ctx context.Context, tx *gorm.DB, artifacts []*types.GeneratedArtifact) ([]*types.GeneratedArtifact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(artifacts) == 0 {
		return []*types.GeneratedArtifact{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&artifacts).Error; err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (r *artifactRepo) GetByCreator(ctx context.Context, tx *gorm.DB, userID string) ([]*types.GeneratedArtifact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.GeneratedArtifact
	if err := transaction.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *artifactRepo) CountByCreator(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.GeneratedArtifact{}).
		Where("created_by = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
