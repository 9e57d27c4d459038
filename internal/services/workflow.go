package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rvashist/interview-tree-backend/internal/logger"
	"github.com/rvashist/interview-tree-backend/internal/repos"
	"github.com/rvashist/interview-tree-backend/internal/types"
)

// GenerationSpec describes one quota-gated generation request. Generate
// produces the validated payload for the artifact kind; for challenge
// and topic tree requests it must absorb provider failures with a
// fallback and never return an error.
type GenerationSpec struct {
	Kind     string
	Subject  string
	Generate func(ctx context.Context) (datatypes.JSON, error)
}

// GenerationWorkflow sequences one generation request: quota
// fetch/create, time-based reset, quota gate, generation, persistence,
// and the quota decrement. One-shot per inbound request, no retries.
type GenerationWorkflow interface {
	Run(ctx context.Context, userID string, spec GenerationSpec) (*types.GeneratedArtifact, error)
}

type generationWorkflow struct {
	db           *gorm.DB
	log          *logger.Logger
	quotaService QuotaService
	quotaRepo    repos.QuotaRepo
	artifactRepo repos.ArtifactRepo
}

func NewGenerationWorkflow(
	db *gorm.DB,
	log *logger.Logger,
	quotaService QuotaService,
	quotaRepo repos.QuotaRepo,
	artifactRepo repos.ArtifactRepo,
) GenerationWorkflow {
	workflowLog := log.With("service", "GenerationWorkflow")
	return &generationWorkflow{
		db:           db,
		log:          workflowLog,
		quotaService: quotaService,
		quotaRepo:    quotaRepo,
		artifactRepo: artifactRepo,
	}
}

func (w *generationWorkflow) Run(ctx context.Context, userID string, spec GenerationSpec) (*types.GeneratedArtifact, error) {
	quota, err := w.quotaService.Resolve(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if quota.QuotaRemaining <= 0 {
		return nil, ErrQuotaExhausted
	}

	payload, err := spec.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	artifact := &types.GeneratedArtifact{
		ID:        uuid.New(),
		Kind:      spec.Kind,
		Subject:   spec.Subject,
		CreatedBy: userID,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	// Persist and decrement together. The conditional decrement is the
	// authoritative gate: if a concurrent request drained the quota
	// between the check above and here, the insert rolls back and no
	// artifact row is left behind. Detached from request cancellation
	// so a client disconnect cannot leave quota state inconsistent.
	writeCtx := context.WithoutCancel(ctx)
	if err := w.db.WithContext(writeCtx).Transaction(func(tx *gorm.DB) error {
		if _, err := w.artifactRepo.Create(writeCtx, tx, []*types.GeneratedArtifact{artifact}); err != nil {
			return fmt.Errorf("persisting artifact: %w", err)
		}
		consumed, err := w.quotaRepo.ConsumeOne(writeCtx, tx, userID)
		if err != nil {
			return fmt.Errorf("consuming quota: %w", err)
		}
		if !consumed {
			return ErrQuotaExhausted
		}
		return nil
	}); err != nil {
		return nil, err
	}

	w.log.Info("Artifact generated",
		"kind", spec.Kind,
		"subject", spec.Subject,
		"user_id", userID,
		"artifact_id", artifact.ID,
	)
	return artifact, nil
}
