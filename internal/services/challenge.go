package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rvashist/interview-tree-backend/internal/logger"
	"github.com/rvashist/interview-tree-backend/internal/repos"
	"github.com/rvashist/interview-tree-backend/internal/types"
)

const challengeSystemPrompt = `You are an expert coding challenge creator.
Generate a coding question with 4 multiple choice options.

Difficulty levels:
- EASY: basic syntax, list operations, loops, conditions
- MEDIUM: data structures, algorithms, strings, recursion
- HARD: optimization, advanced algorithms, performance, tricky edge cases

STRICT JSON FORMAT:
{
    "title": "question title",
    "options": ["A", "B", "C", "D"],
    "correct_answer_id": 0,
    "explanation": "why the answer is correct"
}

Only one correct option.
Do NOT add extra text outside JSON.`

type ChallengeService interface {
	// GenerateChallenge runs the quota-gated workflow for one multiple
	// choice challenge. Provider failures are absorbed by a fixed
	// fallback challenge, so a caller with quota left always gets an
	// artifact back.
	GenerateChallenge(ctx context.Context, userID string, difficulty string) (*types.GeneratedArtifact, *types.ChallengePayload, error)
	History(ctx context.Context, userID string) ([]*types.GeneratedArtifact, error)
}

type challengeService struct {
	db           *gorm.DB
	log          *logger.Logger
	groqClient   GroqClient
	workflow     GenerationWorkflow
	artifactRepo repos.ArtifactRepo
}

func NewChallengeService(
	db *gorm.DB,
	log *logger.Logger,
	groqClient GroqClient,
	workflow GenerationWorkflow,
	artifactRepo repos.ArtifactRepo,
) ChallengeService {
	serviceLog := log.With("service", "ChallengeService")
	return &challengeService{
		db:           db,
		log:          serviceLog,
		groqClient:   groqClient,
		workflow:     workflow,
		artifactRepo: artifactRepo,
	}
}

func (cs *challengeService) GenerateChallenge(ctx context.Context, userID string, difficulty string) (*types.GeneratedArtifact, *types.ChallengePayload, error) {
	var payload *types.ChallengePayload

	artifact, err := cs.workflow.Run(ctx, userID, GenerationSpec{
		Kind:    types.ArtifactKindChallenge,
		Subject: difficulty,
		Generate: func(ctx context.Context) (datatypes.JSON, error) {
			generated, genErr := cs.generate(ctx, difficulty)
			if genErr != nil {
				cs.log.Warn("Challenge generation failed, using fallback", "difficulty", difficulty, "error", genErr)
				generated = fallbackChallenge()
			}
			payload = generated
			raw, mErr := json.Marshal(generated)
			if mErr != nil {
				return nil, mErr
			}
			return datatypes.JSON(raw), nil
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return artifact, payload, nil
}

func (cs *challengeService) History(ctx context.Context, userID string) ([]*types.GeneratedArtifact, error) {
	artifacts, err := cs.artifactRepo.GetByCreator(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	return artifacts, nil
}

func (cs *challengeService) generate(ctx context.Context, difficulty string) (*types.ChallengePayload, error) {
	userPrompt := fmt.Sprintf("Generate a %s difficulty coding challenge in JSON.", difficulty)
	reply, err := cs.groqClient.Complete(ctx, challengeSystemPrompt, userPrompt, 0.7)
	if err != nil {
		return nil, err
	}
	return parseChallengeReply(reply)
}

// parseChallengeReply treats the model output as untrusted input: the
// reply must contain every required field and satisfy the challenge
// shape contract, otherwise the whole reply is rejected.
func parseChallengeReply(reply string) (*types.ChallengePayload, error) {
	cleaned := StripCodeFence(reply)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, fmt.Errorf("reply is not a JSON object: %w", err)
	}
	for _, required := range []string{"title", "options", "correct_answer_id", "explanation"} {
		if _, ok := fields[required]; !ok {
			return nil, fmt.Errorf("missing required field: %s", required)
		}
	}

	var payload types.ChallengePayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("reply does not match challenge shape: %w", err)
	}
	if payload.Title == "" {
		return nil, fmt.Errorf("empty title")
	}
	if len(payload.Options) != 4 {
		return nil, fmt.Errorf("expected 4 options, got %d", len(payload.Options))
	}
	if payload.CorrectAnswerID < 0 || payload.CorrectAnswerID > 3 {
		return nil, fmt.Errorf("correct_answer_id out of range: %d", payload.CorrectAnswerID)
	}
	if payload.Explanation == "" {
		return nil, fmt.Errorf("empty explanation")
	}
	return &payload, nil
}

func fallbackChallenge() *types.ChallengePayload {
	return &types.ChallengePayload{
		Title: "Basic Python List Operation",
		Options: []string{
			"my_list.append(5)",
			"my_list.add(5)",
			"my_list.push(5)",
			"my_list.insert(5)",
		},
		CorrectAnswerID: 0,
		Explanation:     "append() adds an element to the end of a Python list.",
	}
}
