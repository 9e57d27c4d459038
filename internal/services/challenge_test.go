package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/rvashist/interview-tree-backend/internal/repos"
	"github.com/rvashist/interview-tree-backend/internal/repos/testutil"
	"github.com/rvashist/interview-tree-backend/internal/types"
)

type fakeGroqClient struct {
	reply string
	err   error
	calls int
}

func (f *fakeGroqClient) Complete(ctx context.Context, system string, user string, temperature float64) (string, error) {
	f.calls++
	return f.reply, f.err
}

type challengeFixture struct {
	db           *gorm.DB
	quotaRepo    repos.QuotaRepo
	artifactRepo repos.ArtifactRepo
	quotaService QuotaService
	service      ChallengeService
}

func newChallengeFixture(t *testing.T, client GroqClient, dailyQuota int) *challengeFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	quotaRepo := repos.NewQuotaRepo(db, log)
	artifactRepo := repos.NewArtifactRepo(db, log)
	quotaService := NewQuotaService(db, log, quotaRepo, dailyQuota)
	workflow := NewGenerationWorkflow(db, log, quotaService, quotaRepo, artifactRepo)
	return &challengeFixture{
		db:           db,
		quotaRepo:    quotaRepo,
		artifactRepo: artifactRepo,
		quotaService: quotaService,
		service:      NewChallengeService(db, log, client, workflow, artifactRepo),
	}
}

const validChallengeReply = `{
	"title": "Which method adds to a Python list?",
	"options": ["append", "add", "push", "insert"],
	"correct_answer_id": 0,
	"explanation": "append adds to the end of a list."
}`

func TestParseChallengeReply(t *testing.T) {
	cases := []struct {
		name    string
		reply   string
		wantErr bool
	}{
		{name: "valid", reply: validChallengeReply},
		{name: "fenced", reply: "```json\n" + validChallengeReply + "\n```"},
		{name: "fenced_no_tag", reply: "```\n" + validChallengeReply + "\n```"},
		{name: "not_json", reply: "Sure! Here is your challenge:", wantErr: true},
		{name: "missing_explanation", reply: `{"title":"t","options":["a","b","c","d"],"correct_answer_id":1}`, wantErr: true},
		{name: "missing_correct_id", reply: `{"title":"t","options":["a","b","c","d"],"explanation":"e"}`, wantErr: true},
		{name: "three_options", reply: `{"title":"t","options":["a","b","c"],"correct_answer_id":0,"explanation":"e"}`, wantErr: true},
		{name: "answer_out_of_range", reply: `{"title":"t","options":["a","b","c","d"],"correct_answer_id":4,"explanation":"e"}`, wantErr: true},
		{name: "empty_title", reply: `{"title":"","options":["a","b","c","d"],"correct_answer_id":0,"explanation":"e"}`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := parseChallengeReply(tc.reply)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", payload)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if payload.Title == "" || len(payload.Options) != 4 {
				t.Fatalf("parsed payload incomplete: %+v", payload)
			}
		})
	}
}

func TestGenerateChallengeNewUserCreatesQuota(t *testing.T) {
	ctx := context.Background()
	fx := newChallengeFixture(t, &fakeGroqClient{reply: validChallengeReply}, 20)

	artifact, payload, err := fx.service.GenerateChallenge(ctx, "new_user", "easy")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if payload.Title != "Which method adds to a Python list?" {
		t.Fatalf("unexpected payload title: %q", payload.Title)
	}
	if artifact.Kind != types.ArtifactKindChallenge || artifact.Subject != "easy" {
		t.Fatalf("artifact mislabeled: %+v", artifact)
	}

	quota, err := fx.quotaService.Snapshot(ctx, "new_user")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if quota.QuotaRemaining != 19 {
		t.Fatalf("remaining = %d, want 19", quota.QuotaRemaining)
	}

	count, err := fx.artifactRepo.CountByCreator(ctx, nil, "new_user")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("artifacts = %d, want 1", count)
	}
}

func TestGenerateChallengeDecrementsPerSuccess(t *testing.T) {
	ctx := context.Background()
	fx := newChallengeFixture(t, &fakeGroqClient{reply: validChallengeReply}, 5)

	for i := 0; i < 3; i++ {
		if _, _, err := fx.service.GenerateChallenge(ctx, "user_1", "medium"); err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
	}

	quota, err := fx.quotaService.Snapshot(ctx, "user_1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if quota.QuotaRemaining != 2 {
		t.Fatalf("remaining = %d, want 2", quota.QuotaRemaining)
	}
}

func TestGenerateChallengeRejectedWhenExhausted(t *testing.T) {
	ctx := context.Background()
	client := &fakeGroqClient{reply: validChallengeReply}
	fx := newChallengeFixture(t, client, 20)

	testutil.SeedQuota(t, ctx, fx.db, "drained", 0, time.Now())

	_, _, err := fx.service.GenerateChallenge(ctx, "drained", "easy")
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("err = %v, want ErrQuotaExhausted", err)
	}
	if client.calls != 0 {
		t.Fatalf("provider called %d times for an exhausted user", client.calls)
	}

	count, err := fx.artifactRepo.CountByCreator(ctx, nil, "drained")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("artifacts = %d, want 0", count)
	}
}

func TestGenerateChallengeFallsBackOnProviderError(t *testing.T) {
	ctx := context.Background()
	fx := newChallengeFixture(t, &fakeGroqClient{err: errors.New("provider down")}, 20)

	artifact, payload, err := fx.service.GenerateChallenge(ctx, "user_1", "easy")
	if err != nil {
		t.Fatalf("generate should absorb provider failure, got %v", err)
	}
	if payload.Title != "Basic Python List Operation" {
		t.Fatalf("title = %q, want fallback", payload.Title)
	}
	if payload.Options[0] != "my_list.append(5)" || len(payload.Options) != 4 {
		t.Fatalf("unexpected fallback options: %v", payload.Options)
	}
	if payload.CorrectAnswerID != 0 {
		t.Fatalf("correct_answer_id = %d, want 0", payload.CorrectAnswerID)
	}

	var stored types.ChallengePayload
	if err := json.Unmarshal(artifact.Payload, &stored); err != nil {
		t.Fatalf("stored payload: %v", err)
	}
	if stored.Title != payload.Title {
		t.Fatalf("stored %q, responded %q", stored.Title, payload.Title)
	}

	// Fallback still consumes quota: the user received an artifact.
	quota, err := fx.quotaService.Snapshot(ctx, "user_1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if quota.QuotaRemaining != 19 {
		t.Fatalf("remaining = %d, want 19", quota.QuotaRemaining)
	}
}

func TestGenerateChallengeFallsBackOnMalformedReply(t *testing.T) {
	ctx := context.Background()
	fx := newChallengeFixture(t, &fakeGroqClient{reply: "I cannot produce JSON today"}, 20)

	_, payload, err := fx.service.GenerateChallenge(ctx, "user_1", "hard")
	if err != nil {
		t.Fatalf("generate should absorb malformed reply, got %v", err)
	}
	if payload.Title != "Basic Python List Operation" {
		t.Fatalf("title = %q, want fallback", payload.Title)
	}
}

func TestHistoryReturnsOwnArtifactsOnly(t *testing.T) {
	ctx := context.Background()
	fx := newChallengeFixture(t, &fakeGroqClient{reply: validChallengeReply}, 20)

	if _, _, err := fx.service.GenerateChallenge(ctx, "user_a", "easy"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, err := fx.service.GenerateChallenge(ctx, "user_b", "easy"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	history, err := fx.service.History(ctx, "user_a")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].CreatedBy != "user_a" {
		t.Fatalf("unexpected history: %+v", history)
	}
}
