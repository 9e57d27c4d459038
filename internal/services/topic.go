package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rvashist/interview-tree-backend/internal/logger"
	"github.com/rvashist/interview-tree-backend/internal/types"
)

const (
	// DefaultMaxSubtopics matches the "6-10 subtopics" range the
	// product asks the model for when the client sends no limit.
	DefaultMaxSubtopics = 8
	maxSubtopicsCeiling = 20
)

const topicTreeSystemPrompt = `You are a technical interview coach.
Generate subtopics a candidate should study for the given topic.

STRICT JSON FORMAT:
{
    "root": "the topic",
    "nodes": [{"id": "n1", "title": "subtopic title"}]
}

Do NOT add extra text outside JSON.`

const nodeDetailSystemPrompt = `You are a technical interview coach.
Explain one subtopic of a study topic for interview preparation.

STRICT JSON FORMAT:
{
    "title": "subtopic title",
    "definition": "clear definition",
    "why_important": "why interviewers ask about it",
    "examples": ["short concrete example"],
    "interview_questions": [{"q": "question", "a": "concise answer"}]
}

Do NOT add extra text outside JSON.`

type TopicService interface {
	// GenerateTree runs the quota-gated workflow for one topic tree.
	// Provider failures are absorbed by a deterministic fallback node
	// list, so a caller with quota left always gets an artifact back.
	GenerateTree(ctx context.Context, userID string, topic string, maxSubtopics int) (*types.GeneratedArtifact, *types.TopicTreePayload, error)
	// NodeDetail expands one node of a topic tree. There is no safe
	// canned substitute for detail text, so failures surface as
	// ErrGeneration instead of a fallback.
	NodeDetail(ctx context.Context, topic string, nodeTitle string) (*types.NodeDetail, error)
	// Followup answers a free-form question about a node.
	Followup(ctx context.Context, topic string, nodeTitle string, question string) (string, error)
}

type topicService struct {
	db         *gorm.DB
	log        *logger.Logger
	groqClient GroqClient
	workflow   GenerationWorkflow
}

func NewTopicService(db *gorm.DB, log *logger.Logger, groqClient GroqClient, workflow GenerationWorkflow) TopicService {
	serviceLog := log.With("service", "TopicService")
	return &topicService{
		db:         db,
		log:        serviceLog,
		groqClient: groqClient,
		workflow:   workflow,
	}
}

func (ts *topicService) GenerateTree(ctx context.Context, userID string, topic string, maxSubtopics int) (*types.GeneratedArtifact, *types.TopicTreePayload, error) {
	if maxSubtopics <= 0 {
		maxSubtopics = DefaultMaxSubtopics
	}
	if maxSubtopics > maxSubtopicsCeiling {
		maxSubtopics = maxSubtopicsCeiling
	}

	var payload *types.TopicTreePayload

	artifact, err := ts.workflow.Run(ctx, userID, GenerationSpec{
		Kind:    types.ArtifactKindTopicTree,
		Subject: topic,
		Generate: func(ctx context.Context) (datatypes.JSON, error) {
			generated, genErr := ts.generateTree(ctx, topic, maxSubtopics)
			if genErr != nil {
				ts.log.Warn("Topic tree generation failed, using fallback", "topic", topic, "error", genErr)
				generated = fallbackTopicTree(topic, maxSubtopics)
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

func (ts *topicService) generateTree(ctx context.Context, topic string, maxSubtopics int) (*types.TopicTreePayload, error) {
	userPrompt := fmt.Sprintf("Generate at most %d subtopics for: %s. Return JSON only.", maxSubtopics, topic)
	reply, err := ts.groqClient.Complete(ctx, topicTreeSystemPrompt, userPrompt, 0.7)
	if err != nil {
		return nil, err
	}
	return parseTopicTreeReply(reply, topic, maxSubtopics)
}

func parseTopicTreeReply(reply string, topic string, maxSubtopics int) (*types.TopicTreePayload, error) {
	cleaned := StripCodeFence(reply)

	var payload types.TopicTreePayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("reply does not match topic tree shape: %w", err)
	}
	if payload.Root == "" {
		payload.Root = topic
	}
	if len(payload.Nodes) == 0 {
		return nil, fmt.Errorf("no nodes in reply")
	}
	if len(payload.Nodes) > maxSubtopics {
		payload.Nodes = payload.Nodes[:maxSubtopics]
	}
	for i := range payload.Nodes {
		if payload.Nodes[i].Title == "" {
			return nil, fmt.Errorf("node %d has no title", i)
		}
		if payload.Nodes[i].ID == "" {
			payload.Nodes[i].ID = fmt.Sprintf("n%d", i+1)
		}
	}
	return &payload, nil
}

var fallbackSubtopics = []string{
	"Fundamentals",
	"Core Concepts",
	"Common Patterns",
	"Best Practices",
	"Advanced Topics",
	"Interview Questions",
}

func fallbackTopicTree(topic string, maxSubtopics int) *types.TopicTreePayload {
	titles := fallbackSubtopics
	if maxSubtopics < len(titles) {
		titles = titles[:maxSubtopics]
	}
	nodes := make([]types.TopicNode, len(titles))
	for i, title := range titles {
		nodes[i] = types.TopicNode{ID: fmt.Sprintf("n%d", i+1), Title: title}
	}
	return &types.TopicTreePayload{Root: topic, Nodes: nodes}
}

func (ts *topicService) NodeDetail(ctx context.Context, topic string, nodeTitle string) (*types.NodeDetail, error) {
	userPrompt := fmt.Sprintf("Topic: %s\nSubtopic: %s\nExplain this subtopic in JSON.", topic, nodeTitle)
	reply, err := ts.groqClient.Complete(ctx, nodeDetailSystemPrompt, userPrompt, 0.7)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	detail, err := parseNodeDetailReply(reply)
	if err != nil {
		ts.log.Warn("Node detail reply rejected", "topic", topic, "node", nodeTitle, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return detail, nil
}

func parseNodeDetailReply(reply string) (*types.NodeDetail, error) {
	cleaned := StripCodeFence(reply)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, fmt.Errorf("reply is not a JSON object: %w", err)
	}
	for _, required := range []string{"title", "definition", "why_important", "examples", "interview_questions"} {
		if _, ok := fields[required]; !ok {
			return nil, fmt.Errorf("missing required field: %s", required)
		}
	}

	var detail types.NodeDetail
	if err := json.Unmarshal([]byte(cleaned), &detail); err != nil {
		return nil, fmt.Errorf("reply does not match node detail shape: %w", err)
	}
	if detail.Title == "" || detail.Definition == "" || detail.WhyImportant == "" {
		return nil, fmt.Errorf("empty required field in reply")
	}
	return &detail, nil
}

func (ts *topicService) Followup(ctx context.Context, topic string, nodeTitle string, question string) (string, error) {
	system := "You are a technical interview coach. Answer the candidate's follow-up question concisely in plain text."
	userPrompt := fmt.Sprintf("Topic: %s\nSubtopic: %s\nQuestion: %s", topic, nodeTitle, question)
	reply, err := ts.groqClient.Complete(ctx, system, userPrompt, 0.7)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return reply, nil
}
