package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ArtifactKindChallenge = "challenge"
	ArtifactKindTopicTree = "topic_tree"
)

// GeneratedArtifact is one persisted generation result: a multiple
// choice challenge or a topic tree. Subject holds the difficulty for
// challenges and the topic string for trees. Payload is the validated
// structured content for the kind; rows are immutable once created.
type GeneratedArtifact struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind      string         `gorm:"not null;column:kind" json:"kind"`
	Subject   string         `gorm:"not null;column:subject" json:"subject"`
	CreatedBy string         `gorm:"index;not null;column:created_by" json:"created_by"`
	Payload   datatypes.JSON `gorm:"not null;column:payload" json:"payload"`
	CreatedAt time.Time      `gorm:"not null;column:created_at" json:"created_at"`
}

func (GeneratedArtifact) TableName() string {
	return "generated_artifacts"
}

// ChallengePayload is the shape contract for ArtifactKindChallenge.
type ChallengePayload struct {
	Title           string   `json:"title"`
	Options         []string `json:"options"`
	CorrectAnswerID int      `json:"correct_answer_id"`
	Explanation     string   `json:"explanation"`
}

// TopicTreePayload is the shape contract for ArtifactKindTopicTree.
type TopicTreePayload struct {
	Root  string      `json:"root"`
	Nodes []TopicNode `json:"nodes"`
}

type TopicNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// NodeDetail is returned by the node detail endpoint. It is never
// persisted, so it carries no gorm tags.
type NodeDetail struct {
	Title              string              `json:"title"`
	Definition         string              `json:"definition"`
	WhyImportant       string              `json:"why_important"`
	Examples           []string            `json:"examples"`
	InterviewQuestions []InterviewQuestion `json:"interview_questions"`
}

type InterviewQuestion struct {
	Q string `json:"q"`
	A string `json:"a"`
}
