package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	NameMaxLen  = 200
	LabelMaxLen = 100
)

type SourceURL struct {
	URL            string  `json:"url"`
	Title          string  `json:"title,omitempty"`
	QualityScore   float64 `json:"quality_score"`
	DomainCategory string  `json:"domain_category,omitempty"`
}

type ExplanationEntry struct {
	Explanation string    `json:"explanation"`
	ReplacedAt  time.Time `json:"replaced_at"`
}

// Concept is the event-sourced aggregate state rebuilt by replaying its
// stream. It is never persisted as a row; the projections in Neo4j and
// Pinecone are its queryable representations.
type Concept struct {
	ID                 uuid.UUID          `json:"id"`
	Name               string             `json:"name"`
	Explanation        string             `json:"explanation"`
	Area               string             `json:"area,omitempty"`
	Topic              string             `json:"topic,omitempty"`
	Subtopic           string             `json:"subtopic,omitempty"`
	CertaintyScore     float64            `json:"certainty_score"`
	SourceURLs         []SourceURL        `json:"source_urls,omitempty"`
	ExplanationHistory []ExplanationEntry `json:"explanation_history,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	LastModified       time.Time          `json:"last_modified"`
	Deleted            bool               `json:"deleted"`

	Version int `json:"-"`
}

// ConceptUpdate carries the partial-field semantics of update_concept: only
// non-nil fields change.
type ConceptUpdate struct {
	Name        *string
	Explanation *string
	Area        *string
	Topic       *string
	Subtopic    *string
	SourceURLs  []SourceURL
}

func (u ConceptUpdate) Empty() bool {
	return u.Name == nil && u.Explanation == nil && u.Area == nil &&
		u.Topic == nil && u.Subtopic == nil && u.SourceURLs == nil
}

// EmbeddingText is the document the vector projection embeds for a concept.
func (c *Concept) EmbeddingText() string {
	return c.Name + "\n\n" + c.Explanation
}
