package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AggregateConcept      = "concept"
	AggregateRelationship = "relationship"
)

const (
	EventConceptCreated        = "concept.created"
	EventConceptUpdated        = "concept.updated"
	EventConceptDeleted        = "concept.deleted"
	EventCertaintyRecalculated = "concept.certainty_recalculated"
	EventRelationshipCreated   = "relationship.created"
	EventRelationshipDeleted   = "relationship.deleted"
)

// Event is one row of the append-only log. The unique (aggregate_id,
// version) index is what turns a lost optimistic-concurrency race into a
// ConflictError instead of a silent overwrite.
type Event struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AggregateID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_event_stream,unique,priority:1" json:"aggregate_id"`
	AggregateType string         `gorm:"column:aggregate_type;not null;index" json:"aggregate_type"`
	EventType     string         `gorm:"column:event_type;not null;index" json:"event_type"`
	Version       int            `gorm:"not null;index:idx_event_stream,unique,priority:2" json:"version"`
	Payload       datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Event) TableName() string { return "event_log" }

// ConceptEventPayload carries the full post-mutation snapshot so projectors
// can apply it as a pure upsert without reading any other store.
type ConceptEventPayload struct {
	Concept             Concept  `json:"concept"`
	UpdatedFields       []string `json:"updated_fields,omitempty"`
	PreviousExplanation string   `json:"previous_explanation,omitempty"`
}

type RelationshipEventPayload struct {
	Relationship Relationship `json:"relationship"`
}

type CertaintyEventPayload struct {
	ConceptID uuid.UUID `json:"concept_id"`
	Score     float64   `json:"score"`
}

const (
	TargetGraph  = "graph"
	TargetVector = "vector"
)

const (
	OutboxPending   = "pending"
	OutboxCompleted = "completed"
	OutboxFailed    = "failed"
)

// OutboxEntry is one unit of pending projection work, enqueued in the same
// transaction as its event.
type OutboxEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID       uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	Target        string    `gorm:"not null" json:"target"`
	Status        string    `gorm:"not null;default:'pending';index:idx_outbox_due,priority:1" json:"status"`
	Attempts      int       `gorm:"not null;default:0" json:"attempts"`
	LastError     string    `gorm:"type:text" json:"last_error,omitempty"`
	NextAttemptAt time.Time `gorm:"not null;index:idx_outbox_due,priority:2" json:"next_attempt_at"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (OutboxEntry) TableName() string { return "outbox" }
