package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	RelPrerequisite = "prerequisite"
	RelRelatesTo    = "relates_to"
	RelIncludes     = "includes"
	RelContains     = "contains"
)

// RelationshipTypes is the closed set of edge types. Extending it is a
// schema change, not a runtime concern.
var RelationshipTypes = map[string]bool{
	RelPrerequisite: true,
	RelRelatesTo:    true,
	RelIncludes:     true,
	RelContains:     true,
}

func RelationshipTypeList() []string {
	out := make([]string, 0, len(RelationshipTypes))
	for t := range RelationshipTypes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

const (
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
	DirectionBoth     = "both"
)

var Directions = map[string]bool{
	DirectionOutgoing: true,
	DirectionIncoming: true,
	DirectionBoth:     true,
}

func DirectionList() []string {
	return []string{DirectionBoth, DirectionIncoming, DirectionOutgoing}
}

// Relationship is the event-sourced aggregate state for one directed edge.
// The aggregate id is deterministic in (source, target, type) so that a
// delete/recreate cycle shares one versioned stream.
type Relationship struct {
	ID        uuid.UUID `json:"id"`
	SourceID  uuid.UUID `json:"source_id"`
	TargetID  uuid.UUID `json:"target_id"`
	Type      string    `json:"relationship_type"`
	Strength  float64   `json:"strength"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Deleted   bool      `json:"deleted"`

	Version int `json:"-"`
}

var relationshipNamespace = uuid.MustParse("9f1c6f2e-58a4-4f7b-b6d3-2f4a8c1e7d05")

func RelationshipAggregateID(sourceID, targetID uuid.UUID, relType string) uuid.UUID {
	key := sourceID.String() + "|" + targetID.String() + "|" + relType
	return uuid.NewSHA1(relationshipNamespace, []byte(key))
}
