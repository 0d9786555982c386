package domain

import (
	"encoding/json"
	"fmt"
)

// ReplayConcept folds an ordered event stream into current concept state.
// Returns nil when the stream is empty. Snapshot-carrying payloads make this
// a last-writer fold; certainty recalculations only touch the score.
func ReplayConcept(events []Event) (*Concept, error) {
	var state *Concept
	for i := range events {
		ev := &events[i]
		switch ev.EventType {
		case EventConceptCreated, EventConceptUpdated, EventConceptDeleted:
			var p ConceptEventPayload
			if err := json.Unmarshal(ev.Payload, &p); err != nil {
				return nil, fmt.Errorf("decode %s payload for %s: %w", ev.EventType, ev.AggregateID, err)
			}
			c := p.Concept
			state = &c
		case EventCertaintyRecalculated:
			if state == nil {
				return nil, fmt.Errorf("certainty event before creation on %s", ev.AggregateID)
			}
			var p CertaintyEventPayload
			if err := json.Unmarshal(ev.Payload, &p); err != nil {
				return nil, fmt.Errorf("decode certainty payload for %s: %w", ev.AggregateID, err)
			}
			state.CertaintyScore = p.Score
		default:
			return nil, fmt.Errorf("unexpected event type %s on concept stream %s", ev.EventType, ev.AggregateID)
		}
		state.Version = ev.Version
	}
	return state, nil
}

// ReplayRelationship folds an ordered event stream into current edge state.
func ReplayRelationship(events []Event) (*Relationship, error) {
	var state *Relationship
	for i := range events {
		ev := &events[i]
		switch ev.EventType {
		case EventRelationshipCreated, EventRelationshipDeleted:
			var p RelationshipEventPayload
			if err := json.Unmarshal(ev.Payload, &p); err != nil {
				return nil, fmt.Errorf("decode %s payload for %s: %w", ev.EventType, ev.AggregateID, err)
			}
			r := p.Relationship
			state = &r
		default:
			return nil, fmt.Errorf("unexpected event type %s on relationship stream %s", ev.EventType, ev.AggregateID)
		}
		state.Version = ev.Version
	}
	return state, nil
}
