package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/knowledge-server/internal/data/graph"
	"github.com/yungbote/knowledge-server/internal/data/repos"
	types "github.com/yungbote/knowledge-server/internal/domain"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
	"github.com/yungbote/knowledge-server/internal/scoring"
)

// ScoringTrigger schedules an async certainty recompute for a concept. The
// scheduler satisfies it; tests hand in a no-op.
type ScoringTrigger func(conceptID uuid.UUID)

type CreateConceptInput struct {
	Name        string
	Explanation string
	Area        string
	Topic       string
	Subtopic    string
	SourceURLs  []types.SourceURL
}

type ConceptService interface {
	Create(ctx context.Context, in CreateConceptInput) (*types.Concept, error)
	Update(ctx context.Context, id uuid.UUID, upd types.ConceptUpdate) (*types.Concept, error)
	// Delete is idempotent: deleting a deleted concept succeeds without a
	// new event.
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID, includeHistory bool) (*types.Concept, error)

	// Recalculate recomputes certainty from current graph state and appends
	// a recalculation event when the score moved. Runs on the scoring pool.
	Recalculate(ctx context.Context, id uuid.UUID) error
}

type conceptService struct {
	db      *gorm.DB
	log     *logger.Logger
	events  repos.EventStore
	outbox  repos.OutboxRepo
	graph   graph.Store
	trigger ScoringTrigger
}

func NewConceptService(db *gorm.DB, baseLog *logger.Logger, events repos.EventStore, outboxRepo repos.OutboxRepo, graphStore graph.Store, trigger ScoringTrigger) ConceptService {
	if trigger == nil {
		trigger = func(uuid.UUID) {}
	}
	return &conceptService{
		db:      db,
		log:     baseLog.With("service", "ConceptService"),
		events:  events,
		outbox:  outboxRepo,
		graph:   graphStore,
		trigger: trigger,
	}
}

func (s *conceptService) Create(ctx context.Context, in CreateConceptInput) (*types.Concept, error) {
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	if err := validateExplanation(in.Explanation); err != nil {
		return nil, err
	}
	for field, v := range map[string]string{"area": in.Area, "topic": in.Topic, "subtopic": in.Subtopic} {
		if err := validateLabel(field, v); err != nil {
			return nil, err
		}
	}
	if err := validateSourceURLs(in.SourceURLs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	concept := &types.Concept{
		ID:           uuid.New(),
		Name:         in.Name,
		Explanation:  in.Explanation,
		Area:         in.Area,
		Topic:        in.Topic,
		Subtopic:     in.Subtopic,
		SourceURLs:   in.SourceURLs,
		CreatedAt:    now,
		LastModified: now,
	}
	// Baseline score before any relationships exist.
	concept.CertaintyScore = scoring.Score(scoring.ScoreInput{
		ExplanationChars: len(concept.Explanation),
		SourceQualitySum: sourceQualitySum(concept.SourceURLs),
	})

	err := s.appendAndEnqueue(ctx, concept.ID, 0, repos.EventDraft{
		EventType: types.EventConceptCreated,
		Payload:   types.ConceptEventPayload{Concept: *concept},
	}, []string{types.TargetGraph, types.TargetVector})
	if err != nil {
		return nil, err
	}

	concept.Version = 1
	s.trigger(concept.ID)
	s.log.Info("concept created", "concept_id", concept.ID, "name", concept.Name)
	return concept, nil
}

func (s *conceptService) Update(ctx context.Context, id uuid.UUID, upd types.ConceptUpdate) (*types.Concept, error) {
	if upd.Empty() {
		return nil, types.NewValidationError("update", "at least one mutable field is required")
	}
	if upd.Name != nil {
		if err := validateName(*upd.Name); err != nil {
			return nil, err
		}
	}
	if upd.Explanation != nil {
		if err := validateExplanation(*upd.Explanation); err != nil {
			return nil, err
		}
	}
	for field, v := range map[string]*string{"area": upd.Area, "topic": upd.Topic, "subtopic": upd.Subtopic} {
		if v == nil {
			continue
		}
		if err := validateLabel(field, *v); err != nil {
			return nil, err
		}
	}
	if upd.SourceURLs != nil {
		if err := validateSourceURLs(upd.SourceURLs); err != nil {
			return nil, err
		}
	}

	current, err := s.loadConcept(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	var updated []string
	var previousExplanation string
	if upd.Name != nil && *upd.Name != next.Name {
		next.Name = *upd.Name
		updated = append(updated, "name")
	}
	if upd.Explanation != nil && *upd.Explanation != next.Explanation {
		previousExplanation = next.Explanation
		next.ExplanationHistory = append(next.ExplanationHistory, types.ExplanationEntry{
			Explanation: previousExplanation,
			ReplacedAt:  time.Now().UTC(),
		})
		next.Explanation = *upd.Explanation
		updated = append(updated, "explanation")
	}
	if upd.Area != nil && *upd.Area != next.Area {
		next.Area = *upd.Area
		updated = append(updated, "area")
	}
	if upd.Topic != nil && *upd.Topic != next.Topic {
		next.Topic = *upd.Topic
		updated = append(updated, "topic")
	}
	if upd.Subtopic != nil && *upd.Subtopic != next.Subtopic {
		next.Subtopic = *upd.Subtopic
		updated = append(updated, "subtopic")
	}
	if upd.SourceURLs != nil {
		next.SourceURLs = upd.SourceURLs
		updated = append(updated, "source_urls")
	}

	if len(updated) == 0 {
		// Nothing actually changed; no event, state as-is.
		return current, nil
	}
	next.LastModified = time.Now().UTC()

	err = s.appendAndEnqueue(ctx, id, current.Version, repos.EventDraft{
		EventType: types.EventConceptUpdated,
		Payload: types.ConceptEventPayload{
			Concept:             next,
			UpdatedFields:       updated,
			PreviousExplanation: previousExplanation,
		},
	}, []string{types.TargetGraph, types.TargetVector})
	if err != nil {
		return nil, err
	}

	next.Version = current.Version + 1
	s.trigger(id)
	return &next, nil
}

func (s *conceptService) Delete(ctx context.Context, id uuid.UUID) error {
	stream, err := s.events.ReadStream(ctx, nil, id)
	if err != nil {
		return err
	}
	current, err := types.ReplayConcept(stream)
	if err != nil {
		return err
	}
	if current == nil {
		return types.NewNotFoundError("concept", id)
	}
	if current.Deleted {
		return nil
	}

	next := *current
	next.Deleted = true
	next.LastModified = time.Now().UTC()

	err = s.appendAndEnqueue(ctx, id, current.Version, repos.EventDraft{
		EventType: types.EventConceptDeleted,
		Payload:   types.ConceptEventPayload{Concept: next},
	}, []string{types.TargetGraph, types.TargetVector})
	if err != nil {
		return err
	}
	s.log.Info("concept deleted", "concept_id", id)
	return nil
}

func (s *conceptService) Get(ctx context.Context, id uuid.UUID, includeHistory bool) (*types.Concept, error) {
	c, err := s.graph.GetConcept(ctx, id)
	if err != nil {
		return nil, err
	}
	if !includeHistory {
		c.ExplanationHistory = nil
	}
	return c, nil
}

func (s *conceptService) Recalculate(ctx context.Context, id uuid.UUID) error {
	current, err := s.loadConcept(ctx, id)
	if err != nil {
		if _, ok := err.(*types.NotFoundError); ok {
			return nil
		}
		return err
	}

	edges, err := s.graph.FrontierEdges(ctx, []uuid.UUID{id}, types.DirectionBoth, nil)
	if err != nil {
		return fmt.Errorf("load adjacency for %s: %w", id, err)
	}
	var strengthSum float64
	for _, e := range edges {
		strengthSum += e.Strength
	}

	score := scoring.Score(scoring.ScoreInput{
		ExplanationChars:  len(current.Explanation),
		RelationshipCount: len(edges),
		StrengthSum:       strengthSum,
		SourceQualitySum:  sourceQualitySum(current.SourceURLs),
	})
	if score == current.CertaintyScore {
		return nil
	}

	// Recalculation never bumps last_modified; the event carries only the
	// score and the projectors update it in place.
	return s.appendAndEnqueue(ctx, id, current.Version, repos.EventDraft{
		EventType: types.EventCertaintyRecalculated,
		Payload:   types.CertaintyEventPayload{ConceptID: id, Score: score},
	}, []string{types.TargetGraph, types.TargetVector})
}

// loadConcept replays the authoritative stream; deleted and missing both
// surface as NotFoundError.
func (s *conceptService) loadConcept(ctx context.Context, id uuid.UUID) (*types.Concept, error) {
	stream, err := s.events.ReadStream(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	current, err := types.ReplayConcept(stream)
	if err != nil {
		return nil, err
	}
	if current == nil || current.Deleted {
		return nil, types.NewNotFoundError("concept", id)
	}
	return current, nil
}

// appendAndEnqueue commits the event and its outbox entries in one
// transaction, the write-path invariant everything else rests on.
func (s *conceptService) appendAndEnqueue(ctx context.Context, aggregateID uuid.UUID, expectedVersion int, draft repos.EventDraft, targets []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, evts, err := s.events.Append(ctx, tx, aggregateID, types.AggregateConcept, expectedVersion, []repos.EventDraft{draft})
		if err != nil {
			return err
		}
		_, err = s.outbox.Enqueue(ctx, tx, evts[0].ID, targets)
		return err
	})
}

func sourceQualitySum(urls []types.SourceURL) float64 {
	var sum float64
	for _, u := range urls {
		sum += u.QualityScore
	}
	return sum
}
