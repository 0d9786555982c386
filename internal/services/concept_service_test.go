package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/knowledge-server/internal/data/graph"
	"github.com/yungbote/knowledge-server/internal/data/repos"
	"github.com/yungbote/knowledge-server/internal/data/repos/testutil"
	types "github.com/yungbote/knowledge-server/internal/domain"
)

func newConceptService(t *testing.T, fg *fakeGraph) (ConceptService, repos.EventStore) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	events := repos.NewEventStore(db, log)
	outbox := repos.NewOutboxRepo(db, log)
	return NewConceptService(db, log, events, outbox, fg, nil), events
}

func createConcept(t *testing.T, svc ConceptService, name string) *types.Concept {
	t.Helper()
	c, err := svc.Create(context.Background(), CreateConceptInput{
		Name:        name,
		Explanation: "An explanation long enough to count for something.",
		Area:        "Mathematics",
		Topic:       "Algebra",
		Subtopic:    "Groups",
		SourceURLs: []types.SourceURL{
			{URL: "https://example.org/groups", QualityScore: 0.8},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return c
}

func TestConceptCreateAppendsEvent(t *testing.T) {
	svc, events := newConceptService(t, newFakeGraph())

	c := createConcept(t, svc, "Group theory basics")
	if c.Version != 1 {
		t.Fatalf("expected version 1, got %d", c.Version)
	}
	if c.CertaintyScore <= 0 || c.CertaintyScore > 100 {
		t.Fatalf("baseline score out of range: %v", c.CertaintyScore)
	}

	stream, err := events.ReadStream(context.Background(), nil, c.ID)
	if err != nil {
		t.Fatalf("ReadStream: %v", err)
	}
	if len(stream) != 1 || stream[0].EventType != types.EventConceptCreated {
		t.Fatalf("unexpected stream: %+v", stream)
	}

	replayed, err := types.ReplayConcept(stream)
	if err != nil {
		t.Fatalf("ReplayConcept: %v", err)
	}
	if replayed.Name != c.Name || replayed.Area != "Mathematics" {
		t.Fatalf("replayed concept mismatch: %+v", replayed)
	}
}

func TestConceptCreateValidation(t *testing.T) {
	svc, _ := newConceptService(t, newFakeGraph())
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateConceptInput
	}{
		{"blank name", CreateConceptInput{Explanation: "x", Area: "a", Topic: "t", Subtopic: "s"}},
		{"name too long", CreateConceptInput{Name: strings.Repeat("n", types.NameMaxLen+1), Explanation: "x", Area: "a", Topic: "t", Subtopic: "s"}},
		{"blank explanation", CreateConceptInput{Name: "n", Area: "a", Topic: "t", Subtopic: "s"}},
		{"area too long", CreateConceptInput{Name: "n", Explanation: "x", Area: strings.Repeat("a", types.LabelMaxLen+1), Topic: "t", Subtopic: "s"}},
		{"bad quality score", CreateConceptInput{Name: "n", Explanation: "x", Area: "a", Topic: "t", Subtopic: "s",
			SourceURLs: []types.SourceURL{{URL: "https://example.org", QualityScore: 1.5}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.in)
			var verr *types.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestConceptUpdateTracksExplanationHistory(t *testing.T) {
	svc, events := newConceptService(t, newFakeGraph())
	ctx := context.Background()

	c := createConcept(t, svc, "History tracking")
	original := c.Explanation

	revised := "A revised explanation with considerably more detail."
	updated, err := svc.Update(ctx, c.ID, types.ConceptUpdate{Explanation: &revised})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}
	if updated.Explanation != revised {
		t.Fatalf("explanation not applied: %q", updated.Explanation)
	}
	if len(updated.ExplanationHistory) != 1 || updated.ExplanationHistory[0].Explanation != original {
		t.Fatalf("expected prior explanation in history, got %+v", updated.ExplanationHistory)
	}

	stream, err := events.ReadStream(ctx, nil, c.ID)
	if err != nil {
		t.Fatalf("ReadStream: %v", err)
	}
	last := stream[len(stream)-1]
	if last.EventType != types.EventConceptUpdated {
		t.Fatalf("expected concept.updated, got %s", last.EventType)
	}
}

func TestConceptUpdateNoChangeAppendsNothing(t *testing.T) {
	svc, events := newConceptService(t, newFakeGraph())
	ctx := context.Background()

	c := createConcept(t, svc, "No-op update")
	same := c.Name
	out, err := svc.Update(ctx, c.ID, types.ConceptUpdate{Name: &same})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if out.Version != 1 {
		t.Fatalf("expected version unchanged at 1, got %d", out.Version)
	}

	stream, err := events.ReadStream(ctx, nil, c.ID)
	if err != nil {
		t.Fatalf("ReadStream: %v", err)
	}
	if len(stream) != 1 {
		t.Fatalf("expected only the create event, got %d", len(stream))
	}
}

func TestConceptUpdateEmptyRejected(t *testing.T) {
	svc, _ := newConceptService(t, newFakeGraph())
	_, err := svc.Update(context.Background(), uuid.New(), types.ConceptUpdate{})
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestConceptUpdateMissingConcept(t *testing.T) {
	svc, _ := newConceptService(t, newFakeGraph())
	name := "anything"
	_, err := svc.Update(context.Background(), uuid.New(), types.ConceptUpdate{Name: &name})
	var nf *types.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestConceptDeleteIdempotent(t *testing.T) {
	svc, events := newConceptService(t, newFakeGraph())
	ctx := context.Background()

	c := createConcept(t, svc, "To be deleted")
	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// Second delete succeeds without another event.
	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("repeat Delete: %v", err)
	}

	stream, err := events.ReadStream(ctx, nil, c.ID)
	if err != nil {
		t.Fatalf("ReadStream: %v", err)
	}
	if len(stream) != 2 {
		t.Fatalf("expected create+delete only, got %d events", len(stream))
	}

	replayed, err := types.ReplayConcept(stream)
	if err != nil {
		t.Fatalf("ReplayConcept: %v", err)
	}
	if !replayed.Deleted {
		t.Fatal("expected replayed concept marked deleted")
	}
}

func TestConceptDeleteMissing(t *testing.T) {
	svc, _ := newConceptService(t, newFakeGraph())
	err := svc.Delete(context.Background(), uuid.New())
	var nf *types.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestConceptGetStripsHistory(t *testing.T) {
	fg := newFakeGraph()
	svc, _ := newConceptService(t, fg)
	ctx := context.Background()

	id := uuid.New()
	fg.put(&types.Concept{
		ID:          id,
		Name:        "With history",
		Explanation: "current",
		ExplanationHistory: []types.ExplanationEntry{
			{Explanation: "older"},
		},
	})

	got, err := svc.Get(ctx, id, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ExplanationHistory != nil {
		t.Fatalf("expected history stripped, got %+v", got.ExplanationHistory)
	}

	got, err = svc.Get(ctx, id, true)
	if err != nil {
		t.Fatalf("Get with history: %v", err)
	}
	if len(got.ExplanationHistory) != 1 {
		t.Fatalf("expected history preserved, got %+v", got.ExplanationHistory)
	}
}

func TestConceptRecalculateMonotoneWithEdges(t *testing.T) {
	fg := newFakeGraph()
	svc, events := newConceptService(t, fg)
	ctx := context.Background()

	c := createConcept(t, svc, "Recalculated concept")
	before := c.CertaintyScore

	fg.edges = append(fg.edges,
		edgeFor(c.ID, uuid.New(), types.RelPrerequisite, 0.9),
		edgeFor(uuid.New(), c.ID, types.RelRelatesTo, 0.7),
	)

	if err := svc.Recalculate(ctx, c.ID); err != nil {
		t.Fatalf("Recalculate: %v", err)
	}

	stream, err := events.ReadStream(ctx, nil, c.ID)
	if err != nil {
		t.Fatalf("ReadStream: %v", err)
	}
	last := stream[len(stream)-1]
	if last.EventType != types.EventCertaintyRecalculated {
		t.Fatalf("expected certainty event, got %s", last.EventType)
	}

	replayed, err := types.ReplayConcept(stream)
	if err != nil {
		t.Fatalf("ReplayConcept: %v", err)
	}
	if replayed.CertaintyScore <= before {
		t.Fatalf("score should rise with relationships: before=%v after=%v", before, replayed.CertaintyScore)
	}
	if !replayed.LastModified.Equal(c.LastModified) {
		t.Fatalf("recalculation must not bump last_modified: %v vs %v", replayed.LastModified, c.LastModified)
	}
}

func TestConceptRecalculateMissingIsNoop(t *testing.T) {
	svc, _ := newConceptService(t, newFakeGraph())
	if err := svc.Recalculate(context.Background(), uuid.New()); err != nil {
		t.Fatalf("expected nil for vanished concept, got %v", err)
	}
}

func edgeFor(source, target uuid.UUID, relType string, strength float64) graph.Edge {
	return graph.Edge{SourceID: source, TargetID: target, Type: relType, Strength: strength}
}
