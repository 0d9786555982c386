package app

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/knowledge-server/internal/outbox"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
	"github.com/yungbote/knowledge-server/internal/projection"
	"github.com/yungbote/knowledge-server/internal/scoring"
	"github.com/yungbote/knowledge-server/internal/services"
)

type Services struct {
	Concepts      services.ConceptService
	Relationships services.RelationshipService
	Queries       services.QueryService
	Scheduler     *scoring.Scheduler
	Dispatcher    *outbox.Dispatcher
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) Services {
	log.Info("Wiring services...")

	// The scheduler and the concept service reference each other, so the
	// trigger closes over a variable bound after both exist.
	var scheduler *scoring.Scheduler
	trigger := func(conceptID uuid.UUID) {
		if scheduler != nil {
			scheduler.Trigger(conceptID)
		}
	}

	concepts := services.NewConceptService(db, log, reposet.Events, reposet.Outbox, reposet.Graph, trigger)
	scheduler = scoring.NewScheduler(log, concepts.Recalculate, cfg.ScoringQueueSize, cfg.ScoringWorkers, cfg.ScoringBudget)

	rels := services.NewRelationshipService(db, log, reposet.Events, reposet.Outbox, trigger)

	queries := services.NewQueryService(
		log,
		reposet.Graph,
		clients.Vectors,
		clients.Embedder,
		reposet.Events,
		reposet.Outbox,
		clients.Cache,
		scheduler,
		cfg.QueryBudget,
	)

	dispatcher := outbox.NewDispatcher(log, reposet.Outbox, reposet.Events, []projection.Projector{
		projection.NewGraphProjector(reposet.Graph, log),
		projection.NewVectorProjector(clients.Embedder, clients.Vectors, log),
	}, cfg.Dispatcher)

	return Services{
		Concepts:      concepts,
		Relationships: rels,
		Queries:       queries,
		Scheduler:     scheduler,
		Dispatcher:    dispatcher,
	}
}
