package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/knowledge-server/internal/data/graph"
	"github.com/yungbote/knowledge-server/internal/data/repos"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
)

type Repos struct {
	Events repos.EventStore
	Outbox repos.OutboxRepo
	Graph  graph.Store
}

func wireRepos(db *gorm.DB, log *logger.Logger, clients Clients) (Repos, error) {
	log.Info("Wiring repos...")

	graphStore, err := graph.NewStore(clients.Neo4j, log)
	if err != nil {
		return Repos{}, fmt.Errorf("init graph store: %w", err)
	}

	return Repos{
		Events: repos.NewEventStore(db, log),
		Outbox: repos.NewOutboxRepo(db, log),
		Graph:  graphStore,
	}, nil
}
