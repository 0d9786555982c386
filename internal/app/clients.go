package app

import (
	"fmt"
	"os"
	"time"

	"github.com/yungbote/knowledge-server/internal/clients/openai"
	"github.com/yungbote/knowledge-server/internal/clients/pinecone"
	"github.com/yungbote/knowledge-server/internal/clients/redis"
	"github.com/yungbote/knowledge-server/internal/platform/logger"
	"github.com/yungbote/knowledge-server/internal/platform/neo4jdb"
	"github.com/yungbote/knowledge-server/internal/utils"
)

type Clients struct {
	Neo4j    *neo4jdb.Client
	Embedder openai.Client
	Vectors  pinecone.VectorStore
	Cache    redis.Cache
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}

	embedder, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	pc, err := pinecone.New(log, pinecone.Config{
		APIKey:     os.Getenv("PINECONE_API_KEY"),
		APIVersion: utils.GetEnv("PINECONE_API_VERSION", "", log),
		BaseURL:    utils.GetEnv("PINECONE_BASE_URL", "", log),
		Timeout:    time.Duration(utils.GetEnvAsInt("PINECONE_TIMEOUT_SECONDS", 30, log)) * time.Second,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init pinecone client: %w", err)
	}
	vectors, err := pinecone.NewVectorStore(log, pc)
	if err != nil {
		return Clients{}, fmt.Errorf("init vector store: %w", err)
	}

	cache, err := redis.NewCache(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init cache: %w", err)
	}

	return Clients{
		Neo4j:    neo,
		Embedder: embedder,
		Vectors:  vectors,
		Cache:    cache,
	}, nil
}
