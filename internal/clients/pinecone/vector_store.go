package pinecone

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/knowledge-server/internal/platform/logger"
)

// Match is a scored hit from a similarity query.
type Match struct {
	ID    string
	Score float64
}

type VectorStore interface {
	Upsert(ctx context.Context, vectors []Vector) error
	Delete(ctx context.Context, ids []string) error
	UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error
	Query(ctx context.Context, q []float32, topK int, filter map[string]any) ([]Match, error)
	VectorCount(ctx context.Context) (int64, error)
}

type vectorStore struct {
	log       *logger.Logger
	pc        Client
	indexName string
	indexHost string
	namespace string
}

func NewVectorStore(log *logger.Logger, pc Client) (VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}

	indexName := strings.TrimSpace(os.Getenv("PINECONE_INDEX_NAME"))
	if indexName == "" {
		return nil, fmt.Errorf("missing PINECONE_INDEX_NAME")
	}

	host := strings.TrimSpace(os.Getenv("PINECONE_INDEX_HOST"))

	namespace := strings.TrimSpace(os.Getenv("PINECONE_NAMESPACE"))
	if namespace == "" {
		namespace = "concepts"
	}

	// If host missing, bootstrap via describe_index (fine for local/dev; avoid in prod).
	if host == "" {
		desc, err := pc.DescribeIndex(context.Background(), indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		if host == "" {
			return nil, fmt.Errorf("pinecone describe_index returned empty host")
		}
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index (avoid this in production)",
			"index_name", indexName,
			"index_host", host,
		)
	}

	return &vectorStore{
		log:       log.With("service", "PineconeVectorStore"),
		pc:        pc,
		indexName: indexName,
		indexHost: host,
		namespace: namespace,
	}, nil
}

func (s *vectorStore) Upsert(ctx context.Context, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	_, err := s.pc.UpsertVectors(ctx, s.indexHost, UpsertRequest{
		Namespace: s.namespace,
		Vectors:   vectors,
	})
	return err
}

func (s *vectorStore) Delete(ctx context.Context, ids []string) error {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) != "" {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return nil
	}
	return s.pc.DeleteVectors(ctx, s.indexHost, DeleteRequest{
		Namespace: s.namespace,
		IDs:       clean,
	})
}

// UpdateMetadata rewrites filterable metadata without re-embedding. Pinecone
// returns success for unknown ids, which keeps the call idempotent.
func (s *vectorStore) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error {
	return s.pc.UpdateVector(ctx, s.indexHost, UpdateRequest{
		ID:          id,
		SetMetadata: metadata,
		Namespace:   s.namespace,
	})
}

func (s *vectorStore) Query(ctx context.Context, q []float32, topK int, filter map[string]any) ([]Match, error) {
	resp, err := s.pc.Query(ctx, s.indexHost, QueryRequest{
		Namespace:       s.namespace,
		Vector:          q,
		TopK:            topK,
		Filter:          filter,
		IncludeValues:   false,
		IncludeMetadata: false,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		out = append(out, Match{ID: m.ID, Score: m.Score})
	}
	return out, nil
}

func (s *vectorStore) VectorCount(ctx context.Context) (int64, error) {
	stats, err := s.pc.DescribeIndexStats(ctx, s.indexHost)
	if err != nil {
		return 0, err
	}
	if ns, ok := stats.Namespaces[s.namespace]; ok {
		return ns.VectorCount, nil
	}
	return 0, nil
}
