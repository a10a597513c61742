package retrieval

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/llm"
)

// embedBatchSize is how many documents go into one embeddings request.
const embedBatchSize = 16

// Embedder produces one vector per input, in input order.
type Embedder interface {
	CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)
}

// EmbeddingIndex ranks documents by cosine similarity between the query
// embedding and precomputed document embeddings.
type EmbeddingIndex struct {
	embedder Embedder
	docs     []Document
	vectors  [][]float32
	logger   *zap.Logger
}

// NewEmbeddingIndex embeds docs in batches through pool. Any failed batch
// fails the build.
func NewEmbeddingIndex(ctx context.Context, embedder Embedder, pool *llm.WorkerPool, docs []Document, logger *zap.Logger) (*EmbeddingIndex, error) {
	var items []llm.WorkItem[[][]float32]
	for start := 0; start < len(docs); start += embedBatchSize {
		end := min(start+embedBatchSize, len(docs))
		inputs := make([]string, 0, end-start)
		for _, d := range docs[start:end] {
			inputs = append(inputs, d.Content)
		}
		items = append(items, llm.WorkItem[[][]float32]{
			ID: "batch-" + strconv.Itoa(start/embedBatchSize),
			Execute: func(ctx context.Context) ([][]float32, error) {
				return embedder.CreateEmbeddings(ctx, inputs)
			},
		})
	}

	vectors := make([][]float32, 0, len(docs))
	for _, r := range llm.Process(ctx, pool, items) {
		if r.Err != nil {
			return nil, fmt.Errorf("embed schema documents (%s): %w", r.ID, r.Err)
		}
		vectors = append(vectors, r.Result...)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embed schema documents: got %d vectors for %d documents", len(vectors), len(docs))
	}

	logger.Debug("Embedded schema documents",
		zap.Int("documents", len(docs)),
		zap.Int("batches", len(items)))

	return &EmbeddingIndex{
		embedder: embedder,
		docs:     docs,
		vectors:  vectors,
		logger:   logger,
	}, nil
}

// Search implements Index.
func (idx *EmbeddingIndex) Search(ctx context.Context, query string, k int) ([]Match, error) {
	if len(idx.docs) == 0 {
		return nil, nil
	}

	vecs, err := idx.embedder.CreateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}

	matches := make([]Match, len(idx.docs))
	for i, d := range idx.docs {
		matches[i] = Match{Document: d, Score: cosineSimilarity(vecs[0], idx.vectors[i])}
	}
	return topK(matches, k), nil
}

// Len implements Index.
func (idx *EmbeddingIndex) Len() int { return len(idx.docs) }

// cosineSimilarity returns 0 for mismatched or zero-length vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ Index = (*EmbeddingIndex)(nil)
