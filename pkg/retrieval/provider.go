package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-analyst/pkg/llm"
)

// Index modes.
const (
	ModeKeyword   = "keyword"
	ModeEmbedding = "embedding"
)

const contextHeader = "# Relevant Database Schema Information\n\n"

// Config controls how schema context is indexed and served.
type Config struct {
	Mode          string `yaml:"mode" env:"RETRIEVAL_MODE" env-default:"keyword"`
	TopK          int    `yaml:"top_k" env:"RETRIEVAL_TOP_K" env-default:"3"`
	SampleData    bool   `yaml:"sample_data" env:"RETRIEVAL_SAMPLE_DATA" env-default:"true"`
	QueryPatterns bool   `yaml:"query_patterns" env:"RETRIEVAL_QUERY_PATTERNS" env-default:"true"`

	// ColumnStats adds per-table column profiles when the datasource can
	// profile. DistinctValues bounds the values listed per text column.
	ColumnStats    bool `yaml:"column_stats" env:"RETRIEVAL_COLUMN_STATS" env-default:"true"`
	DistinctValues int  `yaml:"distinct_values" env:"RETRIEVAL_DISTINCT_VALUES" env-default:"10"`
}

// DefaultConfig returns keyword retrieval of the top 3 documents.
func DefaultConfig() Config {
	return Config{Mode: ModeKeyword, TopK: 3, SampleData: true, QueryPatterns: true, ColumnStats: true, DistinctValues: 10}
}

// Provider serves schema context for a query. The index is built lazily on
// first use and rebuilt by Refresh.
type Provider struct {
	config   Config
	catalog  *datasource.SchemaCatalog
	executor datasource.QueryExecutor
	embedder Embedder
	pool     *llm.WorkerPool
	logger   *zap.Logger

	mu    sync.Mutex
	index Index
}

// NewProvider wires a provider. embedder and pool are only needed for
// embedding mode; executor only when sample data or column stats are
// enabled. Column stats also require the executor to be a
// datasource.ColumnProfiler.
func NewProvider(cfg Config, catalog *datasource.SchemaCatalog, executor datasource.QueryExecutor, embedder Embedder, pool *llm.WorkerPool, logger *zap.Logger) *Provider {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	return &Provider{
		config:   cfg,
		catalog:  catalog,
		executor: executor,
		embedder: embedder,
		pool:     pool,
		logger:   logger.Named("retrieval"),
	}
}

// Retrieve returns the top documents for query under a header, separated by
// "---" lines. No matches yields an empty string.
func (p *Provider) Retrieve(ctx context.Context, query string) (string, error) {
	index, err := p.ensureIndex(ctx)
	if err != nil {
		return "", err
	}

	matches, err := index.Search(ctx, query, p.config.TopK)
	if err != nil {
		return "", fmt.Errorf("search schema index: %w", err)
	}
	if len(matches) == 0 {
		return "", nil
	}

	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = strings.TrimRight(m.Document.Content, "\n")
	}
	return contextHeader + strings.Join(parts, "\n---\n"), nil
}

// Refresh reloads the schema and rebuilds the index.
func (p *Provider) Refresh(ctx context.Context) error {
	if err := p.catalog.Refresh(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.index = nil
	_, err := p.buildLocked(ctx)
	return err
}

func (p *Provider) ensureIndex(ctx context.Context) (Index, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.index != nil {
		return p.index, nil
	}
	return p.buildLocked(ctx)
}

func (p *Provider) buildLocked(ctx context.Context) (Index, error) {
	tables, err := p.catalog.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	docs := BuildDocuments(tables)
	if p.config.SampleData && p.executor != nil {
		docs = append(docs, SampleDocuments(ctx, p.executor, tables, p.logger)...)
	}
	if profiler, ok := p.executor.(datasource.ColumnProfiler); ok && p.config.ColumnStats {
		docs = append(docs, ColumnStatsDocuments(ctx, profiler, tables, p.config.DistinctValues, p.logger)...)
	}
	if p.config.QueryPatterns {
		docs = append(docs, QueryPatternsDocument())
	}

	index, err := p.newIndex(ctx, docs)
	if err != nil {
		return nil, err
	}

	p.index = index
	p.logger.Info("Schema index built",
		zap.String("mode", p.config.Mode),
		zap.Int("documents", index.Len()),
		zap.Strings("tables", tableNames(docs)))
	return index, nil
}

// newIndex falls back to keywords when the provider cannot embed.
func (p *Provider) newIndex(ctx context.Context, docs []Document) (Index, error) {
	if p.config.Mode != ModeEmbedding {
		return NewKeywordIndex(docs), nil
	}
	if p.embedder == nil || p.pool == nil {
		p.logger.Warn("Embedding retrieval requested without an embedder; using keyword index")
		return NewKeywordIndex(docs), nil
	}

	index, err := NewEmbeddingIndex(ctx, p.embedder, p.pool, docs, p.logger)
	if errors.Is(err, llm.ErrEmbeddingsUnsupported) {
		p.logger.Warn("LLM provider has no embeddings; using keyword index")
		return NewKeywordIndex(docs), nil
	}
	if err != nil {
		return nil, err
	}
	return index, nil
}
