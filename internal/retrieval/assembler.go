package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/harmattan-labs/docent/internal/core"
)

// Options tunes the query-time pipeline.
type Options struct {
	TopK           int
	FinalN         int
	RewriteEnabled bool
	RerankEnabled  bool
}

func DefaultOptions() Options {
	return Options{TopK: 20, FinalN: 10}
}

// Reranker rescores a candidate set against the query, most relevant first.
// The default deployment runs without one; similarity order stands.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []core.ScoredDocument) ([]core.ScoredDocument, error)
}

// Assembler turns a user query into the ordered document set that goes into
// the prompt: optional query rewrite, similarity search (fanned out over the
// original and rewritten query), exact-text dedupe, optional rerank, then a
// cut to the final top N.
type Assembler struct {
	store    core.VectorStore
	embedder core.EmbeddingProvider
	llm      core.LLMProvider
	reranker Reranker // nil unless reranking is enabled
	opts     Options
	log      *zap.Logger
}

func NewAssembler(store core.VectorStore, embedder core.EmbeddingProvider, llm core.LLMProvider, reranker Reranker, opts Options, log *zap.Logger) *Assembler {
	return &Assembler{
		store:    store,
		embedder: embedder,
		llm:      llm,
		reranker: reranker,
		opts:     opts,
		log:      log,
	}
}

func (a *Assembler) Retrieve(ctx context.Context, index, query string) ([]core.ScoredDocument, error) {
	queries := []string{query}
	if a.opts.RewriteEnabled && !skipRewrite(query) {
		if rewritten := a.rewriteQuery(ctx, query); rewritten != "" && rewritten != query {
			queries = append(queries, rewritten)
		}
	}

	var combined []core.ScoredDocument
	seen := make(map[string]struct{})
	for _, q := range queries {
		vec, err := a.embedder.EmbedQuery(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		hits, err := a.store.Query(ctx, index, vec, a.opts.TopK, nil)
		if err != nil {
			return nil, fmt.Errorf("similarity search: %w", err)
		}
		for _, h := range hits {
			if _, dup := seen[h.Text]; dup {
				continue
			}
			seen[h.Text] = struct{}{}
			combined = append(combined, h)
		}
	}

	if a.opts.RerankEnabled && a.reranker != nil && len(combined) > 1 {
		reranked, err := a.reranker.Rerank(ctx, query, combined)
		if err != nil {
			// Similarity order is still a usable answer.
			a.log.Warn("rerank failed, keeping similarity order", zap.Error(err))
		} else {
			combined = reranked
		}
	}

	if a.opts.FinalN > 0 && len(combined) > a.opts.FinalN {
		combined = combined[:a.opts.FinalN]
	}
	return combined, nil
}

const rewritePrompt = "Rewrite the user's question as a standalone, specific search query " +
	"for a document index. Return only the rewritten query, nothing else."

// rewriteQuery is best effort: a failed rewrite falls back to the original.
func (a *Assembler) rewriteQuery(ctx context.Context, query string) string {
	out, err := a.llm.Generate(ctx, rewritePrompt, query)
	if err != nil {
		a.log.Warn("query rewrite failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(out)
}

// RenderContext formats retrieved documents for prompt assembly, one block
// per document with its citation line.
func RenderContext(docs []core.ScoredDocument) string {
	blocks := make([]string, 0, len(docs))
	for _, d := range docs {
		header := fmt.Sprintf("Source: %s", d.Metadata.Source)
		if d.Metadata.Page >= 0 {
			header = fmt.Sprintf("Source: %s (Page %d)", d.Metadata.Source, d.Metadata.Page)
		}
		blocks = append(blocks, header+":\n"+d.Text)
	}
	return strings.Join(blocks, "\n---\n")
}
