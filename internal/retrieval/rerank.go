package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/harmattan-labs/docent/internal/core"
)

const rerankPrompt = "You score passages for relevance to a question. " +
	"For each numbered passage, output one line: the passage number, a space, " +
	"and a relevance score from 0 to 10. Output nothing else."

// LLMReranker rescores candidates with a generation call, one batch per
// query. It is a cheap stand-in for a cross-encoder: useful when the
// embedding space ranks near-duplicates above the actually relevant chunk.
type LLMReranker struct {
	llm core.LLMProvider
	log *zap.Logger
}

func NewLLMReranker(llm core.LLMProvider, log *zap.Logger) *LLMReranker {
	return &LLMReranker{llm: llm, log: log}
}

func (r *LLMReranker) Rerank(ctx context.Context, query string, docs []core.ScoredDocument) ([]core.ScoredDocument, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\n", query)
	for i, d := range docs {
		fmt.Fprintf(&sb, "Passage %d:\n%s\n\n", i+1, d.Text)
	}

	out, err := r.llm.Generate(ctx, rerankPrompt, sb.String())
	if err != nil {
		return nil, fmt.Errorf("rerank call: %w", err)
	}

	scores := parseScores(out, len(docs))
	type scoredDoc struct {
		doc   core.ScoredDocument
		score float64
	}
	items := make([]scoredDoc, len(docs))
	for i := range docs {
		items[i] = scoredDoc{doc: docs[i], score: scores[i]}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })

	reranked := make([]core.ScoredDocument, len(items))
	for i, it := range items {
		reranked[i] = it.doc
	}
	return reranked, nil
}

// parseScores reads "n score" lines; passages the model skipped keep a zero
// score and sink to the bottom.
func parseScores(out string, n int) []float64 {
	scores := make([]float64, n)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSuffix(fields[0], "."))
		if err != nil || idx < 1 || idx > n {
			continue
		}
		score, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		scores[idx-1] = score
	}
	return scores
}
