package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harmattan-labs/docent/internal/core"
)

func TestLLMRerankerOrdersByScore(t *testing.T) {
	llm := stubLLM{out: "1 2\n2 9\n3 5"}
	r := NewLLMReranker(llm, zap.NewNop())

	docs := []core.ScoredDocument{
		doc("first", "f.pdf", 1, 0.9),
		doc("second", "f.pdf", 2, 0.8),
		doc("third", "f.pdf", 3, 0.7),
	}
	got, err := r.Rerank(context.Background(), "question", docs)
	require.NoError(t, err)
	require.Equal(t, "second", got[0].Text)
	require.Equal(t, "third", got[1].Text)
	require.Equal(t, "first", got[2].Text)
}

func TestLLMRerankerSkipsUnparseableLines(t *testing.T) {
	llm := stubLLM{out: "here are the scores:\n1. 3\nnot a score\n2 8"}
	r := NewLLMReranker(llm, zap.NewNop())

	docs := []core.ScoredDocument{
		doc("first", "f.pdf", 1, 0.9),
		doc("second", "f.pdf", 2, 0.8),
	}
	got, err := r.Rerank(context.Background(), "question", docs)
	require.NoError(t, err)
	require.Equal(t, "second", got[0].Text)
	require.Equal(t, "first", got[1].Text)
}

func TestParseScoresIgnoresOutOfRangeIndexes(t *testing.T) {
	scores := parseScores("0 9\n7 9\n2 4", 3)
	require.Equal(t, []float64{0, 4, 0}, scores)
}
