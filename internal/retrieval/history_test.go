package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harmattan-labs/docent/internal/models"
)

func makeHistory(n int) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		out = append(out, models.ChatMessage{Role: role, Content: fmt.Sprintf("message %d", i)})
	}
	return out
}

func TestCompressLeavesShortHistoryAlone(t *testing.T) {
	c := NewHistoryCompressor(stubLLM{out: "unused"}, 10, 6, zap.NewNop())
	history := makeHistory(10)
	require.Equal(t, history, c.Compress(context.Background(), history))
}

func TestCompressSummarizesLongHistory(t *testing.T) {
	c := NewHistoryCompressor(stubLLM{out: "they discussed tuition"}, 10, 6, zap.NewNop())
	history := makeHistory(14)

	got := c.Compress(context.Background(), history)
	require.Len(t, got, 7, "one summary message plus the six-message tail")
	require.Equal(t, "system", got[0].Role)
	require.Contains(t, got[0].Content, "they discussed tuition")
	require.Equal(t, history[8:], got[1:])
}

func TestCompressFallsBackToTruncationOnLLMFailure(t *testing.T) {
	c := NewHistoryCompressor(stubLLM{err: errors.New("model down")}, 10, 6, zap.NewNop())
	history := makeHistory(14)

	got := c.Compress(context.Background(), history)
	require.Equal(t, history[8:], got)
}
