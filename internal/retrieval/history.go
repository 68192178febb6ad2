package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/harmattan-labs/docent/internal/core"
	"github.com/harmattan-labs/docent/internal/models"
)

// HistoryCompressor keeps long conversations inside the prompt budget by
// summarizing everything but the most recent turns.
type HistoryCompressor struct {
	llm      core.LLMProvider
	maxLen   int // compress once history exceeds this many messages
	keepTail int // recent messages kept verbatim
	log      *zap.Logger
}

func NewHistoryCompressor(llm core.LLMProvider, maxLen, keepTail int, log *zap.Logger) *HistoryCompressor {
	return &HistoryCompressor{llm: llm, maxLen: maxLen, keepTail: keepTail, log: log}
}

const summarizePrompt = "Summarize this conversation so far in a few sentences. " +
	"Keep the user's goals, any facts established, and open questions. Be concise."

// Compress returns the history unchanged while it fits, otherwise a
// one-message summary of the older turns followed by the verbatim tail. A
// failed summarization call falls back to truncation: the tail alone is
// still a coherent prompt, a hard failure here would block the chat.
func (c *HistoryCompressor) Compress(ctx context.Context, history []models.ChatMessage) []models.ChatMessage {
	if len(history) <= c.maxLen {
		return history
	}

	head := history[:len(history)-c.keepTail]
	tail := history[len(history)-c.keepTail:]

	summary, err := c.llm.Generate(ctx, summarizePrompt, renderHistory(head))
	if err != nil {
		c.log.Warn("history summarization failed, truncating instead",
			zap.Int("dropped", len(head)), zap.Error(err))
		return tail
	}

	out := make([]models.ChatMessage, 0, len(tail)+1)
	out = append(out, models.ChatMessage{
		Role:    "system",
		Content: "Summary of the earlier conversation: " + strings.TrimSpace(summary),
	})
	return append(out, tail...)
}

func renderHistory(msgs []models.ChatMessage) string {
	var sb strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	return sb.String()
}
