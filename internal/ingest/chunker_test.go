package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// wordCounter makes token budgets exact in tests: one token per word.
func wordCounter(s string) int {
	return len(strings.Fields(s))
}

func TestChunkSingleChunkWhenUnderBudget(t *testing.T) {
	text := "one two three four five\n\nsix seven eight nine ten"
	chunks := Chunk(text, 100, 10, wordCounter)
	require.Equal(t, []string{"one two three four five six seven eight nine ten"}, chunks)
}

func TestChunkFlushesAtTokenCeiling(t *testing.T) {
	text := "one two three four five\n\nsix seven eight nine ten"
	chunks := Chunk(text, 8, 0, wordCounter)
	require.Equal(t, []string{
		"one two three four five",
		"six seven eight nine ten",
	}, chunks)
}

func TestChunkOverlapSeedsNextChunk(t *testing.T) {
	text := "p1a p1b p1c p1d p1e\n\np2a p2b p2c p2d p2e\n\np3a p3b p3c p3d p3e"
	chunks := Chunk(text, 12, 2, wordCounter)
	require.Equal(t, []string{
		"p1a p1b p1c p1d p1e p2a p2b p2c p2d p2e",
		"p2a p2b p2c p2d p2e p3a p3b p3c p3d p3e",
	}, chunks)
}

func TestChunkSentenceFallbackForOversizedParagraph(t *testing.T) {
	para := "alpha beta gamma delta one. epsilon zeta eta theta two. iota kappa lambda mu three."
	chunks := Chunk(para, 8, 0, wordCounter)
	require.Equal(t, []string{
		"alpha beta gamma delta one.",
		"epsilon zeta eta theta two.",
		"iota kappa lambda mu three.",
	}, chunks)
}

func TestChunkOversizedParagraphWithoutSentenceBreaks(t *testing.T) {
	para := strings.TrimSpace(strings.Repeat("word ", 20))
	chunks := Chunk(para, 8, 0, wordCounter)
	require.Len(t, chunks, 1)
	require.Equal(t, para, chunks[0])
}

func TestChunkEmptyInput(t *testing.T) {
	require.Nil(t, Chunk("", 100, 10, wordCounter))
	require.Nil(t, Chunk("   \n\n \t ", 100, 10, wordCounter))
}

func TestChunkDeterministic(t *testing.T) {
	text := strings.Repeat("some prose that repeats itself across paragraphs.\n\n", 10)
	a := Chunk(text, 20, 5, wordCounter)
	b := Chunk(text, 20, 5, wordCounter)
	require.Equal(t, a, b)
	require.NotEmpty(t, a)
}

func TestApproxTokens(t *testing.T) {
	require.Equal(t, 0, ApproxTokens(""))
	require.Equal(t, 0, ApproxTokens("   "))
	require.Equal(t, 1, ApproxTokens("abc"))
	require.Equal(t, 2, ApproxTokens("abcdefgh"))
	require.Equal(t, 25, ApproxTokens(strings.Repeat("a", 100)))
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("First sentence has five words. Second one also has five! Third sentence rounds it out?")
	require.Equal(t, []string{
		"First sentence has five words.",
		"Second one also has five!",
		"Third sentence rounds it out?",
	}, got)
}

func TestSplitSentencesMergesShortFragments(t *testing.T) {
	got := SplitSentences("This is a full sentence. Yes. And another full sentence follows.")
	require.Equal(t, []string{
		"This is a full sentence. Yes.",
		"And another full sentence follows.",
	}, got)
}

func TestSplitSentencesEmpty(t *testing.T) {
	require.Nil(t, SplitSentences(""))
	require.Nil(t, SplitSentences("   "))
}
