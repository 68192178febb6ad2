package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsLowValueShortChunks(t *testing.T) {
	f := DefaultFilterConfig()

	require.True(t, f.IsLowValue(""))
	require.True(t, f.IsLowValue("   \n\t"))
	require.True(t, f.IsLowValue("short chunk"))

	// 79 characters is below the floor; exactly 80 is kept.
	at79 := strings.Repeat("abcde fghi ", 7) + "ab"
	require.Len(t, []rune(at79), 79)
	require.True(t, f.IsLowValue(at79))

	at80 := strings.Repeat("abcde fghi ", 7) + "abc"
	require.Len(t, []rune(at80), 80)
	require.False(t, f.IsLowValue(at80))
}

func TestIsLowValueSymbolHeavyChunks(t *testing.T) {
	f := DefaultFilterConfig()

	numbers := strings.Repeat("12345 67.89 | ", 10)
	require.True(t, f.IsLowValue(numbers))

	prose := "This chunk reads like ordinary prose with plenty of letters and a number 42 in it."
	require.False(t, f.IsLowValue(prose))
}

func TestIsLowValueRepetitiveChunks(t *testing.T) {
	f := DefaultFilterConfig()

	// Long but almost no vocabulary.
	repeated := strings.TrimSpace(strings.Repeat("repeat again ", 30))
	require.Greater(t, len([]rune(repeated)), 300)
	require.True(t, f.IsLowValue(repeated))

	// The same repetition under the 300-character threshold is kept.
	shortRepeat := strings.TrimSpace(strings.Repeat("repeat again ", 8))
	require.LessOrEqual(t, len([]rune(shortRepeat)), 300)
	require.False(t, f.IsLowValue(shortRepeat))
}
