package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSkipRewrite(t *testing.T) {
	skip := []string{
		"hi",
		"Hello!",
		"thanks",
		"ok",
		"yo",
		"a?",
		"asdfghjkl",          // vowel-starved mash
		"zxcvbnm qwrtpsdfg",  // still vowel-starved
		"heeeeelp",           // repeated-character run
		"aaaaa",
	}
	for _, q := range skip {
		require.True(t, skipRewrite(q), q)
	}

	keep := []string{
		"what is the tuition refund policy",
		"when does enrollment open for the fall term",
		"summarize the appeals process",
	}
	for _, q := range keep {
		require.False(t, skipRewrite(q), q)
	}
}

func TestLooksGibberish(t *testing.T) {
	require.True(t, looksGibberish("qwrtypsdfghjkl"))
	require.True(t, looksGibberish("noooooooo way"))
	require.False(t, looksGibberish("a perfectly ordinary sentence"))
	require.False(t, looksGibberish("plain text about fees"))
}
