package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkIDDeterministic(t *testing.T) {
	a := ChunkID("report.pdf", 3, 0, "some chunk text")
	b := ChunkID("report.pdf", 3, 0, "some chunk text")
	require.Equal(t, a, b)
	require.Len(t, a, 64) // sha-256 hex
}

func TestChunkIDSensitiveToEveryField(t *testing.T) {
	base := ChunkID("report.pdf", 3, 0, "some chunk text")
	require.NotEqual(t, base, ChunkID("other.pdf", 3, 0, "some chunk text"))
	require.NotEqual(t, base, ChunkID("report.pdf", 4, 0, "some chunk text"))
	require.NotEqual(t, base, ChunkID("report.pdf", 3, 1, "some chunk text"))
	require.NotEqual(t, base, ChunkID("report.pdf", 3, 0, "different text"))
}

func TestChunkIDPagelessDocuments(t *testing.T) {
	a := ChunkID("notes.txt", NoPage, 0, "text")
	b := ChunkID("notes.txt", NoPage, 0, "text")
	require.Equal(t, a, b)
	require.NotEqual(t, a, ChunkID("notes.txt", 0, 0, "text"))
}
