package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harmattan-labs/docent/internal/core"
)

// memoryStore is an in-memory VectorStore keyed by chunk id.
type memoryStore struct {
	indexes   map[string]int // name -> dimension
	docs      map[string]core.ChunkDocument
	upserts   int
	lastBatch int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		indexes: map[string]int{},
		docs:    map[string]core.ChunkDocument{},
	}
}

func (m *memoryStore) EnsureIndex(_ context.Context, name string, dimension int) error {
	if _, ok := m.indexes[name]; !ok {
		m.indexes[name] = dimension
	}
	return nil
}

func (m *memoryStore) Upsert(ctx context.Context, _ string, docs []core.ChunkDocument, embed core.EmbedFunc) error {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	if _, err := embed(ctx, texts); err != nil {
		return err
	}
	for _, d := range docs {
		m.docs[d.Metadata.ChunkID] = d
	}
	m.upserts++
	m.lastBatch = len(docs)
	return nil
}

func (m *memoryStore) Query(context.Context, string, []float32, int, map[string]string) ([]core.ScoredDocument, error) {
	return nil, nil
}

func (m *memoryStore) Delete(context.Context, string, map[string]string) error {
	return nil
}

func (m *memoryStore) ListIndexes(context.Context) ([]string, error) {
	names := make([]string, 0, len(m.indexes))
	for n := range m.indexes {
		names = append(names, n)
	}
	return names, nil
}

type fixedEmbedder struct{ dim int }

func (f fixedEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}

func (f fixedEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return make([]float32, f.dim), nil
}

func newTestWriter(store *memoryStore, opts Options) *IndexWriter {
	w := NewIndexWriter(store, fixedEmbedder{dim: 3}, &ExtractorSet{Plain: NewPlainExtractor()}, opts, zap.NewNop())
	w.pause = func(time.Duration) {}
	return w
}

func writeDataFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const testProse = "The first paragraph explains the enrollment policy in reasonable detail for new students.\n\n" +
	"The second paragraph covers tuition payment deadlines and the available installment plans.\n\n" +
	"The third paragraph describes the appeals process for disputed administrative decisions."

func TestBuildIngestsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "policies.txt", testProse)
	writeDataFile(t, dir, "ignored.png", "binary junk")

	store := newMemoryStore()
	w := newTestWriter(store, DefaultOptions())

	require.NoError(t, w.Build(context.Background(), dir, "campus"))

	require.Equal(t, 3, store.indexes["campus"], "dimension probed from the embedder")
	require.Len(t, store.docs, 1, "three short paragraphs pack into one chunk")
	for _, d := range store.docs {
		require.Equal(t, "policies.txt", d.Metadata.Source)
		require.Equal(t, NoPage, d.Metadata.Page)
		require.Equal(t, "txt", d.Metadata.Type)
		require.Equal(t, 0, d.Metadata.ChunkIndex)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "policies.txt", testProse)

	store := newMemoryStore()
	w := newTestWriter(store, DefaultOptions())

	require.NoError(t, w.Build(context.Background(), dir, "campus"))
	first := len(store.docs)

	require.NoError(t, w.Build(context.Background(), dir, "campus"))
	require.Len(t, store.docs, first, "re-ingestion must overwrite, not duplicate")
}

func TestAppendFileRequiresExistingIndex(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "policies.txt", testProse)

	store := newMemoryStore()
	w := newTestWriter(store, DefaultOptions())

	_, err := w.AppendFile(context.Background(), filepath.Join(dir, "policies.txt"), "campus", "policies.txt")
	require.ErrorIs(t, err, ErrIndexMissing)
}

func TestAppendFileReturnsChunkCount(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "policies.txt", testProse)

	store := newMemoryStore()
	w := newTestWriter(store, DefaultOptions())
	require.NoError(t, w.Build(context.Background(), dir, "campus"))
	before := len(store.docs)

	count, err := w.AppendFile(context.Background(), filepath.Join(dir, "policies.txt"), "campus", "policies.txt")
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, store.docs, before, "unchanged file adds no net-new vectors")
}

func TestAppendFileUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "image.png", "junk")

	store := newMemoryStore()
	store.indexes["campus"] = 3
	w := newTestWriter(store, DefaultOptions())

	_, err := w.AppendFile(context.Background(), filepath.Join(dir, "image.png"), "campus", "image.png")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestUpsertBatching(t *testing.T) {
	dir := t.TempDir()

	// Many distinct paragraphs, low token budget: plenty of chunks.
	var sb strings.Builder
	for i := 0; i < 12; i++ {
		sb.WriteString(strings.Repeat("distinct paragraph number content with several different meaningful words here ", 3))
		sb.WriteString("\n\n")
	}
	writeDataFile(t, dir, "long.txt", sb.String())

	store := newMemoryStore()
	opts := DefaultOptions()
	opts.MaxTokens = 60
	opts.OverlapTokens = 0
	opts.BatchSize = 2
	w := newTestWriter(store, opts)

	require.NoError(t, w.Build(context.Background(), dir, "campus"))
	require.Greater(t, store.upserts, 1, "chunks should span multiple batches")
	require.LessOrEqual(t, store.lastBatch, 2)
}

func TestLowValueChunksAreDropped(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "junk.txt", "1234 5678 90")

	store := newMemoryStore()
	w := newTestWriter(store, DefaultOptions())

	require.NoError(t, w.Build(context.Background(), dir, "campus"))
	require.Empty(t, store.docs)
}
