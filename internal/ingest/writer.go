package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harmattan-labs/docent/internal/core"
)

// IndexWriter runs the full extract, normalize, chunk, filter, identity
// pipeline and writes the result to the vector index. Chunk ids are
// deterministic over (source, page, index, text), so re-ingesting an
// unchanged file overwrites its vectors instead of duplicating them.
type IndexWriter struct {
	store      core.VectorStore
	embedder   core.EmbeddingProvider
	extractors *ExtractorSet
	opts       Options
	log        *zap.Logger
	pause      func(time.Duration) // injectable so tests skip the batch throttle
}

func NewIndexWriter(store core.VectorStore, embedder core.EmbeddingProvider, extractors *ExtractorSet, opts Options, log *zap.Logger) *IndexWriter {
	return &IndexWriter{
		store:      store,
		embedder:   embedder,
		extractors: extractors,
		opts:       opts,
		log:        log,
		pause:      time.Sleep,
	}
}

// Build ingests every supported file under dataDir into indexName, creating
// the index first if it does not exist. One broken file is logged and
// skipped; it never aborts the rest of the corpus.
func (w *IndexWriter) Build(ctx context.Context, dataDir, indexName string) error {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return fmt.Errorf("read data directory %s: %w", dataDir, err)
	}

	var (
		mu   sync.Mutex
		docs []core.ChunkDocument
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, w.opts.FileWorkers))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if DetectFormat(name) == FormatUnsupported {
			w.log.Warn("skipping unsupported file", zap.String("file", name))
			continue
		}
		g.Go(func() error {
			fileDocs, err := w.processFile(gctx, filepath.Join(dataDir, name), name)
			if err != nil {
				w.log.Warn("file ingestion failed, skipping",
					zap.String("file", name), zap.Error(err))
				return nil
			}
			mu.Lock()
			docs = append(docs, fileDocs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	docs = dedupeByID(docs)
	if len(docs) == 0 {
		w.log.Info("nothing to index", zap.String("dir", dataDir))
		return nil
	}

	if err := w.ensureIndex(ctx, indexName); err != nil {
		return err
	}
	if err := w.upsertBatches(ctx, indexName, docs); err != nil {
		return err
	}
	w.log.Info("index build complete",
		zap.String("index", indexName), zap.Int("chunks", len(docs)))
	return nil
}

// AppendFile ingests a single file into an existing index and returns the
// number of chunks written. Unlike Build, errors propagate: the caller owns
// the upload and must be able to reject it.
func (w *IndexWriter) AppendFile(ctx context.Context, path, indexName, realFilename string) (int, error) {
	exists, err := w.indexExists(ctx, indexName)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("append to %s: %w", indexName, ErrIndexMissing)
	}

	docs, err := w.processFile(ctx, path, realFilename)
	if err != nil {
		return 0, err
	}
	docs = dedupeByID(docs)
	if len(docs) == 0 {
		return 0, nil
	}
	if err := w.upsertBatches(ctx, indexName, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// processFile runs one file through its extractor and the shared chunking
// pipeline. The chunk index counts all chunks of a segment, including ones
// the quality filter later drops, so surviving chunks keep stable identities
// no matter how the filter is tuned.
func (w *IndexWriter) processFile(ctx context.Context, path, filename string) ([]core.ChunkDocument, error) {
	format := DetectFormat(filename)
	extractor, err := w.extractors.ForFormat(format)
	if err != nil {
		return nil, err
	}
	segments, err := extractor.Extract(ctx, path, filename)
	if err != nil {
		return nil, err
	}

	var docs []core.ChunkDocument
	dropped := 0
	for _, seg := range segments {
		for i, text := range Chunk(seg.Content, w.opts.MaxTokens, w.opts.OverlapTokens, ApproxTokens) {
			if w.opts.Filter.IsLowValue(text) {
				dropped++
				continue
			}
			docs = append(docs, core.ChunkDocument{
				Text: text,
				Metadata: core.ChunkMetadata{
					ChunkID:    ChunkID(seg.Source, seg.Page, i, text),
					Source:     seg.Source,
					Page:       seg.Page,
					Type:       string(seg.Kind),
					ChunkIndex: i,
				},
			})
		}
	}
	w.log.Info("file processed",
		zap.String("file", filename),
		zap.String("format", format.String()),
		zap.Int("segments", len(segments)),
		zap.Int("chunks", len(docs)),
		zap.Int("filtered_out", dropped),
	)
	return docs, nil
}

// ensureIndex creates the index if needed, probing the embedding provider
// once for its actual output width instead of hardcoding a dimension.
func (w *IndexWriter) ensureIndex(ctx context.Context, indexName string) error {
	probe, err := w.embedder.EmbedQuery(ctx, "dimension probe")
	if err != nil {
		return fmt.Errorf("probe embedding dimension: %w", err)
	}
	if err := w.store.EnsureIndex(ctx, indexName, len(probe)); err != nil {
		return fmt.Errorf("ensure index %s: %w", indexName, err)
	}
	return nil
}

func (w *IndexWriter) indexExists(ctx context.Context, indexName string) (bool, error) {
	names, err := w.store.ListIndexes(ctx)
	if err != nil {
		return false, fmt.Errorf("list indexes: %w", err)
	}
	for _, n := range names {
		if n == indexName {
			return true, nil
		}
	}
	return false, nil
}

// upsertBatches writes chunks in fixed-size batches with a pause between
// them to stay under the embedding provider's rate limits.
func (w *IndexWriter) upsertBatches(ctx context.Context, indexName string, docs []core.ChunkDocument) error {
	size := w.opts.BatchSize
	if size <= 0 {
		size = len(docs)
	}
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		if err := w.store.Upsert(ctx, indexName, docs[start:end], w.embedder.EmbedTexts); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}
		w.log.Info("batch upserted",
			zap.String("index", indexName),
			zap.Int("from", start), zap.Int("to", end), zap.Int("total", len(docs)))
		if end < len(docs) && w.opts.BatchPause > 0 {
			w.pause(w.opts.BatchPause)
		}
	}
	return nil
}

func dedupeByID(docs []core.ChunkDocument) []core.ChunkDocument {
	seen := make(map[string]struct{}, len(docs))
	out := docs[:0]
	for _, d := range docs {
		if _, ok := seen[d.Metadata.ChunkID]; ok {
			continue
		}
		seen[d.Metadata.ChunkID] = struct{}{}
		out = append(out, d)
	}
	return out
}
