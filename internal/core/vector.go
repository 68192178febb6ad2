package core

import "context"

// ChunkMetadata is the de facto schema contract for indexed chunks.
// Deletion-by-source and citation display both depend on these field
// names; do not rename without a migration.
type ChunkMetadata struct {
	ChunkID    string `json:"chunk_id"`
	Source     string `json:"source"`
	Page       int    `json:"page"` // -1 when the format has no pages
	Type       string `json:"type"` // text | table | image | pdf_ocr | docx_linear | txt | md | csv
	ChunkIndex int    `json:"chunk_index"`
}

// ChunkDocument is one unit to be embedded and upserted.
type ChunkDocument struct {
	Text     string
	Metadata ChunkMetadata
}

// ScoredDocument is a retrieval hit.
type ScoredDocument struct {
	Text     string
	Metadata ChunkMetadata
	Score    float64
}

// EmbedFunc vectorizes a batch of texts at upsert time.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// VectorStore is the external similarity-search collaborator. Upsert is
// keyed by chunk id: writing an id that already exists overwrites rather
// than duplicates, which is what makes re-ingestion idempotent.
type VectorStore interface {
	EnsureIndex(ctx context.Context, name string, dimension int) error
	Upsert(ctx context.Context, index string, docs []ChunkDocument, embed EmbedFunc) error
	Query(ctx context.Context, index string, vector []float32, k int, filter map[string]string) ([]ScoredDocument, error)
	Delete(ctx context.Context, index string, filter map[string]string) error
	ListIndexes(ctx context.Context) ([]string, error)
}
