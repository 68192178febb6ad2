package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ChunkID computes the stable, deterministic identity of a chunk from its
// exact logical position and content. Identical content at the same position
// always yields the same id, which is what makes re-ingestion idempotent:
// the index's upsert-by-id semantics turn a duplicate into an overwrite.
func ChunkID(source string, page, chunkIndex int, text string) string {
	payload := fmt.Sprintf("%s|%d|%d|%s", source, page, chunkIndex, text)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
