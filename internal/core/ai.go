package core

import "context"

// EmbeddingProvider turns text into fixed-width vectors.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single string; also used once to probe the
	// model's output dimension when creating an index.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// LLMProvider is the external text-completion collaborator.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// VisionProvider is the raw vision-capable model call. It may fail; retry
// policy belongs to the caller (see ingest.VisionBridge).
type VisionProvider interface {
	Invoke(ctx context.Context, image []byte, prompt string) (string, error)
}
