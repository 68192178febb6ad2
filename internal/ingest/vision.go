package ingest

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harmattan-labs/docent/internal/core"
)

// Transcription prompts. OCR must come back verbatim: a summarizing model
// response would silently lose content that retrieval can never get back.
const (
	pageOCRPrompt = "Transcribe all text on this page exactly as it appears. " +
		"Do not summarize, do not omit anything, preserve the reading order. " +
		"If the page contains a table, reproduce it as a Markdown table."

	tableOCRPrompt = "Transcribe this table verbatim as a Markdown table. " +
		"Keep every row and every column exactly as shown; do not summarize or reorder."
)

const (
	visionMaxAttempts = 3
	visionBackoffCap  = 8 * time.Second
)

// VisionBridge wraps the external vision model with a bounded retry policy.
// A page or table whose transcription ultimately fails degrades to an empty
// string so ingestion of the rest of the file continues; one flaky vision
// call must never abort a whole document.
type VisionBridge struct {
	provider core.VisionProvider
	attempts int
	sleep    func(time.Duration) // injectable so tests run without timers
	log      *zap.Logger
}

func NewVisionBridge(provider core.VisionProvider, log *zap.Logger) *VisionBridge {
	return &VisionBridge{
		provider: provider,
		attempts: visionMaxAttempts,
		sleep:    time.Sleep,
		log:      log,
	}
}

// Transcribe submits an image with a prompt, retrying with exponential
// backoff (base 2, capped at 8s between attempts). Returns "" after the
// final failure.
func (b *VisionBridge) Transcribe(ctx context.Context, image []byte, prompt string) string {
	var lastErr error
	for attempt := 1; attempt <= b.attempts; attempt++ {
		out, err := b.provider.Invoke(ctx, image, prompt)
		if err == nil {
			return strings.TrimSpace(out)
		}
		lastErr = err
		wait := visionBackoff(attempt)
		b.log.Warn("vision call failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", b.attempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if attempt < b.attempts {
			b.sleep(wait)
		}
	}
	b.log.Error("vision transcription failed after retries", zap.Error(lastErr))
	return ""
}

func visionBackoff(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt)) * time.Second // 2s, 4s, 8s, ...
	if d > visionBackoffCap {
		d = visionBackoffCap
	}
	return d
}
