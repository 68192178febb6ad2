package ingest

import (
	"strings"
)

// Chunk splits text into token-bounded, overlapping chunks. The input is
// normalized first, then packed paragraph-first: whole paragraphs are
// accumulated until the next one would overflow maxTokens, at which point the
// accumulator is flushed. A paragraph that alone exceeds maxTokens falls back
// to sentence-level packing. Each flush seeds the next accumulator with a
// tail of the just-emitted parts worth approximately overlap tokens.
//
// Pure function of its input: same text, same budget, same chunks. A single
// sentence larger than maxTokens is emitted oversized rather than truncated;
// no content is ever dropped here (that is the low-value filter's job).
func Chunk(text string, maxTokens, overlap int, counter TokenCounter) []string {
	if counter == nil {
		counter = ApproxTokens
	}

	text = Normalize(text)
	if text == "" {
		return nil
	}
	paragraphs := strings.Split(text, "\n\n")

	var (
		chunks []string
		parts  []string
		tokens int
	)

	// flush emits the accumulated parts as one chunk, then retains a suffix
	// of them as the seed of the next chunk: walk backward until the kept
	// tail meets or exceeds the overlap budget.
	flush := func() {
		if len(parts) == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(parts, " "))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if overlap > 0 {
			var keep []string
			keepTokens := 0
			for i := len(parts) - 1; i >= 0; i-- {
				keep = append([]string{parts[i]}, keep...) // prepend to keep original order
				keepTokens += counter(parts[i])
				if keepTokens >= overlap {
					break
				}
			}
			parts = keep
			tokens = keepTokens
		} else {
			parts = nil
			tokens = 0
		}
	}

	for _, para := range paragraphs {
		paraTokens := counter(para)

		if paraTokens > maxTokens {
			// Sentence fallback for a paragraph that cannot be packed whole.
			for _, sent := range SplitSentences(para) {
				sentTokens := counter(sent)
				if tokens+sentTokens > maxTokens && len(parts) > 0 {
					flush()
				}
				parts = append(parts, sent)
				tokens += sentTokens
			}
			continue
		}

		if tokens+paraTokens > maxTokens && len(parts) > 0 {
			flush()
		}
		parts = append(parts, para)
		tokens += paraTokens
	}

	// Final flush; nothing follows, so no overlap seeding is needed.
	if len(parts) > 0 {
		chunk := strings.TrimSpace(strings.Join(parts, " "))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
