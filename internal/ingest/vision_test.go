package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flakyVision fails a fixed number of times before succeeding.
type flakyVision struct {
	failures int
	calls    int
}

func (f *flakyVision) Invoke(_ context.Context, _ []byte, _ string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("model unavailable")
	}
	return "  transcribed text  ", nil
}

func newTestBridge(provider *flakyVision) (*VisionBridge, *[]time.Duration) {
	b := NewVisionBridge(provider, zap.NewNop())
	var slept []time.Duration
	b.sleep = func(d time.Duration) { slept = append(slept, d) }
	return b, &slept
}

func TestTranscribeFirstAttemptSucceeds(t *testing.T) {
	provider := &flakyVision{}
	b, slept := newTestBridge(provider)

	got := b.Transcribe(context.Background(), []byte("img"), "prompt")
	require.Equal(t, "transcribed text", got)
	require.Equal(t, 1, provider.calls)
	require.Empty(t, *slept)
}

func TestTranscribeRetriesWithBackoff(t *testing.T) {
	provider := &flakyVision{failures: 2}
	b, slept := newTestBridge(provider)

	got := b.Transcribe(context.Background(), []byte("img"), "prompt")
	require.Equal(t, "transcribed text", got)
	require.Equal(t, 3, provider.calls)
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *slept)
}

func TestTranscribeGivesUpAfterMaxAttempts(t *testing.T) {
	provider := &flakyVision{failures: 10}
	b, slept := newTestBridge(provider)

	got := b.Transcribe(context.Background(), []byte("img"), "prompt")
	require.Equal(t, "", got)
	require.Equal(t, 3, provider.calls)
	// No sleep after the final attempt.
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *slept)
}

func TestVisionBackoffCapped(t *testing.T) {
	require.Equal(t, 2*time.Second, visionBackoff(1))
	require.Equal(t, 4*time.Second, visionBackoff(2))
	require.Equal(t, 8*time.Second, visionBackoff(3))
	require.Equal(t, 8*time.Second, visionBackoff(4))
	require.Equal(t, 8*time.Second, visionBackoff(10))
}
