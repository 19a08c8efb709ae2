package narrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voxpay/gateway/internal/domain"
)

// Narration is spoken audio plus its word alignment, ready for the
// presentation layer.
type Narration struct {
	Key       string
	Audio     []byte
	Alignment *domain.AlignmentData
	Cached    bool
}

// Narrator runs the cache-first synthesis path: cached audio is reused
// whenever the exact text, model, and voice match; otherwise the
// synthesizer is called live and the result is persisted.
type Narrator struct {
	synth  Synthesizer
	cache  *Cache
	model  string
	voice  string
	logger *slog.Logger
}

// NewNarrator wires a synthesizer and cache.
func NewNarrator(synth Synthesizer, cache *Cache, model, voice string, logger *slog.Logger) *Narrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewCache("", false, logger)
	}
	return &Narrator{
		synth:  synth,
		cache:  cache,
		model:  model,
		voice:  voice,
		logger: logger,
	}
}

// Speak returns narration for text. A cache hit skips synthesis entirely;
// its alignment is re-estimated from the speaking-rate constant since the
// true duration is not stored alongside the audio. A synthesis failure is
// returned as an error so the caller can degrade to text-only narration.
func (n *Narrator) Speak(ctx context.Context, text string) (*Narration, error) {
	key := Key(text, n.model, n.voice)

	if audio, ok := n.cache.Get(key); ok {
		return &Narration{
			Key:       key,
			Audio:     audio,
			Alignment: EstimateAlignment(text, 0),
			Cached:    true,
		}, nil
	}

	if n.synth == nil {
		return nil, fmt.Errorf("no synthesizer configured")
	}

	result, err := n.synth.Synthesize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}

	n.cache.Set(key, result.Audio)

	// Provider timestamps win; the estimator is strictly a fallback.
	alignment := result.Alignment
	if alignment == nil {
		alignment = EstimateAlignment(text, result.DurationMs)
	}

	return &Narration{
		Key:       key,
		Audio:     result.Audio,
		Alignment: alignment,
	}, nil
}

// Cached returns previously synthesized audio by key, for serving stored
// narration without re-deriving the text.
func (n *Narrator) CachedAudio(key string) ([]byte, bool) {
	return n.cache.Get(key)
}
