// Package narrate synthesizes spoken narration for validated explanation
// text, caches the audio content-addressed on disk, and derives word-level
// timing when the synthesis provider supplies none.
package narrate

import (
	"strings"

	"github.com/voxpay/gateway/internal/domain"
)

// wordsPerMinute is the speaking-rate constant used when no true audio
// duration is known.
const wordsPerMinute = 180

// EstimateAlignment partitions text into words and assigns each a
// monotonically non-decreasing start offset. With trueDurationMs <= 0 the
// offsets come from the fixed words-per-minute rate; otherwise they are
// linearly interpolated across the real duration. Either way the result is
// a best-effort approximation, never a claim of exact timing, and
// consumers doing synchronized highlighting should treat it as such.
func EstimateAlignment(text string, trueDurationMs int) *domain.AlignmentData {
	words := strings.Fields(text)
	if len(words) == 0 {
		return &domain.AlignmentData{Words: []string{}, StartOffsetsMs: []int{}}
	}

	offsets := make([]int, len(words))
	if trueDurationMs > 0 {
		for i := range words {
			offsets[i] = i * trueDurationMs / len(words)
		}
	} else {
		msPerWord := 60_000 / wordsPerMinute
		for i := range words {
			offsets[i] = i * msPerWord
		}
	}

	return &domain.AlignmentData{Words: words, StartOffsetsMs: offsets}
}
