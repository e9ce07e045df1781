package vad

import (
	"context"
	"time"

	"github.com/xaionaro-go/noisefilter/pkg/audio"
)

// VAD finds voice activity in PCM samples.
type VAD interface {
	audio.AbstractAnalyzer

	// FindNextVoice returns the highest metric observed and the offset of the
	// first chunk with a metric of at least the threshold, or a negative
	// offset if there is no such chunk. It stops scanning as soon as the
	// voice lasted for minDuration.
	FindNextVoice(
		_ context.Context,
		samples []byte,
		threshold float64,
		minDuration time.Duration,
	) (float64, time.Duration, error)
}
