package noisesuppression

import (
	"context"

	"github.com/xaionaro-go/noisefilter/pkg/audio"
)

type NoiseSuppression interface {
	audio.AbstractAnalyzer

	// ChunkSize is the size in bytes that input of SuppressNoise must be a
	// multiple of.
	ChunkSize() uint

	// SuppressNoise writes the denoised input to outputVoice and returns
	// the highest metric reported for the processed frames.
	SuppressNoise(ctx context.Context, input []byte, outputVoice []byte) (float64, error)
}
