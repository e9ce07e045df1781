package noisesuppression

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/noisefilter/pkg/audio"
	"github.com/xaionaro-go/noisefilter/pkg/noisesuppression"
	"github.com/xaionaro-go/noisefilter/pkg/vad"
)

// VAD uses the metric reported by a noise suppressor as the voice
// confidence.
type VAD struct {
	noisesuppression.NoiseSuppression
	ChunkSize     uint64
	ChunkDuration time.Duration
	Buffer        []byte
}

var _ vad.VAD = (*VAD)(nil)

func NewVAD(
	ctx context.Context,
	noiseSuppression noisesuppression.NoiseSuppression,
	preferredGranularity time.Duration,
) (*VAD, error) {
	chunkSize := uint64(noiseSuppression.ChunkSize())
	if chunkSize == 0 {
		return nil, fmt.Errorf("the noise suppression reported a zero chunk size")
	}
	channels, err := noiseSuppression.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get the amount of channels: %w", err)
	}
	encoding, err := noiseSuppression.Encoding(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get the encoding: %w", err)
	}
	encodingPCM, ok := encoding.(audio.EncodingPCM)
	if !ok {
		return nil, fmt.Errorf("noise suppression encoding is not PCM: %T", encoding)
	}

	preferredChunkSize := encodingPCM.BytesForDuration(preferredGranularity) * uint64(channels)
	subChunks := (preferredChunkSize + chunkSize/2) / chunkSize
	if subChunks < 1 {
		subChunks = 1
	}
	chosenChunkSize := subChunks * chunkSize
	chosenChunkDuration := encodingPCM.DurationForBytes(channels, chosenChunkSize)
	logger.Debugf(ctx, "resulting chunkSize:%d and chunkDuration:%v", chosenChunkSize, chosenChunkDuration)

	return &VAD{
		NoiseSuppression: noiseSuppression,
		ChunkSize:        chosenChunkSize,
		ChunkDuration:    chosenChunkDuration,
		Buffer:           make([]byte, chosenChunkSize),
	}, nil
}

// FindNextVoice implements vad.VAD. A trailing part of samples shorter than
// ChunkSize is ignored.
func (v *VAD) FindNextVoice(
	ctx context.Context,
	samples []byte,
	threshold float64,
	minDuration time.Duration,
) (_maxMetric float64, _firstVoice time.Duration, _err error) {
	logger.Tracef(ctx, "FindNextVoice, len:%d", len(samples))
	defer func() {
		logger.Tracef(ctx, "/FindNextVoice, len:%d: %v %v %v", len(samples), _maxMetric, _firstVoice, _err)
	}()

	maxMetric := math.Inf(-1)
	firstVoiceDetection := time.Duration(-1)
	var foundVoiceFor time.Duration

	chunkSize := int(v.ChunkSize)
	for pos := 0; len(samples) >= chunkSize; pos++ {
		chunk := samples[:chunkSize]
		samples = samples[chunkSize:]
		metric, err := v.NoiseSuppression.SuppressNoise(ctx, chunk, v.Buffer)
		if err != nil {
			return normalizeMetric(maxMetric), firstVoiceDetection, fmt.Errorf("unable to process chunk #%d: %w", pos, err)
		}
		if metric > maxMetric {
			maxMetric = metric
		}
		if metric < threshold {
			continue
		}
		foundVoiceFor += v.ChunkDuration
		if firstVoiceDetection < 0 {
			firstVoiceDetection = v.ChunkDuration * time.Duration(pos)
		}
		if foundVoiceFor >= minDuration {
			break
		}
	}
	return normalizeMetric(maxMetric), firstVoiceDetection, nil
}

func normalizeMetric(metric float64) float64 {
	if math.IsInf(metric, -1) {
		return 0
	}
	return metric
}
