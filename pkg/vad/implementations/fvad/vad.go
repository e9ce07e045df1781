// Package fvad implements vad.VAD on top of libfvad (the WebRTC voice
// activity detector).
package fvad

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	libfvad "github.com/josharian/fvad"
	"github.com/xaionaro-go/noisefilter/pkg/audio"
	"github.com/xaionaro-go/noisefilter/pkg/vad"
)

// Mode is the aggressiveness of the detector: the higher the mode, the
// less likely a noise is reported as a voice.
type Mode int

const (
	ModeQuality = Mode(iota)
	ModeLowBitrate
	ModeAggressive
	ModeVeryAggressive
)

const (
	DefaultSampleRate    = audio.SampleRate(16000)
	DefaultFrameDuration = 30 * time.Millisecond
)

// VAD reports a metric of 1 for every frame libfvad considers voiced and
// 0 otherwise. It consumes mono signed 16-bit PCM in the native byte order.
type VAD struct {
	Detector      *libfvad.Detector
	SampleRate    audio.SampleRate
	FrameDuration time.Duration
	FrameSize     uint64
	Frame         []int16
}

var _ vad.VAD = (*VAD)(nil)

func NewVAD(
	ctx context.Context,
	sampleRate audio.SampleRate,
	mode Mode,
	frameDuration time.Duration,
) (*VAD, error) {
	switch sampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return nil, fmt.Errorf("unsupported sample rate %d, expected 8000, 16000, 32000 or 48000", sampleRate)
	}
	switch frameDuration {
	case 10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond:
	default:
		return nil, fmt.Errorf("unsupported frame duration %v, expected 10ms, 20ms or 30ms", frameDuration)
	}
	if mode < ModeQuality || mode > ModeVeryAggressive {
		return nil, fmt.Errorf("unsupported mode %d", mode)
	}

	detector := libfvad.NewDetector()
	if err := detector.SetMode(int(mode)); err != nil {
		return nil, fmt.Errorf("unable to set mode %d: %w", mode, err)
	}
	if err := detector.SetSampleRate(int(sampleRate)); err != nil {
		return nil, fmt.Errorf("unable to set sample rate %d: %w", sampleRate, err)
	}

	samplesPerFrame := uint64(sampleRate) * uint64(frameDuration) / uint64(time.Second)
	logger.Debugf(ctx, "fvad: mode:%d, sampleRate:%d, samplesPerFrame:%d", mode, sampleRate, samplesPerFrame)
	return &VAD{
		Detector:      detector,
		SampleRate:    sampleRate,
		FrameDuration: frameDuration,
		FrameSize:     samplesPerFrame * 2,
		Frame:         make([]int16, samplesPerFrame),
	}, nil
}

func (v *VAD) Encoding(context.Context) (audio.Encoding, error) {
	return audio.EncodingPCM{
		PCMFormat:  audio.PCMFormatS16Native(),
		SampleRate: v.SampleRate,
	}, nil
}

func (v *VAD) Channels(context.Context) (audio.Channel, error) {
	return 1, nil
}

// Close releases the detector; libfvad frees its state on garbage collection.
func (v *VAD) Close() error {
	v.Detector = nil
	return nil
}

// FindNextVoice implements vad.VAD. A trailing part of samples shorter than
// FrameSize is ignored.
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

	if v.Detector == nil {
		return 0, -1, fmt.Errorf("the detector is closed")
	}

	maxMetric := math.Inf(-1)
	firstVoiceDetection := time.Duration(-1)
	var foundVoiceFor time.Duration

	frameSize := int(v.FrameSize)
	for pos := 0; len(samples) >= frameSize; pos++ {
		frame := samples[:frameSize]
		samples = samples[frameSize:]
		for idx := range v.Frame {
			v.Frame[idx] = int16(binary.NativeEndian.Uint16(frame[idx*2:]))
		}
		voiced, err := v.Detector.Process(v.Frame)
		if err != nil {
			return max(maxMetric, 0), firstVoiceDetection, fmt.Errorf("unable to process frame #%d: %w", pos, err)
		}
		var metric float64
		if voiced {
			metric = 1
		}
		maxMetric = max(maxMetric, metric)
		if metric < threshold {
			continue
		}
		foundVoiceFor += v.FrameDuration
		if firstVoiceDetection < 0 {
			firstVoiceDetection = v.FrameDuration * time.Duration(pos)
		}
		if foundVoiceFor >= minDuration {
			break
		}
	}
	return max(maxMetric, 0), firstVoiceDetection, nil
}
