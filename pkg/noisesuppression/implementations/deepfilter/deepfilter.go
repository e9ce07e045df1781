package deepfilter

import (
	"context"
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/noisefilter/pkg/audio"
	"github.com/xaionaro-go/noisefilter/pkg/audio/planar"
	"github.com/xaionaro-go/noisefilter/pkg/deepfilter"
	"github.com/xaionaro-go/noisefilter/pkg/noisesuppression"
	"github.com/xaionaro-go/observability"
)

const (
	DefaultSampleRate = audio.SampleRate(48_000)
)

var sampleSize = uint(unsafe.Sizeof(int16(0)))

// DeepFilter suppresses noise in interleaved native-endian S16 PCM. Each
// channel is handled by its own mono deepfilter.Filter, and all calls into
// the filters are serialized by Locker.
type DeepFilter struct {
	Locker       sync.Mutex
	Filters      []*deepfilter.Filter
	ChannelCount audio.Channel
	SampleRate   audio.SampleRate
	FrameLength  uint
	Buffer       []int16
}

var _ noisesuppression.NoiseSuppression = (*DeepFilter)(nil)

func New(
	ctx context.Context,
	engine deepfilter.Engine,
	model []byte,
	channels audio.Channel,
	opts ...deepfilter.Option,
) (_ret *DeepFilter, _err error) {
	logger.Debugf(ctx, "New: channels:%d", channels)
	defer func() { logger.Debugf(ctx, "/New: channels:%d: %v", channels, _err) }()

	if channels < 1 {
		return nil, fmt.Errorf("invalid amount of channels: %d", channels)
	}

	// each state is mono, the channels are split here
	opts = append(opts[:len(opts):len(opts)], deepfilter.OptionChannels(1))

	s := &DeepFilter{
		ChannelCount: channels,
		SampleRate:   DefaultSampleRate,
	}
	for ch := audio.Channel(0); ch < channels; ch++ {
		filter, err := deepfilter.NewWithModel(ctx, engine, model, opts...)
		if err != nil {
			s.closeFilters()
			return nil, fmt.Errorf("unable to initialize the filter for channel %d: %w", ch, err)
		}
		s.Filters = append(s.Filters, filter)

		frameLength := uint(filter.SupportedFrameLength())
		switch {
		case frameLength == 0:
			s.closeFilters()
			return nil, fmt.Errorf("the engine reported a zero frame length")
		case s.FrameLength == 0:
			s.FrameLength = frameLength
		case s.FrameLength != frameLength:
			s.closeFilters()
			return nil, fmt.Errorf("the engine reported different frame lengths: %d != %d", frameLength, s.FrameLength)
		}
	}
	return s, nil
}

func (s *DeepFilter) Close() error {
	s.Locker.Lock()
	defer s.Locker.Unlock()
	if s.Filters == nil {
		return fmt.Errorf("double-free attempt")
	}
	return s.closeFilters()
}

func (s *DeepFilter) closeFilters() error {
	var mErr *multierror.Error
	for ch, filter := range s.Filters {
		if err := filter.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close the filter of channel %d: %w", ch, err))
		}
	}
	s.Filters = nil
	return mErr.ErrorOrNil()
}

func (s *DeepFilter) Encoding(ctx context.Context) (audio.Encoding, error) {
	pcmFormat := audio.PCMFormatS16Native()
	if pcmFormat == audio.PCMFormatUndefined {
		return nil, fmt.Errorf("unable to detect endianness of this computer")
	}
	return audio.EncodingPCM{
		PCMFormat:  pcmFormat,
		SampleRate: s.SampleRate,
	}, nil
}

func (s *DeepFilter) Channels(ctx context.Context) (audio.Channel, error) {
	return s.ChannelCount, nil
}

func (s *DeepFilter) ChunkSize() uint {
	return uint(s.ChannelCount) * s.FrameLength * sampleSize
}

func (s *DeepFilter) SuppressNoise(
	ctx context.Context,
	input []byte,
	outputVoice []byte,
) (_ret float64, _err error) {
	logger.Tracef(ctx, "SuppressNoise, len:%d", len(input))
	defer func() { logger.Tracef(ctx, "/SuppressNoise, len:%d: %v %v", len(input), _ret, _err) }()

	chunkSize := int(s.ChunkSize())
	if len(input) != len(outputVoice) {
		return 0, fmt.Errorf("lengths of input and output slices are not equal: %d != %d", len(input), len(outputVoice))
	}
	if chunkSize == 0 {
		return 0, fmt.Errorf("the noise suppressor is not initialized")
	}
	if len(input) < chunkSize {
		return 0, fmt.Errorf("the size of the input is too small: %d < %d", len(input), chunkSize)
	}
	if len(input)%chunkSize != 0 {
		return 0, fmt.Errorf("the size of the input is not a multiple of ChunkSize: %d %% %d != 0", len(input), chunkSize)
	}

	s.Locker.Lock()
	defer s.Locker.Unlock()
	if s.Filters == nil {
		return 0, fmt.Errorf("the noise suppressor is already closed")
	}

	samplesCount := len(input) / int(sampleSize)
	if len(s.Buffer) < samplesCount {
		s.Buffer = make([]int16, samplesCount)
	}
	samples := s.Buffer[:samplesCount]
	buffer := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(samples))), len(input))

	if s.ChannelCount == 1 {
		copy(buffer, input)
		metric := suppressNoiseOneChannel(ctx, s.Filters[0], samples, int(s.FrameLength))
		copy(outputVoice, buffer)
		return metric, nil
	}

	if err := planar.Planarize(s.ChannelCount, sampleSize, buffer, input); err != nil {
		return 0, fmt.Errorf("unable to planarize: %w", err)
	}
	metric := suppressNoiseMultipleChannels(ctx, s.Filters, samples, int(s.FrameLength))
	if err := planar.Unplanarize(s.ChannelCount, sampleSize, outputVoice, buffer); err != nil {
		return 0, fmt.Errorf("unable to unplanarize: %w", err)
	}
	return metric, nil
}

func suppressNoiseOneChannel(
	ctx context.Context,
	filter *deepfilter.Filter,
	samples []int16,
	frameLength int,
) float64 {
	maxMetric := math.Inf(-1)
	for len(samples) > 0 {
		metric := filter.RemoveNoise(ctx, samples[:frameLength])
		if metric > maxMetric {
			maxMetric = metric
		}
		samples = samples[frameLength:]
	}
	return maxMetric
}

func suppressNoiseMultipleChannels(
	ctx context.Context,
	filters []*deepfilter.Filter,
	planarSamples []int16,
	frameLength int,
) float64 {
	channels := len(filters)
	planeSize := len(planarSamples) / channels

	var locker sync.Mutex
	maxMetric := math.Inf(-1)
	var wg sync.WaitGroup
	for ch := 0; ch < channels; ch++ {
		filter := filters[ch]
		plane := planarSamples[ch*planeSize : (ch+1)*planeSize]
		wg.Add(1)
		observability.Go(ctx, func() {
			defer wg.Done()
			metric := suppressNoiseOneChannel(ctx, filter, plane, frameLength)
			locker.Lock()
			defer locker.Unlock()
			if metric > maxMetric {
				maxMetric = metric
			}
		})
	}
	wg.Wait()
	return maxMetric
}
