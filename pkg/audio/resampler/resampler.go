package resampler

import (
	"fmt"
	"io"
	"sync"

	"github.com/xaionaro-go/noisefilter/pkg/audio"
)

const (
	distanceStep = 10000
)

type Format struct {
	Channels   audio.Channel
	SampleRate audio.SampleRate
	PCMFormat  audio.PCMFormat
}

func (f Format) String() string {
	return fmt.Sprintf("%s/%dHz/%dch", f.PCMFormat, f.SampleRate, f.Channels)
}

type precalculated struct {
	inCodec         sampleCodec
	outCodec        sampleCodec
	inSampleSize    uint
	outSampleSize   uint
	inNumAvg        uint
	outDistanceStep uint64
}

// Resampler is a nearest-neighbor sample rate, channel count and PCM format
// converter. It only converts between mono and any channel count.
type Resampler struct {
	inReader    io.Reader
	inFormat    Format
	outFormat   Format
	inDistance  uint64
	outDistance uint64
	locker      sync.Mutex
	buffer      []byte
	precalculated
}

var _ io.Reader = (*Resampler)(nil)

func NewResampler(
	inFormat Format,
	inReader io.Reader,
	outFormat Format,
) (*Resampler, error) {
	r := &Resampler{
		inReader:  inReader,
		inFormat:  inFormat,
		outFormat: outFormat,
	}
	err := r.init()
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a resampler from %s to %s: %w", inFormat, outFormat, err)
	}
	return r, nil
}

func (r *Resampler) init() error {
	var ok bool
	r.inCodec, ok = sampleCodecs[r.inFormat.PCMFormat]
	if !ok {
		return fmt.Errorf("unsupported input format: %s", r.inFormat.PCMFormat)
	}
	r.outCodec, ok = sampleCodecs[r.outFormat.PCMFormat]
	if !ok {
		return fmt.Errorf("unsupported output format: %s", r.outFormat.PCMFormat)
	}
	if r.inFormat.SampleRate == 0 || r.outFormat.SampleRate == 0 {
		return fmt.Errorf("sample rate cannot be zero")
	}
	if r.inFormat.Channels == 0 || r.outFormat.Channels == 0 {
		return fmt.Errorf("channel count cannot be zero")
	}
	r.inSampleSize = r.inFormat.PCMFormat.Size()
	r.outSampleSize = r.outFormat.PCMFormat.Size()

	r.inNumAvg = 1
	if r.inFormat.Channels != r.outFormat.Channels {
		switch {
		case r.inFormat.Channels == 1:
		case r.outFormat.Channels == 1:
			r.inNumAvg = uint(r.inFormat.Channels)
		default:
			return fmt.Errorf("do not know how to convert %d channels to %d", r.inFormat.Channels, r.outFormat.Channels)
		}
	} else if r.inFormat.Channels > 1 {
		// the same layout: a multichannel frame is handled as a single
		// wide sample
		r.inNumAvg = 0
	}

	sampleRateAdjust := float64(r.outFormat.SampleRate) / float64(r.inFormat.SampleRate)
	r.outDistanceStep = uint64(float64(distanceStep) / sampleRateAdjust)

	r.inDistance = 0
	r.outDistance = 0
	return nil
}

func (r *Resampler) inFrameSize() uint64 {
	return uint64(r.inSampleSize) * uint64(r.inFormat.Channels)
}

func (r *Resampler) outFrameSize() uint64 {
	return uint64(r.outSampleSize) * uint64(r.outFormat.Channels)
}

func (r *Resampler) Read(p []byte) (int, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	maxOutFrames := uint64(len(p)) / r.outFrameSize()
	if maxOutFrames == 0 {
		return 0, nil
	}

	framesToRead := uint64(float64(maxOutFrames) * float64(r.inFormat.SampleRate) / float64(r.outFormat.SampleRate))
	if framesToRead == 0 {
		framesToRead = 1
	}
	bytesToRead := framesToRead * r.inFrameSize()
	if cap(r.buffer) < int(bytesToRead) {
		r.buffer = make([]byte, bytesToRead)
	} else {
		r.buffer = r.buffer[:bytesToRead]
	}
	n, err := r.inReader.Read(r.buffer)
	r.buffer = r.buffer[:n]

	if n > 0 && uint64(n)%r.inFrameSize() != 0 {
		return 0, fmt.Errorf("read a number of bytes (%d) that is not a multiple of %d", n, r.inFrameSize())
	}
	framesRead := uint64(n) / r.inFrameSize()

	values := make([]float64, r.outFormat.Channels)
	dstFrameIdx := uint64(0)
	srcFrameIdx := uint64(0)
	for srcFrameIdx < framesRead && dstFrameIdx < maxOutFrames {
		// skip input frames if the input is behind the output
		for r.inDistance < r.outDistance && srcFrameIdx < framesRead {
			srcFrameIdx++
			r.inDistance += distanceStep
		}
		if srcFrameIdx >= framesRead {
			break
		}

		r.decodeFrame(values, r.buffer[srcFrameIdx*r.inFrameSize():])

		// the output may need the same input frame multiple times
		for dstFrameIdx < maxOutFrames && r.outDistance <= r.inDistance {
			r.encodeFrame(p[dstFrameIdx*r.outFrameSize():], values)
			dstFrameIdx++
			r.outDistance += r.outDistanceStep
		}

		srcFrameIdx++
		r.inDistance += distanceStep
	}

	return int(dstFrameIdx * r.outFrameSize()), err
}

// decodeFrame fills one value per output channel from a single input frame.
func (r *Resampler) decodeFrame(values []float64, frame []byte) {
	sampleSize := uint64(r.inSampleSize)
	switch {
	case r.inNumAvg == 0:
		for ch := range values {
			values[ch] = r.inCodec.Decode(frame[uint64(ch)*sampleSize:])
		}
	default:
		var sum float64
		for ch := uint64(0); ch < uint64(r.inNumAvg); ch++ {
			sum += r.inCodec.Decode(frame[ch*sampleSize:])
		}
		avg := sum / float64(r.inNumAvg)
		for ch := range values {
			values[ch] = avg
		}
	}
}

func (r *Resampler) encodeFrame(frame []byte, values []float64) {
	sampleSize := uint64(r.outSampleSize)
	for ch, v := range values {
		r.outCodec.Encode(frame[uint64(ch)*sampleSize:], v)
	}
}
