package types

import (
	"time"
)

type Channel uint32

type SampleRate uint32

type Encoding interface {
	BytesPerSample() uint
	BytesForDuration(time.Duration) uint64
}

type EncodingPCM struct {
	PCMFormat  PCMFormat
	SampleRate SampleRate
}

var _ Encoding = EncodingPCM{}

func (e EncodingPCM) BytesPerSample() uint {
	return e.PCMFormat.Size()
}

// BytesForDuration returns the amount of bytes a single channel takes for
// the given duration.
func (e EncodingPCM) BytesForDuration(d time.Duration) uint64 {
	samples := uint64(d) * uint64(e.SampleRate) / uint64(time.Second)
	return samples * uint64(e.BytesPerSample())
}

func (e EncodingPCM) DurationForBytes(channels Channel, size uint64) time.Duration {
	if e.SampleRate == 0 || channels == 0 || e.BytesPerSample() == 0 {
		return 0
	}
	samples := size / uint64(e.BytesPerSample()) / uint64(channels)
	return time.Duration(samples) * time.Second / time.Duration(e.SampleRate)
}
