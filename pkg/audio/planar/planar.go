package planar

import (
	"fmt"

	"github.com/xaionaro-go/noisefilter/pkg/audio"
)

// Planarize converts interleaved samples (L R L R ...) into one contiguous
// plane per channel (L L ... R R ...).
func Planarize(channels audio.Channel, sampleSize uint, output, input []byte) error {
	return convert(channels, sampleSize, output, input, true)
}

// Unplanarize is the inverse of Planarize.
func Unplanarize(channels audio.Channel, sampleSize uint, output, input []byte) error {
	return convert(channels, sampleSize, output, input, false)
}

func convert(
	channels audio.Channel,
	sampleSize uint,
	output, input []byte,
	toPlanar bool,
) error {
	if channels == 0 || sampleSize == 0 {
		return fmt.Errorf("invalid layout: channels:%d, sampleSize:%d", channels, sampleSize)
	}
	frameSize := int(channels) * int(sampleSize)
	if len(input) < frameSize {
		return fmt.Errorf("the provided input buffer is too short: %d < %d", len(input), frameSize)
	}
	if len(input)%frameSize != 0 {
		return fmt.Errorf("expected a message length that is a multiple of %d, but received %d", frameSize, len(input))
	}
	if len(input) != len(output) {
		return fmt.Errorf("the lengths of input and output are not equal: %d != %d", len(input), len(output))
	}

	samplesPerChan := len(input) / frameSize
	planeSize := samplesPerChan * int(sampleSize)
	for ch := 0; ch < int(channels); ch++ {
		for samplePos := 0; samplePos < samplesPerChan; samplePos++ {
			interleavedIdx := samplePos*frameSize + ch*int(sampleSize)
			planarIdx := ch*planeSize + samplePos*int(sampleSize)
			if toPlanar {
				copy(output[planarIdx:planarIdx+int(sampleSize)], input[interleavedIdx:interleavedIdx+int(sampleSize)])
			} else {
				copy(output[interleavedIdx:interleavedIdx+int(sampleSize)], input[planarIdx:planarIdx+int(sampleSize)])
			}
		}
	}

	return nil
}
