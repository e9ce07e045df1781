package portaudio

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"github.com/xaionaro-go/noisefilter/pkg/audio/types"
)

type sample interface {
	~uint8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// newSampleBuffer allocates an interleaved buffer for the given duration
// and returns it together with its byte view.
func newSampleBuffer[T sample](
	sampleRate types.SampleRate,
	channels types.Channel,
	duration time.Duration,
) ([]T, []byte, int, error) {
	framesPerBuffer := int(duration.Seconds() * float64(sampleRate))
	if framesPerBuffer <= 0 || channels == 0 {
		return nil, nil, 0, fmt.Errorf("invalid buffer parameters: %d %d %v", sampleRate, channels, duration)
	}
	buf := make([]T, framesPerBuffer*int(channels))
	var zeroSample T
	bytesBuf := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(buf))), len(buf)*int(unsafe.Sizeof(zeroSample)))
	return buf, bytesBuf, framesPerBuffer, nil
}

// bufferPipeline passes byte buffers between a producer and a consumer,
// so that the producer may fill one buffer while the other one is consumed.
type bufferPipeline struct {
	free   chan []byte
	filled chan []byte
}

func newBufferPipeline(bufferSize int) *bufferPipeline {
	p := &bufferPipeline{
		free:   make(chan []byte, 2),
		filled: make(chan []byte, 2),
	}
	p.free <- make([]byte, bufferSize)
	p.free <- make([]byte, bufferSize)
	return p
}

func (p *bufferPipeline) getFree(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case buf := <-p.free:
		return buf, nil
	}
}

func (p *bufferPipeline) putFilled(ctx context.Context, buf []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.filled <- buf:
		return nil
	}
}

func (p *bufferPipeline) getFilled(ctx context.Context) ([]byte, bool) {
	select {
	case <-ctx.Done():
		return nil, false
	case buf, ok := <-p.filled:
		return buf, ok
	}
}

func (p *bufferPipeline) putFree(buf []byte) {
	p.free <- buf
}

// closeFilled is called by the producer when nothing more will be produced.
func (p *bufferPipeline) closeFilled() {
	close(p.filled)
}
