package noisesuppressionstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/iamcalledrob/circular"
	"github.com/xaionaro-go/noisefilter/pkg/noisesuppression"
	"github.com/xaionaro-go/observability"
)

const (
	readBufferSize = 65536
)

// Stream reads PCM from the input, passes it through the noise suppressor
// and provides the result via Read.
type Stream struct {
	noisesuppression.NoiseSuppression
	readCtx        context.Context
	cancelFn       context.CancelFunc
	suppressorDone chan struct{}

	inputBufferLocker sync.Mutex
	inputBuffer       *circular.Buffer
	inputEOF          bool
	inputWritten      signal
	inputConsumed     signal

	outputBufferLocker sync.Mutex
	outputBuffer       *circular.Buffer
	outputEOF          bool
	resultError        error
	outputWritten      signal
	outputConsumed     signal

	lastMetric atomic.Uint64
}

var _ io.ReadCloser = (*Stream)(nil)

func New(
	ctx context.Context,
	input io.Reader,
	noiseSuppression noisesuppression.NoiseSuppression,
	inputBufferSize uint,
	outputBufferSize uint,
) (*Stream, error) {
	encoding, err := noiseSuppression.Encoding(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get the encoding of the noise suppression: %w", err)
	}
	channels, err := noiseSuppression.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get the amount of channels of the noise suppression: %w", err)
	}
	chunkSize := noiseSuppression.ChunkSize()
	if chunkSize == 0 {
		return nil, fmt.Errorf("the noise suppression reported a zero chunk size")
	}
	frameSize := encoding.BytesPerSample() * uint(channels)
	if frameSize == 0 || chunkSize%frameSize != 0 {
		return nil, fmt.Errorf("the chunk size %d is not a multiple of the frame size %d", chunkSize, frameSize)
	}
	if inputBufferSize < 2*chunkSize || outputBufferSize < 2*chunkSize {
		return nil, fmt.Errorf("the buffers (%d, %d) should be at least twice the chunk size %d", inputBufferSize, outputBufferSize, chunkSize)
	}

	ctx, cancelFn := context.WithCancel(ctx)
	s := &Stream{
		NoiseSuppression: noiseSuppression,
		readCtx:          ctx,
		cancelFn:         cancelFn,
		suppressorDone:   make(chan struct{}),
		inputBuffer:      circular.NewBuffer(int(inputBufferSize)),
		inputWritten:     newSignal(),
		inputConsumed:    newSignal(),
		outputBuffer:     circular.NewBuffer(int(outputBufferSize)),
		outputWritten:    newSignal(),
		outputConsumed:   newSignal(),
	}
	s.lastMetric.Store(math.Float64bits(math.NaN()))

	readSize := min(readBufferSize, int(inputBufferSize/2))
	observability.Go(ctx, func() {
		err := s.readerLoop(ctx, input, readSize)
		if err != nil {
			s.setError(fmt.Errorf("got an error from the reader loop: %w", err))
		}
	})
	observability.Go(ctx, func() {
		defer close(s.suppressorDone)
		err := s.noiseSuppressionLoop(ctx, int(chunkSize))
		if err != nil {
			s.setError(fmt.Errorf("got an error from the noise suppressor loop: %w", err))
		}
	})
	return s, nil
}

func (s *Stream) setError(err error) {
	defer s.cancelFn()
	s.outputBufferLocker.Lock()
	defer s.outputBufferLocker.Unlock()
	if s.resultError == nil && !errors.Is(err, context.Canceled) {
		s.resultError = err
	}
	s.outputWritten.Notify()
}

// LastMetric returns the metric of the latest chunk processed by the noise
// suppressor, or NaN if nothing was processed yet.
func (s *Stream) LastMetric() float64 {
	return math.Float64frombits(s.lastMetric.Load())
}

func (s *Stream) readerLoop(
	ctx context.Context,
	input io.Reader,
	readSize int,
) (_err error) {
	logger.Tracef(ctx, "readerLoop")
	defer func() { logger.Tracef(ctx, "/readerLoop: %v", _err) }()

	readBuf := make([]byte, readSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := input.Read(readBuf)
		logger.Tracef(ctx, "readerLoop: Read(): %v %v", n, err)
		if n < 0 || n > len(readBuf) {
			return fmt.Errorf("received invalid value of received bytes: %d", n)
		}
		if n > 0 {
			if err := s.writeInput(ctx, readBuf[:n]); err != nil {
				return err
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			s.inputBufferLocker.Lock()
			defer s.inputBufferLocker.Unlock()
			s.inputEOF = true
			s.inputWritten.Notify()
			return nil
		default:
			return fmt.Errorf("unable to read the input: %w", err)
		}
	}
}

func (s *Stream) writeInput(
	ctx context.Context,
	data []byte,
) error {
	s.inputBufferLocker.Lock()
	defer s.inputBufferLocker.Unlock()
	return writeAll(ctx, &s.inputBufferLocker, s.inputBuffer, data, &s.inputWritten, &s.inputConsumed)
}

// writeAll writes data into the buffer, waiting for the consumer each time
// the buffer is full. The locker must be held by the caller.
func writeAll(
	ctx context.Context,
	locker sync.Locker,
	buffer *circular.Buffer,
	data []byte,
	written *signal,
	consumed *signal,
) error {
	for len(data) > 0 {
		w, err := buffer.Write(data)
		if w < 0 || w > len(data) {
			return fmt.Errorf("invalid amount of written bytes: %d (of %d)", w, len(data))
		}
		if w > 0 {
			data = data[w:]
			written.Notify()
		}
		switch {
		case err == nil:
		case errors.Is(err, circular.ErrNoSpace):
			if err := waitFor(ctx, locker, consumed); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unable to write to the circular buffer: %w", err)
		}
	}
	return nil
}

// waitFor unlocks the locker until the signal fires or the context is done.
func waitFor(
	ctx context.Context,
	locker sync.Locker,
	sig *signal,
) error {
	ch := sig.C()
	locker.Unlock()
	defer locker.Lock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// readChunk fills chunk from the input buffer. A short count is returned
// only if the input is finished.
func (s *Stream) readChunk(
	ctx context.Context,
	chunk []byte,
) (int, error) {
	s.inputBufferLocker.Lock()
	defer s.inputBufferLocker.Unlock()

	receivedCount := 0
	for {
		n, err := s.inputBuffer.Read(chunk[receivedCount:])
		if err != nil && !errors.Is(err, io.EOF) {
			return receivedCount, fmt.Errorf("unable to read from the circular buffer: %w", err)
		}
		if n < 0 {
			return receivedCount, fmt.Errorf("received a negative count: %d", n)
		}
		receivedCount += n
		if n > 0 {
			s.inputConsumed.Notify()
		}
		if receivedCount >= len(chunk) || s.inputEOF {
			return receivedCount, nil
		}
		if err := waitFor(ctx, &s.inputBufferLocker, &s.inputWritten); err != nil {
			return receivedCount, err
		}
	}
}

func (s *Stream) noiseSuppressionLoop(
	ctx context.Context,
	chunkSize int,
) (_err error) {
	logger.Tracef(ctx, "noiseSuppressionLoop")
	defer func() { logger.Tracef(ctx, "/noiseSuppressionLoop: %v", _err) }()
	logger.Debugf(ctx, "chunkSize: %d", chunkSize)

	inputBuf := make([]byte, chunkSize)
	outputBuf := make([]byte, chunkSize)
	for {
		receivedCount, err := s.readChunk(ctx, inputBuf)
		if err != nil {
			return err
		}
		if receivedCount == 0 {
			s.outputBufferLocker.Lock()
			defer s.outputBufferLocker.Unlock()
			s.outputEOF = true
			s.outputWritten.Notify()
			return nil
		}

		for idx := receivedCount; idx < chunkSize; idx++ {
			inputBuf[idx] = 0
		}

		metric, err := s.NoiseSuppression.SuppressNoise(ctx, inputBuf, outputBuf)
		logger.Tracef(ctx, "SuppressNoise: %v %v", metric, err)
		if err != nil {
			return fmt.Errorf("unable to noise-suppress: %w", err)
		}
		s.lastMetric.Store(math.Float64bits(metric))

		if err := s.writeOutput(ctx, outputBuf[:receivedCount]); err != nil {
			return err
		}
	}
}

func (s *Stream) writeOutput(
	ctx context.Context,
	data []byte,
) error {
	s.outputBufferLocker.Lock()
	defer s.outputBufferLocker.Unlock()
	return writeAll(ctx, &s.outputBufferLocker, s.outputBuffer, data, &s.outputWritten, &s.outputConsumed)
}

// Read returns the denoised PCM. It blocks until some data is available and
// returns io.EOF after the input is finished and everything is read.
func (s *Stream) Read(pcm []byte) (_ret int, _err error) {
	logger.Tracef(s.readCtx, "Read, len:%d", len(pcm))
	defer func() { logger.Tracef(s.readCtx, "/Read, len:%d: %d, %v", len(pcm), _ret, _err) }()

	s.outputBufferLocker.Lock()
	defer s.outputBufferLocker.Unlock()
	for {
		if s.resultError != nil {
			return 0, s.resultError
		}
		n, err := s.outputBuffer.Read(pcm)
		if n > 0 {
			s.outputConsumed.Notify()
			return n, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if s.outputEOF {
			return 0, io.EOF
		}
		if err := waitFor(s.readCtx, &s.outputBufferLocker, &s.outputWritten); err != nil {
			if s.resultError != nil {
				return 0, s.resultError
			}
			return 0, io.ErrClosedPipe
		}
	}
}

// Close stops the processing and waits until the noise suppressor is not
// used anymore. It closes neither the input nor the noise suppressor; a
// reader blocked on the input is abandoned.
func (s *Stream) Close() error {
	s.cancelFn()
	<-s.suppressorDone
	return nil
}
