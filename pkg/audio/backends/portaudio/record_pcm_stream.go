package portaudio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gordonklaus/portaudio"
	"github.com/xaionaro-go/noisefilter/pkg/audio/types"
	"github.com/xaionaro-go/observability"
)

const (
	RecordBufferSize = time.Millisecond * 100
)

type RecordPCMStream struct {
	PortAudioStream *portaudio.Stream
	InputBuffer     []byte
	Pipeline        *bufferPipeline
	CancelFunc      context.CancelFunc
	WaitGroup       sync.WaitGroup
	CloseOnce       sync.Once
	CloseErr        error

	ErrLocker sync.Mutex
	Err       error
}

var _ types.RecordStream = (*RecordPCMStream)(nil)

func newRecordPCMStream[T sample](
	ctx context.Context,
	sampleRate types.SampleRate,
	channels types.Channel,
) (*RecordPCMStream, error) {
	buf, bytesBuf, framesPerBuffer, err := newSampleBuffer[T](sampleRate, channels, RecordBufferSize)
	if err != nil {
		return nil, err
	}
	logger.Debugf(ctx, "newRecordPCMStream: %T, %d, %d %s(%d)", buf, sampleRate, channels, RecordBufferSize, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(int(channels), 0, float64(sampleRate), framesPerBuffer, buf)
	if err != nil {
		return nil, err
	}

	return &RecordPCMStream{
		PortAudioStream: stream,
		InputBuffer:     bytesBuf,
		Pipeline:        newBufferPipeline(len(bytesBuf)),
	}, nil
}

func (s *RecordPCMStream) start(
	ctx context.Context,
	writer io.Writer,
) error {
	if err := s.PortAudioStream.Start(); err != nil {
		return err
	}

	ctx, s.CancelFunc = context.WithCancel(ctx)
	s.WaitGroup.Add(2)
	observability.Go(ctx, func() {
		defer s.WaitGroup.Done()
		defer s.Pipeline.closeFilled()
		s.setErr(s.readerLoop(ctx))
	})
	observability.Go(ctx, func() {
		defer s.WaitGroup.Done()
		defer s.CancelFunc()
		s.setErr(s.writerLoop(ctx, writer))
	})
	return nil
}

func (s *RecordPCMStream) setErr(err error) {
	if err == nil {
		return
	}
	s.ErrLocker.Lock()
	defer s.ErrLocker.Unlock()
	if s.Err == nil {
		s.Err = err
	}
}

func (s *RecordPCMStream) readerLoop(
	ctx context.Context,
) error {
	for {
		err := s.PortAudioStream.Read()
		logger.Tracef(ctx, "Read: %v", err)
		if err != nil {
			return fmt.Errorf("unable to read: %w", err)
		}
		buf, err := s.Pipeline.getFree(ctx)
		if err != nil {
			return nil
		}
		copy(buf, s.InputBuffer)
		if err := s.Pipeline.putFilled(ctx, buf); err != nil {
			return nil
		}
	}
}

func (s *RecordPCMStream) writerLoop(
	ctx context.Context,
	writer io.Writer,
) error {
	for {
		buf, ok := s.Pipeline.getFilled(ctx)
		if !ok {
			return nil
		}
		n, err := writer.Write(buf)
		logger.Tracef(ctx, "Write: %d %v", n, err)
		s.Pipeline.putFree(buf)
		if err != nil {
			return fmt.Errorf("unable to write: %w", err)
		}
		if n != len(buf) {
			return fmt.Errorf("invalid write length: %d != %d", n, len(buf))
		}
	}
}

// Drain returns the first error met by the recording, if any.
func (s *RecordPCMStream) Drain() error {
	s.ErrLocker.Lock()
	defer s.ErrLocker.Unlock()
	return s.Err
}

func (s *RecordPCMStream) Close() error {
	s.CloseOnce.Do(func() {
		s.CancelFunc()
		if err := s.PortAudioStream.Abort(); err != nil {
			s.CloseErr = fmt.Errorf("unable to abort the stream: %w", err)
		}
		s.WaitGroup.Wait()
		if err := s.PortAudioStream.Close(); err != nil && s.CloseErr == nil {
			s.CloseErr = fmt.Errorf("unable to close the stream: %w", err)
		}
	})
	return s.CloseErr
}
