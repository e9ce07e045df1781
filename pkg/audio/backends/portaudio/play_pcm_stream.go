package portaudio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gordonklaus/portaudio"
	"github.com/xaionaro-go/noisefilter/pkg/audio/types"
	"github.com/xaionaro-go/observability"
)

type PlayPCMStream struct {
	PortAudioStream *portaudio.Stream
	OutputBuffer    []byte
	Pipeline        *bufferPipeline
	CancelFunc      context.CancelFunc
	WaitGroup       sync.WaitGroup
	CloseOnce       sync.Once
	CloseErr        error
}

var _ types.PlayStream = (*PlayPCMStream)(nil)

func newPlayPCMStream[T sample](
	ctx context.Context,
	sampleRate types.SampleRate,
	channels types.Channel,
	bufferSize time.Duration,
) (*PlayPCMStream, error) {
	buf, bytesBuf, framesPerBuffer, err := newSampleBuffer[T](sampleRate, channels, bufferSize)
	if err != nil {
		return nil, err
	}
	logger.Debugf(ctx, "newPlayPCMStream: %T, %d, %d %s(%d)", buf, sampleRate, channels, bufferSize, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, int(channels), float64(sampleRate), framesPerBuffer, &buf)
	if err != nil {
		return nil, err
	}

	return &PlayPCMStream{
		PortAudioStream: stream,
		OutputBuffer:    bytesBuf,
		Pipeline:        newBufferPipeline(len(bytesBuf)),
	}, nil
}

func (s *PlayPCMStream) start(
	ctx context.Context,
	reader io.Reader,
) error {
	if err := s.PortAudioStream.Start(); err != nil {
		return err
	}

	ctx, s.CancelFunc = context.WithCancel(ctx)
	s.WaitGroup.Add(2)
	observability.Go(ctx, func() {
		defer s.WaitGroup.Done()
		defer s.Pipeline.closeFilled()
		err := s.readerLoop(ctx, reader)
		logger.Debugf(ctx, "readerLoop: %v", err)
	})
	observability.Go(ctx, func() {
		defer s.WaitGroup.Done()
		defer s.CancelFunc()
		err := s.writerLoop(ctx)
		logger.Debugf(ctx, "writerLoop: %v", err)
	})
	return nil
}

// readerLoop fills buffers from the reader. The last incomplete buffer is
// padded with silence.
func (s *PlayPCMStream) readerLoop(
	ctx context.Context,
	reader io.Reader,
) error {
	for {
		buf, err := s.Pipeline.getFree(ctx)
		if err != nil {
			return err
		}
		n, err := io.ReadFull(reader, buf)
		logger.Tracef(ctx, "ReadFull: %d %v", n, err)
		if n == 0 {
			return err
		}
		clear(buf[n:])
		if err := s.Pipeline.putFilled(ctx, buf); err != nil {
			return err
		}
		switch {
		case err == nil:
		case errors.Is(err, io.ErrUnexpectedEOF):
			return io.EOF
		default:
			return err
		}
	}
}

func (s *PlayPCMStream) writerLoop(
	ctx context.Context,
) error {
	for {
		buf, ok := s.Pipeline.getFilled(ctx)
		if !ok {
			return nil
		}
		copy(s.OutputBuffer, buf)
		s.Pipeline.putFree(buf)

		err := s.PortAudioStream.Write()
		logger.Tracef(ctx, "Write: %v", err)
		if err != nil {
			return fmt.Errorf("unable to write: %w", err)
		}
	}
}

// Drain waits until everything read from the reader is played.
func (s *PlayPCMStream) Drain() error {
	s.WaitGroup.Wait()
	return nil
}

func (s *PlayPCMStream) Close() error {
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
