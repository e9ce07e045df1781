package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/observability"
)

// PlayerPCMDummy is the player used when no backend works: it consumes the
// PCM as fast as it is produced and drops it, so that a pipeline feeding the
// player keeps running.
type PlayerPCMDummy struct{}

var _ PlayerPCM = PlayerPCMDummy{}

func (PlayerPCMDummy) Close() error {
	return nil
}

func (PlayerPCMDummy) Ping(context.Context) error {
	return nil
}

func (PlayerPCMDummy) PlayPCM(
	ctx context.Context,
	sampleRate SampleRate,
	channels Channel,
	format PCMFormat,
	bufferSize time.Duration,
	reader io.Reader,
) (PlayStream, error) {
	if reader == nil {
		return nil, fmt.Errorf("the PCM reader is nil")
	}
	s := &discardingStream{
		counter: datacounter.NewWriterCounter(io.Discard),
		done:    make(chan struct{}),
	}
	observability.Go(ctx, func() {
		defer close(s.done)
		_, err := io.Copy(s.counter, reader)
		logger.Debugf(ctx, "the dummy player dropped %d bytes of %dHz/%dch/%s: %v", s.counter.Count(), sampleRate, channels, format, err)
		s.locker.Lock()
		defer s.locker.Unlock()
		s.err = err
	})
	return s, nil
}

type discardingStream struct {
	counter *datacounter.WriterCounter
	done    chan struct{}
	locker  sync.Mutex
	err     error
}

var _ PlayStream = (*discardingStream)(nil)

// Drain waits until the reader is exhausted.
func (s *discardingStream) Drain() error {
	<-s.done
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.err
}

// Close does not interrupt the reader; it is up to the caller to close it.
func (s *discardingStream) Close() error {
	return nil
}

// Dropped returns the amount of bytes consumed so far.
func (s *discardingStream) Dropped() uint64 {
	return s.counter.Count()
}
