package pulseaudio

import (
	"fmt"

	"github.com/jfreymuth/pulse"
	"github.com/xaionaro-go/noisefilter/pkg/audio/types"
)

type pulseStream interface {
	Stop()
	Close()
	Error() error
}

// closeStream stops the stream and closes it together with its client.
// The pulse client panics on closing an already broken connection.
func closeStream(client *pulse.Client, stream pulseStream) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("got a panic: %v", r)
		}
	}()
	stream.Stop()
	stream.Close()
	client.Close()
	return nil
}

type PlayStream struct {
	Client         *pulse.Client
	PlaybackStream *pulse.PlaybackStream
}

var _ types.PlayStream = (*PlayStream)(nil)

func newPlayStream(
	client *pulse.Client,
	stream *pulse.PlaybackStream,
) *PlayStream {
	return &PlayStream{
		Client:         client,
		PlaybackStream: stream,
	}
}

func (stream *PlayStream) Drain() error {
	stream.PlaybackStream.Drain()
	if err := stream.PlaybackStream.Error(); err != nil {
		return fmt.Errorf("an error occurred during playback: %w", err)
	}
	if stream.PlaybackStream.Underflow() {
		return fmt.Errorf("underflow")
	}
	return nil
}

func (stream *PlayStream) Close() error {
	return closeStream(stream.Client, stream.PlaybackStream)
}

type RecordStream struct {
	Client       *pulse.Client
	RecordStream *pulse.RecordStream
}

var _ types.RecordStream = (*RecordStream)(nil)

func newRecordStream(
	client *pulse.Client,
	stream *pulse.RecordStream,
) *RecordStream {
	return &RecordStream{
		Client:       client,
		RecordStream: stream,
	}
}

func (stream *RecordStream) Drain() error {
	if err := stream.RecordStream.Error(); err != nil {
		return fmt.Errorf("an error occurred during recording: %w", err)
	}
	return nil
}

func (stream *RecordStream) Close() error {
	return closeStream(stream.Client, stream.RecordStream)
}
