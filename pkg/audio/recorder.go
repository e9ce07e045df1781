package audio

import (
	"context"
	"io"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/noisefilter/pkg/audio/registry"
)

type Recorder struct {
	RecorderPCM
}

func NewRecorder(recorderPCM RecorderPCM) *Recorder {
	return &Recorder{
		RecorderPCM: recorderPCM,
	}
}

var lastSuccessfulRecorder lastSuccessful[RecorderPCM]

func NewRecorderAuto(
	ctx context.Context,
) *Recorder {
	recorder, err := autoSelect(ctx, "recorder", &lastSuccessfulRecorder, registry.RecorderFactories())
	if err != nil {
		logger.Infof(ctx, "was unable to initialize any PCM recorder: %v", err)
		return NewRecorder(RecorderPCMDummy{})
	}
	return NewRecorder(recorder)
}

func (a *Recorder) RecordPCM(
	ctx context.Context,
	sampleRate SampleRate,
	channels Channel,
	pcmFormat PCMFormat,
	pcmWriter io.Writer,
) (RecordStream, error) {
	logger.Tracef(ctx, "RecordPCM: %d %d %s", sampleRate, channels, pcmFormat)
	return a.RecorderPCM.RecordPCM(
		ctx,
		sampleRate,
		channels,
		pcmFormat,
		pcmWriter,
	)
}
