package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/noisefilter/pkg/audio"
	_ "github.com/xaionaro-go/noisefilter/pkg/audio/backends/oto"
	_ "github.com/xaionaro-go/noisefilter/pkg/audio/backends/portaudio"
	"github.com/xaionaro-go/noisefilter/pkg/audio/backends/pulseaudio"
	"github.com/xaionaro-go/noisefilter/pkg/deepfilter"
	"github.com/xaionaro-go/noisefilter/pkg/deepfilter/implementations/libdf"
	deepfilterns "github.com/xaionaro-go/noisefilter/pkg/noisesuppression/implementations/deepfilter"
	"github.com/xaionaro-go/noisefilter/pkg/noisesuppressionstream"
	"github.com/xaionaro-go/observability"
)

const (
	sampleRate = 48000
	pcmFormat  = audio.PCMFormatS16LE
)

func main() {
	loggerLevel := logger.LevelDebug
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	channels := pflag.Uint32("channels", 2, "amount of channels to record and play")
	modelPath := pflag.String("model", "", "path to the DeepFilterNet model archive; enables noise suppression if set")
	attenuationLimit := pflag.Float32("attenuation-limit", deepfilter.DefaultAttenuationLimitDB, "maximal noise attenuation in dB")
	postFilterBeta := pflag.Float32("post-filter-beta", 0, "post filter beta; the post filter is not configured unless the flag is set")
	pflag.Parse()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt)
	defer cancelFn()

	if *netPprofAddr != "" {
		observability.Go(ctx, func() { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	logger.Infof(ctx, "starting...")
	recorder := audio.NewRecorderAuto(ctx)
	defer recorder.Close()

	player := audio.NewPlayerAuto(ctx)
	defer player.Close()

	var r io.Reader
	pipeReader, pipeWriter := io.Pipe()
	r = pipeReader
	wc := datacounter.NewWriterCounter(pipeWriter)

	logger.Tracef(ctx, "recorder.RecordPCM")
	streamRecord, err := recorder.RecordPCM(ctx, sampleRate, audio.Channel(*channels), pcmFormat, wc)
	logger.Tracef(ctx, "/recorder.RecordPCM: %v", err)
	assertNoError(err)
	defer func() {
		assertNoError(streamRecord.Close())
	}()

	var stream *noisesuppressionstream.Stream
	if *modelPath != "" {
		stream = newNoiseSuppressionStream(ctx, r, audio.Channel(*channels), *modelPath, *attenuationLimit, postFilterBeta)
		defer stream.NoiseSuppression.Close()
		defer stream.Close()
		r = stream
	}

	observability.Go(ctx, func() {
		logger.Tracef(ctx, "started the traffic count printer loop")
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				logger.Debugf(ctx, "written: %d", wc.Count())
				if stream != nil {
					logger.Debugf(ctx, "last metric: %v", stream.LastMetric())
				}
				if pulseStreamRecord, ok := streamRecord.(*pulseaudio.RecordStream); ok {
					logger.Debugf(ctx, "record stream status: running:%v, closed:%v, err:%v",
						pulseStreamRecord.RecordStream.Running(), pulseStreamRecord.RecordStream.Closed(), pulseStreamRecord.RecordStream.Error())
				}
			}
		}
	})

	logger.Tracef(ctx, "player.PlayPCM")
	streamPlay, err := player.PlayPCM(ctx, sampleRate, audio.Channel(*channels), pcmFormat, audio.BufferSize, r)
	logger.Tracef(ctx, "/player.PlayPCM: %v", err)
	assertNoError(err)
	defer func() {
		assertNoError(streamPlay.Close())
	}()

	logger.Infof(ctx, "started (%T -> %T)", recorder.RecorderPCM, player.PlayerPCM)
	<-ctx.Done()
	logger.Infof(ctx, "stopping...")
	pipeWriter.Close()
}

func newNoiseSuppressionStream(
	ctx context.Context,
	r io.Reader,
	channels audio.Channel,
	modelPath string,
	attenuationLimit float32,
	postFilterBeta *float32,
) *noisesuppressionstream.Stream {
	engine, err := libdf.New()
	assertNoError(err)

	opts := []deepfilter.Option{deepfilter.OptionAttenuationLimit(attenuationLimit)}
	if pflag.CommandLine.Changed("post-filter-beta") {
		opts = append(opts, deepfilter.OptionPostFilterBeta(*postFilterBeta))
	}

	model, err := deepfilter.LoadModelFile(ctx, modelPath)
	assertNoError(err)

	logger.Tracef(ctx, "deepfilter.New(%d)", channels)
	noiseSuppressor, err := deepfilterns.New(ctx, engine, model, channels, opts...)
	logger.Tracef(ctx, "/deepfilter.New(%d): %v", channels, err)
	assertNoError(err)

	enc, err := noiseSuppressor.Encoding(ctx)
	assertNoError(err)
	encPCM := enc.(audio.EncodingPCM)
	if encPCM.PCMFormat != pcmFormat || encPCM.SampleRate != sampleRate {
		panic(fmt.Errorf("unexpected encoding of the noise suppression: %s/%dHz", encPCM.PCMFormat, encPCM.SampleRate))
	}

	bufferSize := 16 * noiseSuppressor.ChunkSize()
	logger.Tracef(ctx, "noisesuppressionstream.New")
	stream, err := noisesuppressionstream.New(ctx, r, noiseSuppressor, bufferSize, bufferSize)
	logger.Tracef(ctx, "/noisesuppressionstream.New: %v", err)
	assertNoError(err)
	return stream
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
