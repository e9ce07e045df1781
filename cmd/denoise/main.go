package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/noisefilter/pkg/audio"
	"github.com/xaionaro-go/noisefilter/pkg/audio/codec"
	"github.com/xaionaro-go/noisefilter/pkg/audio/resampler"
	"github.com/xaionaro-go/noisefilter/pkg/deepfilter"
	"github.com/xaionaro-go/noisefilter/pkg/deepfilter/implementations/libdf"
	deepfilterns "github.com/xaionaro-go/noisefilter/pkg/noisesuppression/implementations/deepfilter"
	"github.com/xaionaro-go/noisefilter/pkg/vad"
	"github.com/xaionaro-go/noisefilter/pkg/vad/implementations/fvad"
	vadns "github.com/xaionaro-go/noisefilter/pkg/vad/implementations/noisesuppression"
	"github.com/xaionaro-go/observability"
)

const (
	vadImplDeepFilter = "deepfilter"
	vadImplFVAD       = "fvad"
)

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	modelPath := pflag.String("model", "", "path to the DeepFilterNet model archive")
	attenuationLimit := pflag.Float32("attenuation-limit", deepfilter.DefaultAttenuationLimitDB, "maximal noise attenuation in dB")
	postFilterBeta := pflag.Float32("post-filter-beta", 0, "post filter beta; the post filter is not configured unless the flag is set")
	inputFormatFlag := pflag.String("input-format", "", "format of the input: raw, wav, mp3 or vorbis; detected by the file extension if empty")
	rawPCMFormat := pflag.String("raw-pcm-format", audio.PCMFormatS16LE.String(), "PCM format of a raw input")
	rawSampleRate := pflag.Uint32("raw-sample-rate", 48000, "sample rate of a raw input")
	rawChannels := pflag.Uint32("raw-channels", 1, "amount of channels of a raw input")
	vadThreshold := pflag.Float64("vad-threshold", 0, "report the first voice activity with a metric of at least this value; disabled unless the flag is set")
	vadMinDuration := pflag.Duration("vad-min-duration", 100*time.Millisecond, "minimal duration of a voice activity")
	vadImpl := pflag.String("vad-impl", vadImplDeepFilter, "voice activity detector: deepfilter or fvad")
	vadMode := pflag.Int("vad-mode", int(fvad.ModeAggressive), "aggressiveness of the fvad detector, from 0 to 3")
	pflag.Parse()

	if pflag.NArg() != 2 {
		panic(fmt.Errorf("expected exactly two arguments: <input-file> <output-file>"))
	}
	if *modelPath == "" {
		panic(fmt.Errorf("--model is required"))
	}
	inputPath, outputPath := pflag.Arg(0), pflag.Arg(1)

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func() { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	inputFormat := codec.FormatFromPath(inputPath)
	if *inputFormatFlag != "" {
		inputFormat = codec.FormatFromString(*inputFormatFlag)
	}
	inputFile, err := os.Open(inputPath)
	assertNoError(err)
	input, err := codec.Decode(ctx, inputFile, inputFormat, codec.RawParams{
		PCMFormat:  audio.PCMFormatFromString(*rawPCMFormat),
		SampleRate: audio.SampleRate(*rawSampleRate),
		Channels:   audio.Channel(*rawChannels),
	})
	assertNoError(err)
	assertNoError(inputFile.Close())
	logger.Infof(ctx, "decoded %d bytes: %dHz, %d channels", len(input.Data), input.SampleRate, input.Channels)

	engine, err := libdf.New()
	assertNoError(err)

	model, err := deepfilter.LoadModelFile(ctx, *modelPath)
	assertNoError(err)

	opts := []deepfilter.Option{deepfilter.OptionAttenuationLimit(*attenuationLimit)}
	if pflag.CommandLine.Changed("post-filter-beta") {
		opts = append(opts, deepfilter.OptionPostFilterBeta(*postFilterBeta))
	}
	noiseSuppressor, err := deepfilterns.New(ctx, engine, model, input.Channels, opts...)
	assertNoError(err)
	defer noiseSuppressor.Close()

	enc, err := noiseSuppressor.Encoding(ctx)
	assertNoError(err)
	encPCM := enc.(audio.EncodingPCM)

	fileFormat := resampler.Format{
		Channels:   input.Channels,
		SampleRate: input.SampleRate,
		PCMFormat:  audio.PCMFormatS16LE,
	}
	suppressorFormat := resampler.Format{
		Channels:   input.Channels,
		SampleRate: encPCM.SampleRate,
		PCMFormat:  encPCM.PCMFormat,
	}

	samples := convert(ctx, fileFormat, input.Data, suppressorFormat)
	samplesLength := len(samples)
	chunkSize := int(noiseSuppressor.ChunkSize())
	if tailSize := len(samples) % chunkSize; tailSize != 0 || len(samples) == 0 {
		samples = append(samples, make([]byte, chunkSize-tailSize)...)
	}

	if pflag.CommandLine.Changed("vad-threshold") {
		var v vad.VAD
		vadSamples := samples
		switch *vadImpl {
		case vadImplDeepFilter:
			// the suppressor is recurrent, so the analysis gets its own sessions
			vadSuppressor, err := deepfilterns.New(ctx, engine, model, input.Channels, opts...)
			assertNoError(err)
			v, err = vadns.NewVAD(ctx, vadSuppressor, *vadMinDuration)
			assertNoError(err)
		case vadImplFVAD:
			fvadVAD, err := fvad.NewVAD(ctx, fvad.DefaultSampleRate, fvad.Mode(*vadMode), fvad.DefaultFrameDuration)
			assertNoError(err)
			vadSamples = convert(ctx, fileFormat, input.Data, resampler.Format{
				Channels:   1,
				SampleRate: fvadVAD.SampleRate,
				PCMFormat:  audio.PCMFormatS16Native(),
			})
			v = fvadVAD
		default:
			panic(fmt.Errorf("unknown VAD implementation %q", *vadImpl))
		}
		reportVoice(ctx, v, vadSamples, *vadThreshold, *vadMinDuration)
		assertNoError(v.Close())
	}

	output := make([]byte, len(samples))
	startedAt := time.Now()
	metric, err := noiseSuppressor.SuppressNoise(ctx, samples, output)
	assertNoError(err)
	logger.Infof(ctx, "suppressed the noise in %d bytes in %v; the maximal metric is %v", len(samples), time.Since(startedAt), metric)

	result := &codec.PCM{
		Data:       convert(ctx, suppressorFormat, output[:samplesLength], fileFormat),
		SampleRate: input.SampleRate,
		Channels:   input.Channels,
	}

	outputFile, err := os.Create(outputPath)
	assertNoError(err)
	if codec.FormatFromPath(outputPath) == codec.FormatWAV {
		assertNoError(codec.EncodeWAV(outputFile, result))
	} else {
		_, err = outputFile.Write(result.Data)
		assertNoError(err)
	}
	assertNoError(outputFile.Close())
}

func convert(
	ctx context.Context,
	inFormat resampler.Format,
	data []byte,
	outFormat resampler.Format,
) []byte {
	if inFormat == outFormat {
		return data
	}
	r, err := resampler.NewResampler(inFormat, bytes.NewReader(data), outFormat)
	assertNoError(err)
	rc := datacounter.NewReaderCounter(r)
	result, err := io.ReadAll(rc)
	assertNoError(err)
	logger.Debugf(ctx, "converted %d bytes of %s to %d bytes of %s", len(data), inFormat, rc.Count(), outFormat)
	return result
}

func reportVoice(
	ctx context.Context,
	v vad.VAD,
	samples []byte,
	threshold float64,
	minDuration time.Duration,
) {
	maxMetric, firstVoice, err := v.FindNextVoice(ctx, samples, threshold, minDuration)
	assertNoError(err)
	if firstVoice < 0 {
		logger.Infof(ctx, "no voice found; the maximal metric is %v", maxMetric)
		return
	}
	logger.Infof(ctx, "the first voice is at %v; the maximal metric is %v", firstVoice, maxMetric)
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
