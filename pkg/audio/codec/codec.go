package codec

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/facebookincubator/go-belt/tool/logger"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/xaionaro-go/noisefilter/pkg/audio"
	"github.com/xaionaro-go/noisefilter/pkg/audio/resampler"
)

const (
	wavFormatPCM = 1
	bitDepth     = 16
	sampleSize   = bitDepth / 8
)

// PCM is decoded audio: interleaved signed 16 bit little-endian samples.
type PCM struct {
	Data       []byte
	SampleRate audio.SampleRate
	Channels   audio.Channel
}

func (pcm *PCM) FrameSize() int {
	return int(pcm.Channels) * sampleSize
}

// RawParams describes headerless input.
type RawParams struct {
	PCMFormat  audio.PCMFormat
	SampleRate audio.SampleRate
	Channels   audio.Channel
}

func Decode(
	ctx context.Context,
	r io.ReadSeeker,
	format Format,
	rawParams RawParams,
) (_ret *PCM, _err error) {
	logger.Debugf(ctx, "Decode: %s", format)
	defer func() {
		if _ret != nil {
			logger.Debugf(ctx, "/Decode: %s: %d bytes, %dHz, %dch", format, len(_ret.Data), _ret.SampleRate, _ret.Channels)
		}
		logger.Debugf(ctx, "/Decode: %s: %v", format, _err)
	}()

	switch format {
	case FormatRaw:
		return decodeRaw(r, rawParams)
	case FormatWAV:
		return decodeWAV(r)
	case FormatMP3:
		return decodeMP3(r)
	case FormatVorbis:
		return decodeVorbis(r)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func decodeRaw(
	r io.Reader,
	params RawParams,
) (*PCM, error) {
	if params.SampleRate == 0 || params.Channels == 0 {
		return nil, fmt.Errorf("sample rate and channels are required for raw PCM, received %d and %d", params.SampleRate, params.Channels)
	}
	if params.PCMFormat != audio.PCMFormatS16LE {
		format := resampler.Format{
			Channels:   params.Channels,
			SampleRate: params.SampleRate,
			PCMFormat:  params.PCMFormat,
		}
		outFormat := format
		outFormat.PCMFormat = audio.PCMFormatS16LE
		converter, err := resampler.NewResampler(format, r, outFormat)
		if err != nil {
			return nil, fmt.Errorf("unable to convert %s to %s: %w", format, outFormat, err)
		}
		r = converter
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read the raw PCM: %w", err)
	}
	pcm := &PCM{
		Data:       data,
		SampleRate: params.SampleRate,
		Channels:   params.Channels,
	}
	pcm.Data = pcm.Data[:len(pcm.Data)-len(pcm.Data)%pcm.FrameSize()]
	return pcm, nil
}

func decodeWAV(r io.ReadSeeker) (*PCM, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("only integer PCM WAV files are supported, received audio format %d", dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("unable to decode WAV: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid WAV format: %#+v", buf.Format)
	}

	var toS16 func(int) int16
	switch dec.BitDepth {
	case 8:
		toS16 = func(v int) int16 { return int16((v - 128) << 8) }
	case 16:
		toS16 = func(v int) int16 { return int16(v) }
	case 24:
		toS16 = func(v int) int16 { return int16(v >> 8) }
	case 32:
		toS16 = func(v int) int16 { return int16(v >> 16) }
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d", dec.BitDepth)
	}

	data := make([]byte, 0, len(buf.Data)*sampleSize)
	for _, v := range buf.Data {
		data = binary.LittleEndian.AppendUint16(data, uint16(toS16(v)))
	}
	pcm := &PCM{
		Data:       data,
		SampleRate: audio.SampleRate(buf.Format.SampleRate),
		Channels:   audio.Channel(buf.Format.NumChannels),
	}
	pcm.Data = pcm.Data[:len(pcm.Data)-len(pcm.Data)%pcm.FrameSize()]
	return pcm, nil
}

// decodeMP3 relies on go-mp3 always producing stereo S16LE.
func decodeMP3(r io.Reader) (*PCM, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the MP3 decoder: %w", err)
	}
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("unable to decode MP3: %w", err)
	}
	pcm := &PCM{
		Data:       data,
		SampleRate: audio.SampleRate(dec.SampleRate()),
		Channels:   2,
	}
	pcm.Data = pcm.Data[:len(pcm.Data)-len(pcm.Data)%pcm.FrameSize()]
	return pcm, nil
}

func decodeVorbis(r io.Reader) (*PCM, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the Vorbis decoder: %w", err)
	}
	channels := dec.Channels()
	if channels <= 0 {
		return nil, fmt.Errorf("invalid amount of channels: %d", channels)
	}

	var out bytes.Buffer
	samples := make([]float32, 4096*channels)
	sampleBuf := make([]byte, 0, len(samples)*sampleSize)
	for {
		n, err := dec.Read(samples)
		sampleBuf = sampleBuf[:0]
		for _, v := range samples[:n] {
			sampleBuf = binary.LittleEndian.AppendUint16(sampleBuf, uint16(floatToS16(v)))
		}
		out.Write(sampleBuf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to decode Vorbis: %w", err)
		}
	}

	pcm := &PCM{
		Data:       out.Bytes(),
		SampleRate: audio.SampleRate(dec.SampleRate()),
		Channels:   audio.Channel(channels),
	}
	pcm.Data = pcm.Data[:len(pcm.Data)-len(pcm.Data)%pcm.FrameSize()]
	return pcm, nil
}

func floatToS16(v float32) int16 {
	return int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, math.Round(float64(v)*32768))))
}

// EncodeWAV writes the PCM as a 16 bit WAV file.
func EncodeWAV(w io.WriteSeeker, pcm *PCM) error {
	if pcm.SampleRate == 0 || pcm.Channels == 0 {
		return fmt.Errorf("invalid PCM parameters: %dHz, %dch", pcm.SampleRate, pcm.Channels)
	}
	enc := wav.NewEncoder(w, int(pcm.SampleRate), bitDepth, int(pcm.Channels), wavFormatPCM)

	samples := make([]int, len(pcm.Data)/sampleSize)
	for idx := range samples {
		samples[idx] = int(int16(binary.LittleEndian.Uint16(pcm.Data[idx*sampleSize:])))
	}
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: int(pcm.Channels),
			SampleRate:  int(pcm.SampleRate),
		},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("unable to write the WAV samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("unable to finalize the WAV file: %w", err)
	}
	return nil
}
