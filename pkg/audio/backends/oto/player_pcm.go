package oto

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/noisefilter/pkg/audio/resampler"
	"github.com/xaionaro-go/noisefilter/pkg/audio/types"
)

type PlayerPCM struct {
	OtoCtx *oto.Context
}

var _ types.PlayerPCM = (*PlayerPCM)(nil)

func NewPlayerPCM() (*PlayerPCM, error) {
	otoCtx, err := getOtoContext()
	if err != nil {
		return nil, fmt.Errorf("unable to get an oto context: %w", err)
	}

	return &PlayerPCM{
		OtoCtx: otoCtx,
	}, nil
}

func (p *PlayerPCM) Close() error {
	return nil
}

func (p *PlayerPCM) Ping(context.Context) error {
	return p.OtoCtx.Err()
}

func (p *PlayerPCM) PlayPCM(
	ctx context.Context,
	sampleRate types.SampleRate,
	channels types.Channel,
	format types.PCMFormat,
	bufferSize time.Duration,
	reader io.Reader,
) (_ types.PlayStream, _err error) {
	logger.Debugf(ctx, "PlayPCM: %d %d %s %v", sampleRate, channels, format, bufferSize)
	defer func() { logger.Debugf(ctx, "/PlayPCM: %v", _err) }()

	if bufferSize != BufferSize {
		return nil, fmt.Errorf("expected buffer size is %v, but received a request for %v", BufferSize, bufferSize)
	}
	if sampleRate != SampleRate || channels != Channels || format != Format {
		inFmt := resampler.Format{
			Channels:   channels,
			SampleRate: sampleRate,
			PCMFormat:  format,
		}
		outFmt := resampler.Format{
			Channels:   Channels,
			SampleRate: SampleRate,
			PCMFormat:  Format,
		}
		var err error
		reader, err = resampler.NewResampler(inFmt, reader, outFmt)
		if err != nil {
			return nil, fmt.Errorf("unable to initialize a resampler from %s to %s: %w", inFmt, outFmt, err)
		}
	}

	player := p.OtoCtx.NewPlayer(reader)
	player.Play()
	return newStream(player), nil
}
