package audio

import (
	"context"
	"io"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/noisefilter/pkg/audio/registry"
)

const BufferSize = 100 * time.Millisecond

type Player struct {
	PlayerPCM
}

func NewPlayer(playerPCM PlayerPCM) *Player {
	return &Player{
		PlayerPCM: playerPCM,
	}
}

var lastSuccessfulPlayer lastSuccessful[PlayerPCM]

// NewPlayerAuto picks the highest priority player backend that works on this
// machine. If none works, the returned player silently discards everything.
func NewPlayerAuto(
	ctx context.Context,
) *Player {
	player, err := autoSelect(ctx, "player", &lastSuccessfulPlayer, registry.PlayerFactories())
	if err != nil {
		logger.Infof(ctx, "was unable to initialize any PCM player: %v", err)
		return NewPlayer(PlayerPCMDummy{})
	}
	return NewPlayer(player)
}

func (a *Player) PlayPCM(
	ctx context.Context,
	sampleRate SampleRate,
	channels Channel,
	pcmFormat PCMFormat,
	bufferSize time.Duration,
	pcmReader io.Reader,
) (PlayStream, error) {
	logger.Tracef(ctx, "PlayPCM: %d %d %s %v", sampleRate, channels, pcmFormat, bufferSize)
	return a.PlayerPCM.PlayPCM(
		ctx,
		sampleRate,
		channels,
		pcmFormat,
		bufferSize,
		pcmReader,
	)
}
