package oto

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/xaionaro-go/noisefilter/pkg/audio/types"
)

// oto allows only one context per process, so the output parameters are
// fixed and everything else is resampled.
const (
	BufferSize = 100 * time.Millisecond
	SampleRate = types.SampleRate(48000)
	Channels   = types.Channel(2)
	Format     = types.PCMFormatS16LE
)

var (
	otoContextOnce sync.Once
	otoContext     *oto.Context
	otoContextErr  error
)

func getOtoContext() (*oto.Context, error) {
	otoContextOnce.Do(func() {
		otoCtx, readyChan, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   int(SampleRate),
			ChannelCount: int(Channels),
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   BufferSize,
		})
		if err != nil {
			otoContextErr = fmt.Errorf("unable to initialize an oto context: %w", err)
			return
		}
		<-readyChan
		otoContext = otoCtx
	})
	return otoContext, otoContextErr
}
