package portaudio

import (
	"github.com/xaionaro-go/noisefilter/pkg/audio/registry"
	"github.com/xaionaro-go/noisefilter/pkg/audio/types"
)

const (
	Priority = 60
)

type backendKey struct{}

func init() {
	registry.RegisterPlayerFactory(Priority, backendKey{}, registry.FactoryFunc[types.PlayerPCM](func() (types.PlayerPCM, error) {
		return NewPlayerPCM()
	}))
	registry.RegisterRecorderFactory(Priority, backendKey{}, registry.FactoryFunc[types.RecorderPCM](func() (types.RecorderPCM, error) {
		return NewRecorderPCM()
	}))
}
