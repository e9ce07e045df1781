package oto

import (
	"github.com/xaionaro-go/noisefilter/pkg/audio/registry"
	"github.com/xaionaro-go/noisefilter/pkg/audio/types"
)

const (
	Priority = 50
)

type backendKey struct{}

func init() {
	registry.RegisterPlayerFactory(Priority, backendKey{}, registry.FactoryFunc[types.PlayerPCM](func() (types.PlayerPCM, error) {
		return NewPlayerPCM()
	}))
}
