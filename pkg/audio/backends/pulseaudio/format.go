package pulseaudio

import (
	"fmt"

	"github.com/jfreymuth/pulse/proto"
	"github.com/xaionaro-go/noisefilter/pkg/audio/types"
)

func pulseFormat(pcmFormat types.PCMFormat) (byte, error) {
	switch pcmFormat {
	case types.PCMFormatS16LE:
		return proto.FormatInt16LE, nil
	case types.PCMFormatFloat32LE:
		return proto.FormatFloat32LE, nil
	default:
		return 0, fmt.Errorf("received an unexpected format: %v", pcmFormat)
	}
}

func channelMap(channels types.Channel) (proto.ChannelMap, error) {
	switch channels {
	case 1:
		return proto.ChannelMap{proto.ChannelMono}, nil
	case 2:
		return proto.ChannelMap{proto.ChannelLeft, proto.ChannelRight}, nil
	default:
		return nil, fmt.Errorf("do not know how to configure %d channels", channels)
	}
}
