package audio

import (
	"encoding/binary"

	"github.com/xaionaro-go/noisefilter/pkg/audio/types"
)

type (
	Channel      = types.Channel
	SampleRate   = types.SampleRate
	PCMFormat    = types.PCMFormat
	Encoding     = types.Encoding
	EncodingPCM  = types.EncodingPCM
	PlayerPCM    = types.PlayerPCM
	RecorderPCM  = types.RecorderPCM
	Stream       = types.Stream
	PlayStream   = types.PlayStream
	RecordStream = types.RecordStream
)

const (
	PCMFormatUndefined = types.PCMFormatUndefined
	PCMFormatU8        = types.PCMFormatU8
	PCMFormatS16LE     = types.PCMFormatS16LE
	PCMFormatS16BE     = types.PCMFormatS16BE
	PCMFormatS24LE     = types.PCMFormatS24LE
	PCMFormatS24BE     = types.PCMFormatS24BE
	PCMFormatS32LE     = types.PCMFormatS32LE
	PCMFormatS32BE     = types.PCMFormatS32BE
	PCMFormatS64LE     = types.PCMFormatS64LE
	PCMFormatS64BE     = types.PCMFormatS64BE
	PCMFormatFloat32LE = types.PCMFormatFloat32LE
	PCMFormatFloat32BE = types.PCMFormatFloat32BE
	PCMFormatFloat64LE = types.PCMFormatFloat64LE
	PCMFormatFloat64BE = types.PCMFormatFloat64BE
)

func PCMFormatFromString(s string) PCMFormat {
	return types.PCMFormatFromString(s)
}

// PCMFormatS16Native is the signed 16-bit format in the byte order of this
// computer, or PCMFormatUndefined if the byte order is not recognized.
func PCMFormatS16Native() PCMFormat {
	switch binary.NativeEndian.Uint16([]byte{1, 2}) {
	case 0x0102:
		return PCMFormatS16BE
	case 0x0201:
		return PCMFormatS16LE
	}
	return PCMFormatUndefined
}
