package resampler

import (
	"encoding/binary"
	"math"

	"github.com/xaionaro-go/noisefilter/pkg/audio/types"
)

// sampleCodec converts one sample between its wire representation and a
// float64 in range [-1, 1].
type sampleCodec struct {
	Decode func(p []byte) float64
	Encode func(p []byte, v float64)
}

func clampInt(v float64, scale float64, min, max int64) int64 {
	r := int64(math.Round(v * scale))
	if r > max {
		return max
	}
	if r < min {
		return min
	}
	return r
}

func int24(v int32) int32 {
	if v&0x800000 != 0 {
		v |= -16777216
	}
	return v
}

var sampleCodecs = map[types.PCMFormat]sampleCodec{
	types.PCMFormatU8: {
		Decode: func(p []byte) float64 { return (float64(p[0]) - 128) / 128 },
		Encode: func(p []byte, v float64) { p[0] = byte(clampInt(v, 128, -128, 127) + 128) },
	},
	types.PCMFormatS16LE: {
		Decode: func(p []byte) float64 { return float64(int16(binary.LittleEndian.Uint16(p))) / 32768 },
		Encode: func(p []byte, v float64) {
			binary.LittleEndian.PutUint16(p, uint16(int16(clampInt(v, 32768, math.MinInt16, math.MaxInt16))))
		},
	},
	types.PCMFormatS16BE: {
		Decode: func(p []byte) float64 { return float64(int16(binary.BigEndian.Uint16(p))) / 32768 },
		Encode: func(p []byte, v float64) {
			binary.BigEndian.PutUint16(p, uint16(int16(clampInt(v, 32768, math.MinInt16, math.MaxInt16))))
		},
	},
	types.PCMFormatS24LE: {
		Decode: func(p []byte) float64 {
			return float64(int24(int32(uint32(p[0])|uint32(p[1])<<8|uint32(p[2])<<16))) / 8388608
		},
		Encode: func(p []byte, v float64) {
			val := clampInt(v, 8388608, -8388608, 8388607)
			p[0], p[1], p[2] = byte(val), byte(val>>8), byte(val>>16)
		},
	},
	types.PCMFormatS24BE: {
		Decode: func(p []byte) float64 {
			return float64(int24(int32(uint32(p[2])|uint32(p[1])<<8|uint32(p[0])<<16))) / 8388608
		},
		Encode: func(p []byte, v float64) {
			val := clampInt(v, 8388608, -8388608, 8388607)
			p[0], p[1], p[2] = byte(val>>16), byte(val>>8), byte(val)
		},
	},
	types.PCMFormatS32LE: {
		Decode: func(p []byte) float64 { return float64(int32(binary.LittleEndian.Uint32(p))) / 2147483648 },
		Encode: func(p []byte, v float64) {
			binary.LittleEndian.PutUint32(p, uint32(int32(clampInt(v, 2147483648, math.MinInt32, math.MaxInt32))))
		},
	},
	types.PCMFormatS32BE: {
		Decode: func(p []byte) float64 { return float64(int32(binary.BigEndian.Uint32(p))) / 2147483648 },
		Encode: func(p []byte, v float64) {
			binary.BigEndian.PutUint32(p, uint32(int32(clampInt(v, 2147483648, math.MinInt32, math.MaxInt32))))
		},
	},
	types.PCMFormatS64LE: {
		Decode: func(p []byte) float64 { return float64(int64(binary.LittleEndian.Uint64(p))) / 9223372036854775808 },
		Encode: func(p []byte, v float64) {
			binary.LittleEndian.PutUint64(p, uint64(int64(math.Max(-1, math.Min(v, 1))*math.MaxInt64)))
		},
	},
	types.PCMFormatS64BE: {
		Decode: func(p []byte) float64 { return float64(int64(binary.BigEndian.Uint64(p))) / 9223372036854775808 },
		Encode: func(p []byte, v float64) {
			binary.BigEndian.PutUint64(p, uint64(int64(math.Max(-1, math.Min(v, 1))*math.MaxInt64)))
		},
	},
	types.PCMFormatFloat32LE: {
		Decode: func(p []byte) float64 { return float64(math.Float32frombits(binary.LittleEndian.Uint32(p))) },
		Encode: func(p []byte, v float64) { binary.LittleEndian.PutUint32(p, math.Float32bits(float32(v))) },
	},
	types.PCMFormatFloat32BE: {
		Decode: func(p []byte) float64 { return float64(math.Float32frombits(binary.BigEndian.Uint32(p))) },
		Encode: func(p []byte, v float64) { binary.BigEndian.PutUint32(p, math.Float32bits(float32(v))) },
	},
	types.PCMFormatFloat64LE: {
		Decode: func(p []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(p)) },
		Encode: func(p []byte, v float64) { binary.LittleEndian.PutUint64(p, math.Float64bits(v)) },
	},
	types.PCMFormatFloat64BE: {
		Decode: func(p []byte) float64 { return math.Float64frombits(binary.BigEndian.Uint64(p)) },
		Encode: func(p []byte, v float64) { binary.BigEndian.PutUint64(p, math.Float64bits(v)) },
	},
}
