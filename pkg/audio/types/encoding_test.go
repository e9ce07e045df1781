package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodingPCM(t *testing.T) {
	enc := EncodingPCM{
		PCMFormat:  PCMFormatS16LE,
		SampleRate: 48000,
	}
	require.Equal(t, uint(2), enc.BytesPerSample())
	require.Equal(t, uint64(960), enc.BytesForDuration(10*time.Millisecond))
	require.Equal(t, 10*time.Millisecond, enc.DurationForBytes(1, 960))
	require.Equal(t, 5*time.Millisecond, enc.DurationForBytes(2, 960))
	require.Zero(t, enc.DurationForBytes(0, 960))
}

func TestPCMFormatFromString(t *testing.T) {
	for f := PCMFormatU8; f < EndOfPCMFormat; f++ {
		require.Equal(t, f, PCMFormatFromString(f.String()))
		require.NotZero(t, f.Size(), f.String())
	}
	require.Equal(t, PCMFormatS16LE, PCMFormatFromString(" S16LE "))
	require.Equal(t, PCMFormatUndefined, PCMFormatFromString("pcm16"))
}
